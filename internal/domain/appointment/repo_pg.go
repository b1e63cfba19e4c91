package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appq/appq/internal/domain/organization"
	"github.com/appq/appq/internal/platform/db"
	"github.com/appq/appq/pkg/apperrors"
	"github.com/appq/appq/pkg/pagination"
)

var dialect = goqu.Dialect("postgres")

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

var appointmentCols = []interface{}{
	"id", "organization_id", "category_id", "user_id", "status", "is_scheduled", "counter",
	"scheduled_time", "scheduled_end_time", "created_by", "updated_by", "created_at", "updated_at",
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.OrganizationID, &a.CategoryID, &a.UserID, &a.Status, &a.IsScheduled, &a.Counter,
		&a.ScheduledTime, &a.ScheduledEndTime, &a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Appointment does not exist.")
	}
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, organization_id, category_id, user_id, status, is_scheduled, counter,
			scheduled_time, scheduled_end_time, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		a.ID, a.OrganizationID, a.CategoryID, a.UserID, a.Status, a.IsScheduled, a.Counter,
		a.ScheduledTime, a.ScheduledEndTime, a.CreatedBy, a.UpdatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query, args, err := dialect.From("appointment").Select(appointmentCols...).
		Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build appointment query: %w", err)
	}
	return scanAppointment(r.conn(ctx).QueryRow(ctx, query, args...))
}

func (r *appointmentRepoPG) Save(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment SET status = $2, counter = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.Status, a.Counter, a.UpdatedBy).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError("Appointment does not exist.")
	}
	return err
}

const queuePredicate = `organization_id = $1 AND category_id = $2 AND status = 'active' AND is_scheduled = FALSE`

func (r *appointmentRepoPG) MaxCounter(ctx context.Context, p Partition) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(counter), 0) FROM appointment WHERE `+queuePredicate,
		p.OrganizationID, p.CategoryID).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) MinCounter(ctx context.Context, p Partition) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MIN(counter), 0) FROM appointment WHERE `+queuePredicate,
		p.OrganizationID, p.CategoryID).Scan(&n)
	return n, err
}

// ShiftCounters moves the counters with one relative UPDATE so concurrent
// writers never read-modify-write a counter.
func (r *appointmentRepoPG) ShiftCounters(ctx context.Context, p Partition, after int, before *int, delta int) (int64, error) {
	sql := `UPDATE appointment SET counter = counter + $3, updated_at = NOW()
		WHERE ` + queuePredicate + ` AND counter > $4`
	args := []interface{}{p.OrganizationID, p.CategoryID, delta, after}
	if before != nil {
		sql += ` AND counter < $5`
		args = append(args, *before)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("shift counters: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *appointmentRepoPG) ExistsActive(ctx context.Context, userID string, p Partition) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE organization_id = $1 AND category_id = $2 AND status = 'active' AND user_id = $3
		)`,
		p.OrganizationID, p.CategoryID, userID).Scan(&exists)
	return exists, err
}

func (r *appointmentRepoPG) Overlaps(ctx context.Context, categoryID uuid.UUID, start, end time.Time) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE category_id = $1 AND status = 'active' AND is_scheduled = TRUE
			  AND scheduled_time < $3 AND scheduled_end_time > $2
		)`, categoryID, start, end).Scan(&taken)
	return taken, err
}

func (r *appointmentRepoPG) ActiveBookings(ctx context.Context, categoryID uuid.UUID, from, to time.Time) ([]organization.Booking, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT scheduled_time, scheduled_end_time FROM appointment
		WHERE category_id = $1 AND status = 'active' AND is_scheduled = TRUE
		  AND scheduled_time < $3 AND scheduled_end_time > $2
		ORDER BY scheduled_time`, categoryID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []organization.Booking
	for rows.Next() {
		var b organization.Booking
		if err := rows.Scan(&b.Start, &b.End); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// listQuery builds the filtered select shared by List and its count.
func listQuery(f ListFilter) *goqu.SelectDataset {
	ds := dialect.From("appointment")
	if f.UserID != "" {
		ds = ds.Where(goqu.C("user_id").Eq(f.UserID))
	}
	switch f.Scope {
	case ScopeScheduled:
		ds = ds.Where(goqu.C("is_scheduled").IsTrue())
	case ScopeUnscheduled:
		ds = ds.Where(goqu.C("is_scheduled").IsFalse())
	}
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(f.Status))
	}
	if len(f.CategoryIDs) > 0 {
		ds = ds.Where(goqu.C("category_id").In(f.CategoryIDs))
	}
	if f.RestrictToGroups {
		visible := dialect.From(goqu.T("category").As("c")).
			Join(goqu.T("organization").As("o"), goqu.On(goqu.I("o.id").Eq(goqu.I("c.organization_id")))).
			Select(goqu.I("c.id")).
			Where(goqu.Or(
				goqu.I("c.group_name").In(f.Groups),
				goqu.I("o.group_name").In(f.Groups),
			))
		ds = ds.Where(goqu.C("category_id").In(visible))
	}
	return ds
}

func listOrder(s Scope) []exp.OrderedExpression {
	switch s {
	case ScopeUnscheduled:
		return []exp.OrderedExpression{goqu.C("counter").Asc(), goqu.C("created_at").Asc()}
	case ScopeScheduled:
		return []exp.OrderedExpression{goqu.C("scheduled_time").Asc(), goqu.C("created_at").Asc()}
	default:
		return []exp.OrderedExpression{goqu.C("created_at").Asc(), goqu.C("id").Asc()}
	}
}

func (r *appointmentRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	ds := listQuery(f)

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build appointment count: %w", err)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := pagination.Params{Limit: limit, Offset: offset}
	query, args, err := page.Apply(ds.Select(appointmentCols...).Order(listOrder(f.Scope)...)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build appointment list: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
