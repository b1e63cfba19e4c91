package organization

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appq/appq/internal/platform/db"
	"github.com/appq/appq/pkg/apperrors"
	"github.com/appq/appq/pkg/pagination"
)

var dialect = goqu.Dialect("postgres")

// =========== Organization Repository ===========

type organizationRepoPG struct{ pool *pgxpool.Pool }

func NewOrganizationRepoPG(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepoPG{pool: pool}
}

func (r *organizationRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

var orgCols = []interface{}{"id", "name", "status", "types", "group_name", "created_at", "updated_at"}

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Status, &o.Types, &o.GroupName, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("organization not found")
	}
	return &o, err
}

func (r *organizationRepoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	if o.Types == nil {
		o.Types = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO organization (id, name, status, types, group_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		o.ID, o.Name, o.Status, o.Types, o.GroupName).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (r *organizationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query, args, err := dialect.From("organization").Select(orgCols...).
		Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build organization query: %w", err)
	}
	return scanOrganization(r.conn(ctx).QueryRow(ctx, query, args...))
}

func organizationListQuery(f OrganizationFilter) *goqu.SelectDataset {
	ds := dialect.From("organization")
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(f.Status))
	}
	if f.Name != "" {
		ds = ds.Where(goqu.C("name").ILike("%" + f.Name + "%"))
	}
	if f.Type != "" {
		ds = ds.Where(goqu.L("? = ANY(types)", f.Type))
	}
	return ds
}

func (r *organizationRepoPG) List(ctx context.Context, f OrganizationFilter, limit, offset int) ([]*Organization, int, error) {
	ds := organizationListQuery(f)

	total, err := count(ctx, r.conn(ctx), ds)
	if err != nil {
		return nil, 0, err
	}

	page := pagination.Params{Limit: limit, Offset: offset}
	query, args, err := page.Apply(ds.Select(orgCols...).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build organization list: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

// =========== Category Repository ===========

type categoryRepoPG struct{ pool *pgxpool.Pool }

func NewCategoryRepoPG(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepoPG{pool: pool}
}

func (r *categoryRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

var categoryCols = []interface{}{
	"id", "organization_id", "name", "description", "type", "status", "group_name",
	"opening_hours", "break_hours", "interval_minutes", "time_zone", "max_advance_days",
	"is_scheduled", "created_at", "updated_at",
}

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Description, &c.Type, &c.Status, &c.GroupName,
		&c.OpeningHours, &c.BreakHours, &c.IntervalMinutes, &c.TimeZone, &c.MaxAdvanceDays,
		&c.IsScheduled, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("category not found")
	}
	return &c, err
}

func (r *categoryRepoPG) Create(ctx context.Context, c *Category) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO category (id, organization_id, name, description, type, status, group_name,
			opening_hours, break_hours, interval_minutes, time_zone, max_advance_days, is_scheduled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		c.ID, c.OrganizationID, c.Name, c.Description, c.Type, c.Status, c.GroupName,
		c.OpeningHours, c.BreakHours, c.IntervalMinutes, c.TimeZone, c.MaxAdvanceDays, c.IsScheduled,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *categoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	query, args, err := dialect.From("category").Select(categoryCols...).
		Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build category query: %w", err)
	}
	return scanCategory(r.conn(ctx).QueryRow(ctx, query, args...))
}

func (r *categoryRepoPG) Update(ctx context.Context, c *Category) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE category SET name=$2, description=$3, type=$4, status=$5, group_name=$6,
			opening_hours=$7, break_hours=$8, interval_minutes=$9, time_zone=$10,
			max_advance_days=$11, is_scheduled=$12, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Description, c.Type, c.Status, c.GroupName,
		c.OpeningHours, c.BreakHours, c.IntervalMinutes, c.TimeZone,
		c.MaxAdvanceDays, c.IsScheduled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("category not found")
	}
	return nil
}

func categoryListQuery(f CategoryFilter) *goqu.SelectDataset {
	ds := dialect.From("category")
	if len(f.OrganizationIDs) > 0 {
		ds = ds.Where(goqu.C("organization_id").In(f.OrganizationIDs))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(f.Status))
	}
	if f.Type != "" {
		ds = ds.Where(goqu.C("type").ILike(f.Type))
	}
	return ds
}

func (r *categoryRepoPG) List(ctx context.Context, f CategoryFilter, limit, offset int) ([]*Category, int, error) {
	ds := categoryListQuery(f)

	total, err := count(ctx, r.conn(ctx), ds)
	if err != nil {
		return nil, 0, err
	}

	page := pagination.Params{Limit: limit, Offset: offset}
	query, args, err := page.Apply(ds.Select(categoryCols...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build category list: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func count(ctx context.Context, q db.Querier, ds *goqu.SelectDataset) (int, error) {
	query, args, err := ds.Select(countExpr()).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func countExpr() exp.SQLFunctionExpression {
	return goqu.COUNT(goqu.Star())
}
