package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appq/appq/internal/domain/organization"
	"github.com/appq/appq/internal/platform/auth"
	"github.com/appq/appq/internal/platform/db"
	"github.com/appq/appq/internal/platform/scheduling"
	"github.com/appq/appq/pkg/apperrors"
)

const (
	msgOrganizationUnavailable = "Organization does not exist or is not accepting appointments."
	msgCategoryUnavailable     = "Category does not exist or is not accepting appointments."
	msgDuplicate               = "Appointment already exists."
	msgNotFound                = "Appointment does not exist."
	msgUnauthorized            = "Unauthorized to access this appointment."
	msgForeignUser             = "You are not allowed to create an appointment for this user."
	msgAlreadyActive           = "Invalid Appointment: Already active or scheduled."
	msgSamePosition            = "Previous appointment cannot be the same as the current appointment."
	msgScheduledMove           = "Scheduled appointments cannot be moved."
	msgOtherPartition          = "Previous appointment must be in the same organization and category."
	msgRequired                = "This field is required."
)

// Directory resolves the organizations and categories appointments refer to.
type Directory interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*organization.Category, error)
}

// LockFunc takes a lock on key for the rest of the enclosing transaction.
type LockFunc func(ctx context.Context, key string) error

type Service struct {
	repo      Repository
	dir       Directory
	tx        db.TxRunner
	seq       *Sequencer
	validator *Validator
	lock      LockFunc
	clock     scheduling.Clock
	logger    zerolog.Logger
}

type Option func(*Service)

// WithClock replaces the wall clock used for past and horizon checks.
func WithClock(c scheduling.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLock replaces the advisory lock taken around partition and schedule
// mutations.
func WithLock(fn LockFunc) Option {
	return func(s *Service) { s.lock = fn }
}

func NewService(repo Repository, dir Directory, tx db.TxRunner, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		dir:    dir,
		tx:     tx,
		seq:    NewSequencer(repo),
		lock:   db.LockAdvisory,
		clock:  scheduling.SystemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewValidator(repo, s.clock)
	return s
}

func partitionLockKey(p Partition) string {
	return db.AdvisoryLockKey("appointment_partition", p.OrganizationID.String(), p.CategoryID.String())
}

func scheduleLockKey(categoryID uuid.UUID) string {
	return db.AdvisoryLockKey("appointment_schedule", categoryID.String())
}

// -- Create --

// CreateRequest is the input of Create. UserID defaults to the actor.
type CreateRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	UserID         string    `json:"user_id"`
	IsScheduled    bool      `json:"is_scheduled"`
	ScheduledTime  string    `json:"scheduled_time"`
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Appointment, error) {
	if req.OrganizationID == uuid.Nil {
		return nil, apperrors.NewFieldError("organization_id", msgRequired)
	}
	if req.CategoryID == uuid.Nil {
		return nil, apperrors.NewFieldError("category_id", msgRequired)
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		req.UserID = actor.UserID
	}
	if req.UserID != actor.UserID && !actor.IsStaff() {
		return nil, apperrors.NewForbiddenError(msgForeignUser)
	}

	creator := actor.UserID
	a := &Appointment{
		OrganizationID: req.OrganizationID,
		CategoryID:     req.CategoryID,
		UserID:         req.UserID,
		Status:         StatusActive,
		IsScheduled:    req.IsScheduled,
		CreatedBy:      &creator,
		UpdatedBy:      &creator,
	}

	var err error
	if req.IsScheduled {
		err = s.createScheduled(ctx, a, req.ScheduledTime)
	} else {
		err = s.createQueued(ctx, a)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("organization_id", a.OrganizationID.String()).
		Str("category_id", a.CategoryID.String()).
		Bool("is_scheduled", a.IsScheduled).
		Int("counter", a.Counter).
		Msg("appointment created")
	return a, nil
}

func (s *Service) createQueued(ctx context.Context, a *Appointment) error {
	p := a.Partition()
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lock(ctx, partitionLockKey(p)); err != nil {
			return err
		}
		counter, msg, err := s.admit(ctx, a.UserID, p)
		if err != nil {
			return err
		}
		if msg != "" {
			return apperrors.NewFieldError("appointment", msg)
		}
		a.Counter = counter
		return s.repo.Create(ctx, a)
	})
}

// admit runs the checks shared by queue creation and activation and returns
// the counter the appointment would take. A rule violation is reported
// through msg with a nil error.
func (s *Service) admit(ctx context.Context, userID string, p Partition) (counter int, msg string, err error) {
	org, err := s.activeOrganization(ctx, p.OrganizationID)
	if err != nil {
		return 0, "", err
	}
	if org == nil {
		return 0, msgOrganizationUnavailable, nil
	}
	cat, err := s.activeCategory(ctx, p.CategoryID, org.ID)
	if err != nil {
		return 0, "", err
	}
	if cat == nil {
		return 0, msgCategoryUnavailable, nil
	}
	dup, err := s.repo.ExistsActive(ctx, userID, p)
	if err != nil {
		return 0, "", err
	}
	if dup {
		return 0, msgDuplicate, nil
	}
	counter, err = s.seq.Next(ctx, p)
	return counter, "", err
}

// activeOrganization returns nil, nil when the organization is missing or
// inactive.
func (s *Service) activeOrganization(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	org, err := s.dir.GetOrganization(ctx, id)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return nil, nil
	}
	return org, nil
}

// activeCategory returns nil, nil when the category is missing, inactive or
// belongs to another organization.
func (s *Service) activeCategory(ctx context.Context, id, orgID uuid.UUID) (*organization.Category, error) {
	cat, err := s.dir.GetCategory(ctx, id)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !cat.IsActive() || cat.OrganizationID != orgID {
		return nil, nil
	}
	return cat, nil
}

func (s *Service) createScheduled(ctx context.Context, a *Appointment, rawTime string) error {
	if strings.TrimSpace(rawTime) == "" {
		return apperrors.NewFieldError(fieldScheduledTime, msgRequired)
	}
	org, err := s.activeOrganization(ctx, a.OrganizationID)
	if err != nil {
		return err
	}
	if org == nil {
		return apperrors.NewFieldError("appointment", msgOrganizationUnavailable)
	}
	cat, err := s.activeCategory(ctx, a.CategoryID, org.ID)
	if err != nil {
		return err
	}
	if cat == nil {
		return apperrors.NewFieldError("appointment", msgCategoryUnavailable)
	}
	if !cat.IsScheduled {
		return apperrors.NewFieldError(fieldScheduledTime, "Category does not accept scheduled appointments.")
	}

	loc, err := cat.Location()
	if err != nil {
		return apperrors.NewInternalError("invalid category time zone", err)
	}
	start, err := scheduling.ParseInstant(rawTime, loc)
	if err != nil {
		return apperrors.NewFieldError(fieldScheduledTime, "Datetime has wrong format.")
	}
	if err := s.validator.CheckHorizon(cat, start); err != nil {
		return err
	}
	end := start.Add(cat.Interval())
	a.ScheduledTime = &start
	a.ScheduledEndTime = &end

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lock(ctx, scheduleLockKey(cat.ID)); err != nil {
			return err
		}
		if err := s.validator.Validate(ctx, cat, start); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
}

// -- Status changes --

// CheckIn marks the appointment as served. Besides staff and group members,
// the appointment's creator may check it in.
func (s *Service) CheckIn(ctx context.Context, actor auth.Actor, id uuid.UUID) (string, error) {
	return s.setStatus(ctx, actor, id, StatusCheckin)
}

// Cancel withdraws the appointment. Besides staff and group members, the
// appointment's user and its creator may cancel it.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (string, error) {
	return s.setStatus(ctx, actor, id, StatusCancel)
}

func (s *Service) setStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status string) (string, error) {
	if !validStatuses[status] {
		return "", apperrors.NewValidationError("Invalid status choice.")
	}
	var prior *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.lockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actor, a, statusAccess(status)); err != nil {
			return err
		}
		if !CanTransition(a.Status, status) {
			return apperrors.NewValidationError(
				fmt.Sprintf("Cannot change appointment status from '%s' to '%s'.", a.Status, status))
		}

		snapshot := *a
		prior = &snapshot

		a.Status = status
		a.UpdatedBy = &actor.UserID
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}
		if prior.InQueue() {
			return s.seq.CloseGap(ctx, a.Partition(), prior.Counter)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("from", prior.Status).
		Str("to", status).
		Str("user_id", actor.UserID).
		Msg("appointment status updated")
	return fmt.Sprintf("Appointment status updated to '%s' successfully.", status), nil
}

// lockAppointment loads the appointment, locks its partition and loads it
// again so that the returned copy cannot be changed by a concurrent
// operation on the same partition.
func (s *Service) lockAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.lock(ctx, partitionLockKey(a.Partition())); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// authorize allows staff and members of the category's or organization's
// group. Wider access levels also let the creator or the appointment's user
// through.
func (s *Service) authorize(ctx context.Context, actor auth.Actor, a *Appointment, level access) error {
	if actor.IsStaff() {
		return nil
	}
	if level >= accessCreator && a.CreatedByUser(actor.UserID) {
		return nil
	}
	if level >= accessOwner && a.UserID == actor.UserID {
		return nil
	}
	cat, err := s.dir.GetCategory(ctx, a.CategoryID)
	if err != nil && !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return err
	}
	if cat != nil {
		org, err := s.dir.GetOrganization(ctx, a.OrganizationID)
		if err != nil && !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
			return err
		}
		if actor.InGroup(cat.GroupNames(org)...) {
			return nil
		}
	}
	return apperrors.NewForbiddenError(msgUnauthorized)
}

// access widens authorize beyond staff and group members.
type access int

const (
	accessGroup access = iota
	accessCreator
	accessOwner
)

func statusAccess(status string) access {
	if status == StatusCancel {
		return accessOwner
	}
	return accessCreator
}

// -- Activate --

// Activate puts a non-active queue appointment back at the end of its queue.
func (s *Service) Activate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	var out *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.lockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actor, a, accessGroup); err != nil {
			return err
		}
		if a.Status == StatusActive || a.IsScheduled {
			return apperrors.NewValidationError(msgAlreadyActive)
		}

		counter, msg, err := s.admit(ctx, a.UserID, a.Partition())
		if err != nil {
			return err
		}
		if msg != "" {
			return apperrors.NewValidationError("Scheduling Error: " + msg)
		}

		a.Counter = counter
		a.Status = StatusActive
		a.UpdatedBy = &actor.UserID
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrorTypeValidation) {
			s.logger.Warn().Str("appointment_id", id.String()).Str("reason", apperrors.Message(err)).Msg("appointment activation refused")
		}
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", out.ID.String()).
		Int("counter", out.Counter).
		Msg("appointment activated")
	return out, nil
}

// -- Move --

// Move places the appointment directly behind previousID, or at the front
// of its queue when previousID is nil.
func (s *Service) Move(ctx context.Context, actor auth.Actor, id uuid.UUID, previousID *uuid.UUID) error {
	if previousID != nil && *previousID == id {
		return apperrors.NewFieldError("previous_appointment_id", msgSamePosition)
	}

	var moved *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.lockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actor, current, accessGroup); err != nil {
			return err
		}
		if current.IsScheduled {
			return apperrors.NewValidationError(msgScheduledMove)
		}
		if current.Status != StatusActive {
			return apperrors.NewNotFoundError(msgNotFound)
		}

		var previous *Appointment
		if previousID != nil {
			previous, err = s.repo.GetByID(ctx, *previousID)
			if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
				return apperrors.NewFieldError("previous_appointment_id", msgNotFound)
			}
			if err != nil {
				return err
			}
			if previous.IsScheduled {
				return apperrors.NewValidationError(msgScheduledMove)
			}
			if previous.Status != StatusActive {
				return apperrors.NewFieldError("previous_appointment_id", msgNotFound)
			}
			if previous.Partition() != current.Partition() {
				return apperrors.NewFieldError("previous_appointment_id", msgOtherPartition)
			}
		}

		current.UpdatedBy = &actor.UserID
		if err := s.seq.Move(ctx, current, previous); err != nil {
			return err
		}
		moved = current
		return nil
	})
	if err != nil {
		return err
	}

	ev := s.logger.Info().
		Str("appointment_id", moved.ID.String()).
		Int("counter", moved.Counter)
	if previousID != nil {
		ev = ev.Str("previous_appointment_id", previousID.String())
	}
	ev.Msg("appointment moved")
	return nil
}

// -- Reads --

// Get returns an appointment visible to actor: their own, one they
// created, or any when staff or a member of its group.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, a, accessOwner); err != nil {
		return nil, err
	}
	return a, nil
}

func parseStatusFilter(status string) (string, error) {
	if status == "" {
		return StatusActive, nil
	}
	if !validStatuses[status] {
		return "", apperrors.NewFieldError("status", fmt.Sprintf("%q is not a valid choice.", status))
	}
	return status, nil
}

// ListOwn lists the actor's appointments. scope defaults to all and status
// to active.
func (s *Service) ListOwn(ctx context.Context, actor auth.Actor, scope, status string, limit, offset int) ([]*Appointment, int, error) {
	sc := Scope(scope)
	switch sc {
	case "":
		sc = ScopeAll
	case ScopeAll, ScopeScheduled, ScopeUnscheduled:
	default:
		return nil, 0, apperrors.NewFieldError("type", fmt.Sprintf("%q is not a valid choice.", scope))
	}
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, ListFilter{UserID: actor.UserID, Scope: sc, Status: st}, limit, offset)
}

// ListQueue lists the appointments of scope (scheduled or unscheduled) in
// the given categories. Staff see every category; other users only the
// categories their groups grant.
func (s *Service) ListQueue(ctx context.Context, actor auth.Actor, scope Scope, categoryIDs []uuid.UUID, status string, limit, offset int) ([]*Appointment, int, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, 0, err
	}
	f := ListFilter{Scope: scope, Status: st, CategoryIDs: categoryIDs}
	if !actor.IsStaff() {
		if len(actor.Groups) == 0 {
			return []*Appointment{}, 0, nil
		}
		f.RestrictToGroups = true
		f.Groups = actor.Groups
	}
	return s.repo.List(ctx, f, limit, offset)
}
