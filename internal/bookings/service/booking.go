package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/flow"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/validator"
	directory "roomly/internal/directory/repository"
	notifications "roomly/internal/notifications/repository"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/kafka"
	"roomly/pkg/lock"
	"roomly/pkg/metrics"
	"roomly/pkg/middleware"
	"roomly/pkg/model"
	"roomly/pkg/sanitizer"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

type BookingService interface {
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, req *model.UpdateBookingRequest) (*model.Booking, error)
	Delete(ctx context.Context, id string, actorID string) error
	SearchByResource(ctx context.Context, resourceID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, int64, error)
	UserSchedule(ctx context.Context, userID string, startTime, endTime *time.Time) ([]*model.Booking, error)
	Wait(ctx context.Context) error
}

// Repositories groups the stores a booking write touches.
type Repositories struct {
	Bookings      repository.BookingRepository
	Participants  repository.ParticipantRepository
	Changes       repository.ChangeRepository
	Guard         repository.GuardRepository
	Notifications notifications.NotificationRepository
	Rooms         directory.RoomRepository
	Users         directory.UserRepository
	Teams         directory.TeamRepository
}

type Option func(*bookingService)

// WithLocker queues writers of the same resource before they open a transaction.
func WithLocker(locker lock.Locker) Option {
	return func(s *bookingService) { s.locker = locker }
}

func WithPublisher(publisher kafka.Publisher) Option {
	return func(s *bookingService) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *bookingService) { s.metrics = m }
}

// WithStageObserver reports every flow transition.
func WithStageObserver(fn func(flowName string, stage flow.Stage)) Option {
	return func(s *bookingService) { s.onStage = fn }
}

type bookingService struct {
	repos     Repositories
	tx        mongotx.TransactionManager
	locker    lock.Locker
	publisher kafka.Publisher
	validator *validator.BookingValidator
	conflicts *ConflictChecker
	resolver  *ParticipantResolver
	metrics   *metrics.Metrics
	cfg       *config.Config
	onStage   func(flowName string, stage flow.Stage)
	inflight  sync.WaitGroup
}

func NewBookingService(
	repos Repositories,
	tx mongotx.TransactionManager,
	validator *validator.BookingValidator,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repos:     repos,
		tx:        tx,
		locker:    lock.NoopLocker{},
		validator: validator,
		conflicts: NewConflictChecker(repos.Bookings),
		resolver:  NewParticipantResolver(repos.Teams),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type createState struct {
	req           *model.CreateBookingRequest
	start, end    time.Time
	room          *model.Room
	organizer     *model.User
	booking       *model.Booking
	notifications []*model.Notification
}

func (st *createState) reset() {
	st.booking = nil
	st.notifications = nil
}

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	started := time.Now()
	st := &createState{req: req}

	m := flow.NewMachine("create_booking", s.lockedTx(func() string { return st.room.ID }), s.cfg.Log,
		flow.NewStep(flow.Validating, s.validateCreate),
		flow.NewTxStep(flow.ConflictChecking, func(ctx context.Context, st *createState) error {
			return s.guardAndCheck(ctx, st.room.ID, st.start, st.end, "")
		}),
		flow.NewTxStep(flow.Inserting, s.insertBooking),
		flow.NewTxStep(flow.ExpandingParticipants, s.expandCreated),
		flow.NewTxStep(flow.NotifyingAndCommitting, s.notifyCreated),
	)
	m.BeginAttempt = (*createState).reset
	observe(s, m)

	if err := m.Run(ctx, st); err != nil {
		return nil, s.fail(OperationCreate, started, err, "resource_id", req.ResourceID, "organizer_id", req.OrganizerID)
	}

	s.publish(middleware.RequestIDFromContext(ctx), st.notifications)
	s.observeOutcome(OperationCreate, metrics.OutcomeCommitted, started)

	s.cfg.Log.Info("Booking created successfully",
		"id", st.booking.ID,
		"resource_id", st.booking.ResourceID,
		"organizer_id", st.booking.OrganizerID,
		"start_time", st.booking.StartTime,
		"end_time", st.booking.EndTime,
		"participants", len(st.booking.Participants),
		"duration", since(started),
	)
	return st.booking, nil
}

func (s *bookingService) validateCreate(ctx context.Context, st *createState) error {
	req := st.req
	req.Title = sanitizer.SanitizeTitle(req.Title)
	req.ResourceID = sanitizer.SanitizeID(req.ResourceID)
	req.OrganizerID = sanitizer.SanitizeID(req.OrganizerID)
	req.TeamIDs = sanitizer.NormalizeIDs(req.TeamIDs)
	req.ParticipantIDs = sanitizer.NormalizeIDs(req.ParticipantIDs)

	start, end, err := validator.ParseInterval(req.Start, req.End, s.cfg.BookingLocation())
	if err != nil {
		return apperrors.InvalidInterval(err.Error()).WithCause(err)
	}
	if err := s.validator.ValidateCreate(req); err != nil {
		return validationError(err)
	}

	room, err := s.findRoom(ctx, req.ResourceID)
	if err != nil {
		return err
	}
	organizer, err := s.findUser(ctx, req.OrganizerID)
	if err != nil {
		return err
	}

	st.start, st.end, st.room, st.organizer = start, end, room, organizer
	return nil
}

func (s *bookingService) insertBooking(ctx context.Context, st *createState) error {
	st.booking = &model.Booking{
		ResourceID:   st.room.ID,
		ResourceName: st.room.Name,
		Title:        st.req.Title,
		OrganizerID:  st.organizer.ID,
		StartTime:    st.start,
		EndTime:      st.end,
	}
	if err := s.repos.Bookings.Create(ctx, st.booking); err != nil {
		return apperrors.Internal("Failed to create booking", err)
	}
	return nil
}

func (s *bookingService) expandCreated(ctx context.Context, st *createState) error {
	participants, err := s.resolveAndAdd(ctx, st.booking.ID, st.organizer, st.req.TeamIDs, st.req.ParticipantIDs)
	if err != nil {
		return err
	}
	st.booking.Participants = participants
	return nil
}

func (s *bookingService) notifyCreated(ctx context.Context, st *createState) error {
	for _, p := range st.booking.Participants {
		kind := model.NotificationAdded
		if p.UserID == st.booking.OrganizerID {
			kind = model.NotificationCreated
		}
		st.notifications = append(st.notifications, s.notification(kind, p.UserID, st.booking))
	}
	return s.writeNotifications(ctx, st.notifications)
}

type updateState struct {
	id            string
	req           *model.UpdateBookingRequest
	start, end    time.Time
	room          *model.Room
	organizer     *model.User
	before        *model.Booking
	booking       *model.Booking
	added         map[string]bool
	removed       []model.Participant
	notifications []*model.Notification
}

func (st *updateState) reset() {
	st.before = nil
	st.booking = nil
	st.added = nil
	st.removed = nil
	st.notifications = nil
}

// Update replaces the booking's room, title and interval. The participant set
// is resolved again only when the request carries team or participant lists.
func (s *bookingService) Update(ctx context.Context, id string, req *model.UpdateBookingRequest) (*model.Booking, error) {
	started := time.Now()
	st := &updateState{id: sanitizer.SanitizeID(id), req: req}

	m := flow.NewMachine("update_booking", s.lockedTx(func() string { return st.room.ID }), s.cfg.Log,
		flow.NewStep(flow.Validating, s.validateUpdate),
		flow.NewTxStep(flow.ConflictChecking, func(ctx context.Context, st *updateState) error {
			return s.guardAndCheck(ctx, st.room.ID, st.start, st.end, st.id)
		}),
		flow.NewTxStep(flow.Updating, s.updateBooking),
		flow.NewTxStep(flow.ExpandingParticipants, s.expandUpdated),
		flow.NewTxStep(flow.NotifyingAndCommitting, s.notifyUpdated),
	)
	m.BeginAttempt = (*updateState).reset
	observe(s, m)

	if err := m.Run(ctx, st); err != nil {
		return nil, s.fail(OperationUpdate, started, err, "id", id)
	}

	s.publish(middleware.RequestIDFromContext(ctx), st.notifications)
	s.observeOutcome(OperationUpdate, metrics.OutcomeCommitted, started)

	s.cfg.Log.Info("Booking updated successfully",
		"id", st.booking.ID,
		"resource_id", st.booking.ResourceID,
		"start_time", st.booking.StartTime,
		"end_time", st.booking.EndTime,
		"participants", len(st.booking.Participants),
		"removed", len(st.removed),
	)
	return st.booking, nil
}

func (s *bookingService) validateUpdate(ctx context.Context, st *updateState) error {
	if st.id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	req := st.req
	req.Title = sanitizer.SanitizeTitle(req.Title)
	req.ResourceID = sanitizer.SanitizeID(req.ResourceID)
	req.ActorID = sanitizer.SanitizeID(req.ActorID)
	if req.TeamIDs != nil {
		ids := sanitizer.NormalizeIDs(*req.TeamIDs)
		req.TeamIDs = &ids
	}
	if req.ParticipantIDs != nil {
		ids := sanitizer.NormalizeIDs(*req.ParticipantIDs)
		req.ParticipantIDs = &ids
	}

	start, end, err := validator.ParseInterval(req.Start, req.End, s.cfg.BookingLocation())
	if err != nil {
		return apperrors.InvalidInterval(err.Error()).WithCause(err)
	}
	if err := s.validator.ValidateUpdate(req); err != nil {
		return validationError(err)
	}

	existing, err := s.findBooking(ctx, st.id)
	if err != nil {
		return err
	}
	if err := requireOrganizer(existing, req.ActorID); err != nil {
		return err
	}
	room, err := s.findRoom(ctx, req.ResourceID)
	if err != nil {
		return err
	}
	organizer, err := s.findUser(ctx, existing.OrganizerID)
	if err != nil {
		return err
	}

	st.start, st.end, st.room, st.organizer = start, end, room, organizer
	return nil
}

func (s *bookingService) updateBooking(ctx context.Context, st *updateState) error {
	before, err := s.findBooking(ctx, st.id)
	if err != nil {
		return err
	}
	previous, err := s.repos.Participants.FindByBooking(ctx, st.id)
	if err != nil {
		return apperrors.Internal("Failed to load participants", err)
	}
	before.Participants = previous

	after := *before
	after.ResourceID = st.room.ID
	after.ResourceName = st.room.Name
	after.Title = st.req.Title
	after.StartTime = st.start
	after.EndTime = st.end
	after.Participants = nil

	if err := s.repos.Bookings.Update(ctx, &after); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", st.id)
		}
		return apperrors.Internal("Failed to update booking", err)
	}

	actor := st.req.ActorID
	if actor == "" {
		actor = before.OrganizerID
	}
	change := &model.BookingChange{
		BookingID: st.id,
		Action:    model.ChangeUpdated,
		ActorID:   actor,
		Before:    before,
		After:     &after,
	}
	if err := s.repos.Changes.Append(ctx, change); err != nil {
		return apperrors.Internal("Failed to record booking change", err)
	}

	st.before = before
	st.booking = &after
	return nil
}

func (s *bookingService) expandUpdated(ctx context.Context, st *updateState) error {
	if !st.req.ReplacesParticipants() {
		st.booking.Participants = st.before.Participants
		return nil
	}

	var teamIDs, userIDs []string
	if st.req.TeamIDs != nil {
		teamIDs = *st.req.TeamIDs
	}
	if st.req.ParticipantIDs != nil {
		userIDs = *st.req.ParticipantIDs
	}

	members, err := s.resolver.Resolve(ctx, st.organizer, teamIDs, userIDs)
	if err != nil {
		return apperrors.Internal("Failed to resolve participants", err)
	}
	if err := s.validator.ValidateParticipantCount(len(members)); err != nil {
		return validationError(err)
	}

	keep := make(map[string]bool, len(members))
	for _, m := range members {
		keep[m.UserID] = true
	}
	var dropped []string
	for _, p := range st.before.Participants {
		if !keep[p.UserID] {
			dropped = append(dropped, p.UserID)
			st.removed = append(st.removed, p)
		}
	}
	if _, err := s.repos.Participants.RemoveUsers(ctx, st.id, dropped); err != nil {
		return apperrors.Internal("Failed to remove participants", err)
	}

	st.added = make(map[string]bool)
	for _, m := range members {
		p := toParticipant(st.id, m)
		inserted, err := s.repos.Participants.Add(ctx, p)
		if err != nil {
			return apperrors.Internal("Failed to add participant", err)
		}
		if inserted {
			st.added[p.UserID] = true
		}
	}

	current, err := s.repos.Participants.FindByBooking(ctx, st.id)
	if err != nil {
		return apperrors.Internal("Failed to load participants", err)
	}
	st.booking.Participants = current
	return nil
}

func (s *bookingService) notifyUpdated(ctx context.Context, st *updateState) error {
	for _, p := range st.booking.Participants {
		kind := model.NotificationUpdated
		if st.added[p.UserID] {
			kind = model.NotificationAdded
		}
		st.notifications = append(st.notifications, s.notification(kind, p.UserID, st.booking))
	}
	for _, p := range st.removed {
		st.notifications = append(st.notifications, s.notification(model.NotificationRemoved, p.UserID, st.booking))
	}
	return s.writeNotifications(ctx, st.notifications)
}

type deleteState struct {
	id            string
	actorID       string
	booking       *model.Booking
	notifications []*model.Notification
}

func (st *deleteState) reset() {
	st.booking = nil
	st.notifications = nil
}

// Delete removes the booking and its participants, records the deletion and
// notifies every former participant.
func (s *bookingService) Delete(ctx context.Context, id string, actorID string) error {
	started := time.Now()
	st := &deleteState{id: sanitizer.SanitizeID(id), actorID: sanitizer.SanitizeID(actorID)}

	m := flow.NewMachine("delete_booking", s.tx, s.cfg.Log,
		flow.NewStep(flow.Validating, func(ctx context.Context, st *deleteState) error {
			if st.id == "" {
				return apperrors.InvalidInput("Booking ID cannot be empty")
			}
			existing, err := s.findBooking(ctx, st.id)
			if err != nil {
				return err
			}
			return requireOrganizer(existing, st.actorID)
		}),
		flow.NewTxStep(flow.Deleting, s.deleteBooking),
		flow.NewTxStep(flow.NotifyingAndCommitting, func(ctx context.Context, st *deleteState) error {
			for _, p := range st.booking.Participants {
				st.notifications = append(st.notifications, s.notification(model.NotificationCancelled, p.UserID, st.booking))
			}
			return s.writeNotifications(ctx, st.notifications)
		}),
	)
	m.BeginAttempt = (*deleteState).reset
	observe(s, m)

	if err := m.Run(ctx, st); err != nil {
		return s.fail(OperationDelete, started, err, "id", id)
	}

	s.publish(middleware.RequestIDFromContext(ctx), st.notifications)
	s.observeOutcome(OperationDelete, metrics.OutcomeCommitted, started)

	s.cfg.Log.Info("Booking deleted successfully", "id", st.id, "participants", len(st.booking.Participants))
	return nil
}

func (s *bookingService) deleteBooking(ctx context.Context, st *deleteState) error {
	booking, err := s.findBooking(ctx, st.id)
	if err != nil {
		return err
	}
	participants, err := s.repos.Participants.FindByBooking(ctx, st.id)
	if err != nil {
		return apperrors.Internal("Failed to load participants", err)
	}
	booking.Participants = participants

	if err := s.repos.Bookings.Delete(ctx, st.id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", st.id)
		}
		return apperrors.Internal("Failed to delete booking", err)
	}
	if _, err := s.repos.Participants.DeleteByBooking(ctx, st.id); err != nil {
		return apperrors.Internal("Failed to delete participants", err)
	}

	actor := st.actorID
	if actor == "" {
		actor = booking.OrganizerID
	}
	change := &model.BookingChange{
		BookingID: st.id,
		Action:    model.ChangeDeleted,
		ActorID:   actor,
		Before:    booking,
	}
	if err := s.repos.Changes.Append(ctx, change); err != nil {
		return apperrors.Internal("Failed to record booking change", err)
	}

	st.booking = booking
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := s.repos.Participants.FindByBooking(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to load participants", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking participants", err)
	}
	booking.Participants = participants

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repos.Bookings.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repos.Bookings.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// SearchByResource lists a room's bookings intersecting the optional window.
func (s *bookingService) SearchByResource(ctx context.Context, resourceID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, int64, error) {
	resourceID = sanitizer.SanitizeID(resourceID)
	if resourceID == "" {
		return nil, 0, apperrors.InvalidInput("resource_id is required")
	}
	if startTime != nil && endTime != nil && !startTime.Before(*endTime) {
		return nil, 0, apperrors.InvalidInterval("start_time must be before end_time")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repos.Bookings.CountByResource(ctx, resourceID, startTime, endTime)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings by resource", "resource_id", resourceID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repos.Bookings.FindByResource(ctx, resourceID, startTime, endTime, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search bookings",
				"resource_id", resourceID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Booking search completed",
		"resource_id", resourceID,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

// UserSchedule lists the bookings a user takes part in, organizer or not.
func (s *bookingService) UserSchedule(ctx context.Context, userID string, startTime, endTime *time.Time) ([]*model.Booking, error) {
	userID = sanitizer.SanitizeID(userID)
	if userID == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}
	if startTime != nil && endTime != nil && !startTime.Before(*endTime) {
		return nil, apperrors.InvalidInterval("start_time must be before end_time")
	}

	ids, err := s.repos.Participants.FindBookingIDsByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to find user bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedule", err)
	}

	bookings, err := s.repos.Bookings.FindByIDs(ctx, ids, startTime, endTime)
	if err != nil {
		s.cfg.Log.Error("Failed to load user bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedule", err)
	}
	return bookings, nil
}

// --- Helpers ---

func (s *bookingService) guardAndCheck(ctx context.Context, resourceID string, start, end time.Time, excludeID string) error {
	guard, err := s.repos.Guard.Guard(ctx, resourceID)
	if err != nil {
		return apperrors.Internal("Failed to guard resource", err)
	}
	s.cfg.Log.Debug("Resource guarded", "resource_id", resourceID, "version", guard.Version)

	return s.conflicts.Check(ctx, resourceID, start, end, excludeID)
}

// resolveAndAdd writes the resolved participant set and returns it as stored.
func (s *bookingService) resolveAndAdd(ctx context.Context, bookingID string, organizer *model.User, teamIDs, userIDs []string) ([]model.Participant, error) {
	members, err := s.resolver.Resolve(ctx, organizer, teamIDs, userIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to resolve participants", err)
	}
	if err := s.validator.ValidateParticipantCount(len(members)); err != nil {
		return nil, validationError(err)
	}

	participants := make([]model.Participant, 0, len(members))
	for _, m := range members {
		p := toParticipant(bookingID, m)
		if _, err := s.repos.Participants.Add(ctx, p); err != nil {
			return nil, apperrors.Internal("Failed to add participant", err)
		}
		participants = append(participants, *p)
	}
	return participants, nil
}

func (s *bookingService) writeNotifications(ctx context.Context, ns []*model.Notification) error {
	if err := s.repos.Notifications.CreateMany(ctx, ns); err != nil {
		return apperrors.Internal("Failed to write notifications", err)
	}
	return nil
}

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repos.Bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) findRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repos.Rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrRoomNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}
	return room, nil
}

func (s *bookingService) findUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repos.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

// lockedTx wraps the transaction in the resource lock. key is read once the
// Validating stage has resolved the room.
func (s *bookingService) lockedTx(key func() string) mongotx.TransactionManager {
	return txFunc(func(ctx context.Context, fn mongotx.TransactionFunc) error {
		requested := time.Now()
		return s.locker.WithLock(ctx, lock.ResourceKey(key()), func(ctx context.Context) error {
			if s.metrics != nil {
				s.metrics.LockWait.Observe(time.Since(requested).Seconds())
			}
			return s.tx.ExecuteTransaction(ctx, fn)
		})
	})
}

type txFunc func(ctx context.Context, fn mongotx.TransactionFunc) error

func (f txFunc) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return f(ctx, fn)
}

func observe[S any](s *bookingService, m *flow.Machine[S]) {
	name := m.Name()
	m.OnStage = func(stage flow.Stage) {
		s.cfg.Log.Debug("Booking flow transition", "flow", name, "stage", string(stage))
		if s.onStage != nil {
			s.onStage(name, stage)
		}
	}
}

// fail converts a flow error into the AppError returned to callers and
// records the outcome.
func (s *bookingService) fail(operation string, started time.Time, err error, attrs ...any) error {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		appErr = apperrors.Unavailable("Booking lock").WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr = apperrors.Timeout("Booking request ended before it was committed").WithCause(err)
	default:
		appErr = apperrors.AsAppError(err)
	}

	stage := ""
	var stageErr *flow.StageError
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}

	outcome := outcomeOf(appErr)
	s.observeOutcome(operation, outcome, started)

	attrs = append(attrs, "operation", operation, "stage", stage, "code", appErr.Code, "error", err)
	if outcome == metrics.OutcomeError {
		s.cfg.Log.Error("Booking operation failed", attrs...)
	} else {
		s.cfg.Log.Warn("Booking operation rejected", attrs...)
	}
	return appErr
}

func (s *bookingService) observeOutcome(operation, outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(operation, outcome, started)
	}
}

func outcomeOf(err *apperrors.AppError) string {
	switch err.Code {
	case apperrors.CodeConflict:
		return metrics.OutcomeConflict
	case apperrors.CodeInvalidInterval:
		return metrics.OutcomeInvalidInterval
	case apperrors.CodeNotFound:
		return metrics.OutcomeNotFound
	case apperrors.CodeValidation, apperrors.CodeInvalidInput:
		return metrics.OutcomeInvalid
	case apperrors.CodeForbidden:
		return metrics.OutcomeForbidden
	default:
		return metrics.OutcomeError
	}
}

// requireOrganizer allows changes by the organizer only. An empty actor comes
// from callers without authentication and is not checked.
func requireOrganizer(b *model.Booking, actorID string) error {
	if actorID == "" || actorID == b.OrganizerID {
		return nil
	}
	return apperrors.Forbidden("Only the organizer can change this booking")
}

func validationError(err error) *apperrors.AppError {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return apperrors.Validation("Booking validation failed", map[string]any{"errors": errs}).WithCause(err)
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()}).WithCause(err)
}
