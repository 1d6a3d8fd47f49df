package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/repository"
	directory "roomly/internal/directory/repository"
	notifications "roomly/internal/notifications/repository"
	mongotx "roomly/pkg/db/mongo"
	"roomly/pkg/kafka"
	"roomly/pkg/model"
)

var errInjected = errors.New("injected failure")

func oid(n int) string {
	return fmt.Sprintf("%024x", n)
}

// store is an in-memory stand-in for the booking collections. Transactions
// run one at a time and restore a snapshot when the callback fails.
type store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq           int
	bookings      map[string]model.Booking
	participants  []model.Participant
	changes       []model.BookingChange
	notifications []model.Notification
	guards        map[string]int64

	rooms   map[string]*model.Room
	users   map[string]*model.User
	members []model.TeamMember

	// failures maps an operation name to the call number that should fail.
	failures map[string]int
	calls    map[string]int
	txCalls  int

	// trace records guard and overlap calls in order; rollbacks keep it.
	trace []string
}

func newStore() *store {
	return &store{
		seq:      1000,
		bookings: map[string]model.Booking{},
		guards:   map[string]int64{},
		rooms:    map[string]*model.Room{},
		users:    map[string]*model.User{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
}

type snapshot struct {
	seq           int
	bookings      map[string]model.Booking
	participants  []model.Participant
	changes       []model.BookingChange
	notifications []model.Notification
	guards        map[string]int64
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := make(map[string]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}
	guards := make(map[string]int64, len(s.guards))
	for k, v := range s.guards {
		guards[k] = v
	}
	return snapshot{
		seq:           s.seq,
		bookings:      bookings,
		participants:  slices.Clone(s.participants),
		changes:       slices.Clone(s.changes),
		notifications: slices.Clone(s.notifications),
		guards:        guards,
	}
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = snap.seq
	s.bookings = snap.bookings
	s.participants = snap.participants
	s.changes = snap.changes
	s.notifications = snap.notifications
	s.guards = snap.guards
}

func (s *store) record(ctx context.Context, event string) {
	if ctx.Value(txMarker{}) == nil {
		event += " (no tx)"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, event)
}

func (s *store) traced() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trace)
}

func (s *store) resetTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = nil
}

func (s *store) failOn(op string, call int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = call
}

// hit counts a call and reports whether it should fail. Callers hold mu.
func (s *store) hit(op string) error {
	s.calls[op]++
	if n, ok := s.failures[op]; ok && n == s.calls[op] {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (s *store) nextID() string {
	s.seq++
	return oid(s.seq)
}

func (s *store) addRoom(id, name, branch string) {
	s.rooms[id] = &model.Room{ID: id, Name: name, Capacity: 8, Branch: branch}
}

func (s *store) addUser(id, name, branch string) {
	s.users[id] = &model.User{ID: id, Name: name, Email: name + "@example.com", Branch: branch}
}

func (s *store) addMember(teamID, userID string) {
	s.members = append(s.members, model.TeamMember{TeamID: teamID, UserID: userID})
}

func (s *store) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *store) participantsOf(bookingID string) []model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participant
	for _, p := range s.participants {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out
}

func (s *store) notificationsOf(bookingID string) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.BookingID == bookingID {
			out = append(out, n)
		}
	}
	return out
}

func (s *store) repositories() Repositories {
	return Repositories{
		Bookings:      &fakeBookings{s},
		Participants:  &fakeParticipants{s},
		Changes:       &fakeChanges{s},
		Guard:         &fakeGuard{s},
		Notifications: &fakeNotifications{s},
		Rooms:         &fakeRooms{s},
		Users:         &fakeUsers{s},
		Teams:         &fakeTeams{s},
	}
}

type txMarker struct{}

func (s *store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.txCalls++

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type fakeBookings struct{ s *store }

func (f *fakeBookings) Create(ctx context.Context, b *model.Booking) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("bookings.create"); err != nil {
		return err
	}
	b.ID = f.s.nextID()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	stored := *b
	stored.Participants = nil
	f.s.bookings[b.ID] = stored
	return nil
}

func (f *fakeBookings) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (f *fakeBookings) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	all := f.sorted(func(model.Booking) bool { return true })
	return page(all, limit, offset), nil
}

func (f *fakeBookings) Count(ctx context.Context) (int64, error) {
	return int64(f.s.bookingCount()), nil
}

func (f *fakeBookings) Update(ctx context.Context, b *model.Booking) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("bookings.update"); err != nil {
		return err
	}
	if _, ok := f.s.bookings[b.ID]; !ok {
		return bookingserrors.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	stored := *b
	stored.Participants = nil
	f.s.bookings[b.ID] = stored
	return nil
}

func (f *fakeBookings) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(f.s.bookings, id)
	return nil
}

func (f *fakeBookings) FindOverlapping(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
	f.s.record(ctx, "overlap:"+resourceID)
	return f.sorted(func(b model.Booking) bool {
		return b.ResourceID == resourceID && b.ID != excludeID && b.StartTime.Before(end) && b.EndTime.After(start)
	}), nil
}

func (f *fakeBookings) FindByResource(ctx context.Context, resourceID string, start, end *time.Time, limit int, offset int64) ([]*model.Booking, error) {
	return page(f.sorted(inWindow(func(b model.Booking) bool { return b.ResourceID == resourceID }, start, end)), limit, offset), nil
}

func (f *fakeBookings) CountByResource(ctx context.Context, resourceID string, start, end *time.Time) (int64, error) {
	return int64(len(f.sorted(inWindow(func(b model.Booking) bool { return b.ResourceID == resourceID }, start, end)))), nil
}

func (f *fakeBookings) FindByIDs(ctx context.Context, ids []string, start, end *time.Time) ([]*model.Booking, error) {
	return f.sorted(inWindow(func(b model.Booking) bool { return slices.Contains(ids, b.ID) }, start, end)), nil
}

func (f *fakeBookings) sorted(keep func(model.Booking) bool) []*model.Booking {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range f.s.bookings {
		if keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func inWindow(keep func(model.Booking) bool, start, end *time.Time) func(model.Booking) bool {
	return func(b model.Booking) bool {
		if !keep(b) {
			return false
		}
		if end != nil && !b.StartTime.Before(*end) {
			return false
		}
		if start != nil && !b.EndTime.After(*start) {
			return false
		}
		return true
	}
}

func page(all []*model.Booking, limit int, offset int64) []*model.Booking {
	if offset >= int64(len(all)) {
		return []*model.Booking{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

type fakeParticipants struct{ s *store }

func (f *fakeParticipants) Add(ctx context.Context, p *model.Participant) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("participants.add"); err != nil {
		return false, err
	}
	for _, existing := range f.s.participants {
		if existing.BookingID == p.BookingID && existing.UserID == p.UserID {
			return false, nil
		}
	}
	p.ID = f.s.nextID()
	p.CreatedAt = time.Now().UTC()
	f.s.participants = append(f.s.participants, *p)
	return true, nil
}

func (f *fakeParticipants) FindByBooking(ctx context.Context, bookingID string) ([]model.Participant, error) {
	out := f.s.participantsOf(bookingID)
	if out == nil {
		out = []model.Participant{}
	}
	return out, nil
}

func (f *fakeParticipants) FindBookingIDsByUser(ctx context.Context, userID string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var ids []string
	for _, p := range f.s.participants {
		if p.UserID == userID && !slices.Contains(ids, p.BookingID) {
			ids = append(ids, p.BookingID)
		}
	}
	return ids, nil
}

func (f *fakeParticipants) RemoveUsers(ctx context.Context, bookingID string, userIDs []string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	kept := f.s.participants[:0:0]
	for _, p := range f.s.participants {
		if p.BookingID == bookingID && slices.Contains(userIDs, p.UserID) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	f.s.participants = kept
	return n, nil
}

func (f *fakeParticipants) DeleteByBooking(ctx context.Context, bookingID string) (int64, error) {
	f.s.mu.Lock()
	var users []string
	for _, p := range f.s.participants {
		if p.BookingID == bookingID {
			users = append(users, p.UserID)
		}
	}
	f.s.mu.Unlock()
	return f.RemoveUsers(ctx, bookingID, users)
}

type fakeChanges struct{ s *store }

func (f *fakeChanges) Append(ctx context.Context, c *model.BookingChange) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c.ID = f.s.nextID()
	c.CreatedAt = time.Now().UTC()
	f.s.changes = append(f.s.changes, *c)
	return nil
}

func (f *fakeChanges) FindByBooking(ctx context.Context, bookingID string) ([]model.BookingChange, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []model.BookingChange
	for _, c := range f.s.changes {
		if c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeGuard struct{ s *store }

func (f *fakeGuard) Guard(ctx context.Context, resourceID string) (*model.ResourceGuard, error) {
	if ctx.Value(txMarker{}) == nil {
		return nil, errors.New("guard outside transaction")
	}
	f.s.record(ctx, "guard:"+resourceID)
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("guard"); err != nil {
		return nil, err
	}
	f.s.guards[resourceID]++
	return &model.ResourceGuard{ResourceID: resourceID, Version: f.s.guards[resourceID]}, nil
}

type fakeNotifications struct{ s *store }

func (f *fakeNotifications) CreateMany(ctx context.Context, ns []*model.Notification) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("notifications.create"); err != nil {
		return err
	}
	for _, n := range ns {
		n.ID = f.s.nextID()
		n.CreatedAt = time.Now().UTC()
		f.s.notifications = append(f.s.notifications, *n)
	}
	return nil
}

func (f *fakeNotifications) FindByUser(ctx context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, error) {
	return nil, errors.New("not used")
}

func (f *fakeNotifications) CountByUser(ctx context.Context, userID string, unreadOnly bool) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakeNotifications) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	return errors.New("not used")
}

func (f *fakeNotifications) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return errors.New("not used")
}

type fakeRooms struct{ s *store }

func (f *fakeRooms) FindByID(ctx context.Context, id string) (*model.Room, error) {
	room, ok := f.s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", directory.ErrRoomNotFound, id)
	}
	copied := *room
	return &copied, nil
}

type fakeUsers struct{ s *store }

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := f.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", directory.ErrUserNotFound, id)
	}
	copied := *user
	return &copied, nil
}

type fakeTeams struct{ s *store }

func (f *fakeTeams) FindMembersInBranch(ctx context.Context, teamIDs []string, branch string) ([]model.Member, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("teams.members"); err != nil {
		return nil, err
	}
	out := []model.Member{}
	for _, teamID := range teamIDs {
		for _, m := range f.s.members {
			if m.TeamID != teamID {
				continue
			}
			if u, ok := f.s.users[m.UserID]; ok && u.Branch == branch {
				out = append(out, model.Member{UserID: m.UserID, TeamID: m.TeamID})
			}
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) published() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.messages)
}

var (
	_ repository.BookingRepository         = (*fakeBookings)(nil)
	_ repository.ParticipantRepository     = (*fakeParticipants)(nil)
	_ repository.ChangeRepository          = (*fakeChanges)(nil)
	_ repository.GuardRepository           = (*fakeGuard)(nil)
	_ notifications.NotificationRepository = (*fakeNotifications)(nil)
	_ directory.TeamRepository             = (*fakeTeams)(nil)
	_ mongotx.TransactionManager           = (*store)(nil)
	_ kafka.Publisher                      = (*fakePublisher)(nil)
)
