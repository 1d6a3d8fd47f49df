//go:build integration

package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"roomly/internal/bookings/handler"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/service"
	"roomly/internal/bookings/validator"
	directory "roomly/internal/directory/repository"
	migrations "roomly/internal/migrations/mongo"
	notifications "roomly/internal/notifications/repository"
	"roomly/pkg/app"
	"roomly/pkg/client"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/metrics"
	"roomly/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var mongoClient *mongo.Client

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		panic(err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		panic(err)
	}
	mongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(uri).SetDirect(true))
	if err != nil {
		panic(err)
	}

	code := m.Run()

	_ = mongoClient.Disconnect(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

type world struct {
	cfg       *config.Config
	db        *mongo.Database
	repos     service.Repositories
	rooms     map[string]string
	users     map[string]string
	teams     map[string]string
}

// newWorld migrates a fresh database and seeds two rooms, four users over
// branches X and Y, and teams G1 = {alice, bob}, G2 = {carol, alice}.
func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		ServiceName:                "bookings",
		MongoDatabaseName:          "roomly_" + primitive.NewObjectID().Hex(),
		ReadTimeout:                5 * time.Second,
		WriteTimeout:               5 * time.Second,
		NotificationPublishTimeout: time.Second,
		Port:                       config.DefaultPort,
		RateLimitRequests:          1000,
		RateLimitWindow:            time.Minute,
		RequestTimeout:             10 * time.Second,
		IdempotencyTTL:             time.Minute,
		MaxRequestSize:             config.DefaultMaxRequestSize,
		MaxParticipants:            50,
		MaxTitleLength:             200,
		Log:                        logger.Discard(),
		Client:                     &client.Client{Mongo: mongoClient},
	}
	db := mongoClient.Database(cfg.MongoDatabaseName)
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	require.NoError(t, migrations.RunMigration(ctx, db, cfg.Log))

	w := &world{
		cfg:   cfg,
		db:    db,
		rooms: map[string]string{},
		users: map[string]string{},
		teams: map[string]string{},
	}

	insert := func(collection string, doc bson.M) string {
		id := primitive.NewObjectID()
		doc["_id"] = id
		_, err := db.Collection(collection).InsertOne(ctx, doc)
		require.NoError(t, err)
		return id.Hex()
	}

	w.rooms["R1"] = insert(directory.RoomCollectionName, bson.M{"name": "Everest", "capacity": 8, "branch": "X"})
	w.rooms["R2"] = insert(directory.RoomCollectionName, bson.M{"name": "Kilimanjaro", "capacity": 4, "branch": "X"})
	for name, branch := range map[string]string{"olivia": "X", "alice": "X", "bob": "Y", "carol": "X"} {
		w.users[name] = insert(directory.UserCollectionName, bson.M{"name": name, "branch": branch})
	}
	w.teams["G1"] = insert(directory.TeamCollectionName, bson.M{"name": "G1", "branch": "X"})
	w.teams["G2"] = insert(directory.TeamCollectionName, bson.M{"name": "G2", "branch": "X"})
	for _, m := range []struct{ team, user string }{{"G1", "alice"}, {"G1", "bob"}, {"G2", "carol"}, {"G2", "alice"}} {
		insert(directory.TeamMemberCollectionName, bson.M{"team_id": w.teams[m.team], "user_id": w.users[m.user]})
	}

	w.repos = service.Repositories{
		Bookings:      repository.NewMongoBookingRepository(cfg),
		Participants:  repository.NewParticipantRepository(cfg),
		Changes:       repository.NewChangeRepository(cfg),
		Guard:         repository.NewGuardRepository(cfg),
		Notifications: notifications.NewMongoNotificationRepository(cfg),
		Rooms:         directory.NewRoomRepository(cfg),
		Users:         directory.NewUserRepository(cfg),
		Teams:         directory.NewTeamRepository(cfg),
	}
	return w
}

func (w *world) service(maxParticipants int) service.BookingService {
	v := validator.NewBookingValidator(validator.Limits{MaxTitleLength: 200, MaxParticipants: maxParticipants}, w.cfg.Log)
	return service.NewBookingService(w.repos, mongotx.NewTransactionManager(mongoClient), v, w.cfg, service.WithMetrics(metrics.New()))
}

func (w *world) request(room, start, end string, teams ...string) *model.CreateBookingRequest {
	req := &model.CreateBookingRequest{
		ResourceID:  w.rooms[room],
		Title:       "Planning",
		OrganizerID: w.users["olivia"],
		Start:       "2025-03-10T" + start,
		End:         "2025-03-10T" + end,
	}
	for _, team := range teams {
		req.TeamIDs = append(req.TeamIDs, w.teams[team])
	}
	return req
}

func (w *world) count(t *testing.T, collection string, filter bson.M) int64 {
	t.Helper()
	n, err := w.db.Collection(collection).CountDocuments(context.Background(), filter)
	require.NoError(t, err)
	return n
}

func TestIntegration_ConflictsUseHalfOpenIntervals(t *testing.T) {
	w := newWorld(t)
	svc := w.service(50)
	ctx := context.Background()

	first, err := svc.Create(ctx, w.request("R1", "09:00", "10:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, w.request("R1", "09:30", "10:30"))
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
	assert.Equal(t, first.ID, apperrors.AsAppError(err).Details["conflicting_booking"].(*model.Booking).ID)

	_, err = svc.Create(ctx, w.request("R1", "10:00", "11:00"))
	require.NoError(t, err, "touching intervals do not conflict")

	_, err = svc.Create(ctx, w.request("R2", "09:00", "10:00"))
	require.NoError(t, err, "another room is independent")

	assert.Equal(t, int64(2), w.count(t, repository.CollectionName, bson.M{"resource_id": w.rooms["R1"]}))
}

func TestIntegration_TeamsExpandWithinOrganizerBranch(t *testing.T) {
	w := newWorld(t)
	svc := w.service(50)

	booking, err := svc.Create(context.Background(), w.request("R1", "09:00", "10:00", "G1", "G2"))
	require.NoError(t, err)

	got := map[string]string{}
	for _, p := range booking.Participants {
		team := ""
		if p.TeamID != nil {
			team = *p.TeamID
		}
		got[p.UserID] = team
	}
	assert.Equal(t, map[string]string{
		w.users["alice"]:  w.teams["G1"],
		w.users["carol"]:  w.teams["G2"],
		w.users["olivia"]: "",
	}, got)
	assert.NotContains(t, got, w.users["bob"], "bob is in branch Y")

	assert.Equal(t, int64(3), w.count(t, notifications.CollectionName, bson.M{"booking_id": booking.ID}))
}

func TestIntegration_FailedExpansionRollsBackInsert(t *testing.T) {
	w := newWorld(t)
	svc := w.service(2)

	_, err := svc.Create(context.Background(), w.request("R2", "09:00", "10:00", "G1", "G2"))
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)

	assert.Zero(t, w.count(t, repository.CollectionName, bson.M{}))
	assert.Zero(t, w.count(t, repository.ParticipantCollectionName, bson.M{}))
	assert.Zero(t, w.count(t, notifications.CollectionName, bson.M{}))
}

func TestIntegration_ConcurrentCreatesAdmitOne(t *testing.T) {
	w := newWorld(t)
	svc := w.service(50)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), w.request("R1", "14:00", "15:00"))
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)
	assert.Equal(t, int64(1), w.count(t, repository.CollectionName, bson.M{"resource_id": w.rooms["R1"]}))
}

func TestIntegration_UpdateAndDelete(t *testing.T) {
	w := newWorld(t)
	svc := w.service(50)
	ctx := context.Background()

	booking, err := svc.Create(ctx, w.request("R1", "09:00", "10:00", "G1"))
	require.NoError(t, err)
	blocker, err := svc.Create(ctx, w.request("R2", "11:00", "12:00"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, booking.ID, &model.UpdateBookingRequest{
		ResourceID: w.rooms["R2"], Title: "Planning", Start: "2025-03-10T11:30", End: "2025-03-10T12:30",
	})
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	empty := []string{}
	updated, err := svc.Update(ctx, booking.ID, &model.UpdateBookingRequest{
		ResourceID: w.rooms["R2"], Title: "Planning v2", Start: "2025-03-10T12:00", End: "2025-03-10T13:00",
		TeamIDs: &empty,
	})
	require.NoError(t, err)
	assert.Equal(t, w.rooms["R2"], updated.ResourceID)
	assert.Equal(t, "Kilimanjaro", updated.ResourceName)
	require.Len(t, updated.Participants, 1, "replacing with no teams keeps only the organizer")

	assert.Equal(t, int64(1), w.count(t, repository.ChangeCollectionName, bson.M{"booking_id": booking.ID, "action": model.ChangeUpdated}))
	assert.Equal(t, int64(1), w.count(t, notifications.CollectionName, bson.M{"booking_id": booking.ID, "kind": model.NotificationRemoved}))

	require.NoError(t, svc.Delete(ctx, blocker.ID, ""))
	assert.Zero(t, w.count(t, repository.ParticipantCollectionName, bson.M{"booking_id": blocker.ID}))
	assert.Equal(t, int64(1), w.count(t, repository.ChangeCollectionName, bson.M{"booking_id": blocker.ID, "action": model.ChangeDeleted}))

	_, err = svc.GetByID(ctx, blocker.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestIntegration_HTTPRoundTrip(t *testing.T) {
	w := newWorld(t)
	svc := w.service(50)

	a := app.NewApplication(w.cfg, metrics.New())
	a.SetApp(handler.NewBookingHandler(svc, w.cfg.Log))
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	c := client.NewBookingClient(srv.URL)
	ctx := context.Background()

	resp, err := c.Create(ctx, w.request("R1", "09:00", "10:00"))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, client.GetErrorMessage(resp))
	created, err := c.DecodeBooking(resp)
	require.NoError(t, err)

	resp, err = c.Create(ctx, w.request("R1", "09:59", "10:30"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = c.Search(ctx, w.rooms["R1"], "2025-03-10T00:00:00Z", "2025-03-11T00:00:00Z", 10, 0)
	require.NoError(t, err)
	bookings, meta, err := c.DecodeBookings(resp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.TotalCount)
	require.Len(t, bookings, 1)
	assert.Equal(t, created.ID, bookings[0].ID)
}
