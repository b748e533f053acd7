package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/testutil"
)

var (
	keyCoffee = domain.ItemKey{ProductID: "p-coffee"}
	keyMugRed = domain.ItemKey{ProductID: "p-mug", VariantID: "red"}
	keyTea    = domain.ItemKey{ProductID: "p-tea"}
)

// newTestBackend returns a backend over an in-memory database seeded with
// the default store and three catalog lines. Tea starts with 5 on hand.
func newTestBackend(t *testing.T, observers ...UseCaseObserver) (*LocalBackend, *sql.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	testutil.SeedCatalog(t, database, testutil.DefaultStore,
		[]*domain.Product{
			testutil.NewTestProduct(keyCoffee.ProductID, "Coffee Beans", testutil.WithUnitCost("2.50")),
			testutil.NewTestProduct(keyMugRed.ProductID, "Mug", testutil.WithVariant("red", "Red")),
			testutil.NewTestProduct(keyTea.ProductID, "Green Tea", testutil.WithUnitCost("1.25")),
		},
		map[domain.ItemKey]int{keyTea: 5},
	)
	backend := NewLocalBackend(database, testutil.NewTestUoW(database), BackendOptions{}, observers...)
	return backend, database
}

func createSession(t *testing.T, b *LocalBackend, opts ...func(*app.CreateSessionRequest)) *domain.Session {
	t.Helper()
	req := app.CreateSessionRequest{
		CompanyID: "company-1",
		StoreID:   "store-1",
		UserID:    "user-1",
		Type:      domain.SessionReceiving,
	}
	for _, opt := range opts {
		opt(&req)
	}
	sess, err := b.CreateSession(context.Background(), req)
	require.NoError(t, err)
	return sess
}

func withShipment(id string) func(*app.CreateSessionRequest) {
	return func(r *app.CreateSessionRequest) { r.ShipmentID = &id }
}

func withType(st domain.SessionType) func(*app.CreateSessionRequest) {
	return func(r *app.CreateSessionRequest) { r.Type = st }
}

func addItems(t *testing.T, b *LocalBackend, sessionID, userID string, items ...domain.ItemInput) {
	t.Helper()
	require.NoError(t, b.AddItems(context.Background(), sessionID, userID, items))
}

func in(key domain.ItemKey, qty, rejected int) domain.ItemInput {
	return domain.ItemInput{ProductID: key.ProductID, VariantID: key.VariantID, Quantity: qty, QuantityRejected: rejected}
}

type recordingObserver struct {
	events []UseCaseEvent
}

func (r *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	r.events = append(r.events, e)
}

func TestCreateSession_DefaultsAndCreatorMembership(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	sess := createSession(t, b, withShipment("ship-1"))
	assert.True(t, sess.IsActive)
	assert.False(t, sess.IsFinal)
	assert.Contains(t, sess.Name, "receiving ")
	assert.Equal(t, 1, sess.MemberCount)

	fetched, err := b.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Name, fetched.Name)
	assert.Equal(t, 1, fetched.MemberCount)
	require.NotNil(t, fetched.ShipmentID)
	assert.Equal(t, "ship-1", *fetched.ShipmentID)
}

func TestCreateSession_Failures(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := b.CreateSession(ctx, app.CreateSessionRequest{StoreID: "store-1", UserID: "u", Type: "audit"})
	assert.True(t, domain.IsCode(err, domain.CodeCreateFailed))

	_, err = b.CreateSession(ctx, app.CreateSessionRequest{StoreID: "nope", UserID: "u", Type: domain.SessionCounting})
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))

	_, err = b.CreateSession(ctx, app.CreateSessionRequest{CompanyID: "other", StoreID: "store-1", UserID: "u", Type: domain.SessionCounting})
	assert.True(t, domain.IsCode(err, domain.CodeCreateFailed))
}

func TestJoinSession(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	res, err := b.JoinSession(ctx, sess.ID, "user-2")
	require.NoError(t, err)
	assert.False(t, res.AlreadyJoined)
	assert.Equal(t, "user-1", res.CreatedBy)
	assert.NotEmpty(t, res.MemberID)

	again, err := b.JoinSession(ctx, sess.ID, "user-2")
	require.NoError(t, err)
	assert.True(t, again.AlreadyJoined)
	assert.Equal(t, res.MemberID, again.MemberID)

	_, err = b.JoinSession(ctx, "missing", "user-2")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestJoinSession_FinalizedSessionRejectsNewMembers(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)
	addItems(t, b, sess.ID, "user-1", in(keyCoffee, 1, 0))
	_, err := b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyCoffee, 1, 0)}, IsFinal: true})
	require.NoError(t, err)

	_, err = b.JoinSession(ctx, sess.ID, "user-3")
	assert.True(t, domain.IsCode(err, domain.CodeSessionFinal))
}

func TestAddItems_AdditiveAcrossMembers(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	addItems(t, b, sess.ID, "user-1", in(keyCoffee, 5, 0))
	addItems(t, b, sess.ID, "user-2", in(keyCoffee, 3, 1), in(keyMugRed, 2, 0))
	addItems(t, b, sess.ID, "user-1", in(keyCoffee, 1, 0))

	res, err := b.GetItems(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	coffee := res.Items[0]
	assert.Equal(t, keyCoffee, coffee.Key)
	assert.Equal(t, "Coffee Beans", coffee.ProductName)
	assert.Equal(t, 9, coffee.TotalQuantity)
	assert.Equal(t, 1, coffee.TotalRejected)
	require.Len(t, coffee.Contributions, 2)
	assert.Equal(t, "user-1", coffee.Contributions[0].UserID)
	assert.Equal(t, 6, coffee.Contributions[0].Quantity)

	assert.Equal(t, "Mug - Red", res.Items[1].DisplayName())
	assert.Equal(t, domain.Totals{TotalProducts: 2, TotalQuantity: 11, TotalRejected: 1, TotalParticipants: 2}, res.Summary)
	require.Len(t, res.Participants, 2)
	assert.Equal(t, "user-2", res.Participants[1].UserID)
	assert.Equal(t, 2, res.Participants[1].ProductCount)

	// user-2 was joined by their first add.
	fetched, err := b.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.MemberCount)
}

func TestAddItems_ValidationNeverTouchesStore(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	err := b.AddItems(ctx, sess.ID, "user-1", nil)
	assert.True(t, domain.IsCode(err, domain.CodeEmptyBatch))

	err = b.AddItems(ctx, sess.ID, "user-1", []domain.ItemInput{in(keyCoffee, 1, 0), in(keyTea, 2, 3)})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidItem))
	assert.Contains(t, err.Error(), "Item 2: Rejected quantity cannot exceed total quantity")

	res, err := b.GetItems(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestAddItems_UnknownProductRollsBackWholeBatch(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	err := b.AddItems(ctx, sess.ID, "user-1", []domain.ItemInput{in(keyCoffee, 1, 0), testutil.Item("ghost", 1, 0)})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeSaveFailed))
	assert.Contains(t, err.Error(), "unknown product ghost")

	res, err := b.GetItems(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, res.Items, "the valid first line must not survive the failed batch")
}

func TestAddItems_InactiveSession(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	target := createSession(t, b)
	source := createSession(t, b)
	_, err := b.MergeSessions(ctx, target.ID, source.ID, "user-1")
	require.NoError(t, err)

	err = b.AddItems(ctx, source.ID, "user-1", []domain.ItemInput{in(keyCoffee, 1, 0)})
	assert.True(t, domain.IsCode(err, domain.CodeSessionInactive))
}

func TestGetItems_UnknownSession(t *testing.T) {
	b, _ := newTestBackend(t)
	_, err := b.GetItems(context.Background(), "missing", "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestListSessions_Filters(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	a := createSession(t, b, withShipment("ship-1"))
	createSession(t, b, withShipment("ship-2"))
	createSession(t, b, withType(domain.SessionCounting))

	ship := "ship-1"
	got, err := b.ListSessions(ctx, app.SessionFilter{StoreID: "store-1", ShipmentID: &ship, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	counting, err := b.ListSessions(ctx, app.SessionFilter{Type: domain.SessionCounting})
	require.NoError(t, err)
	assert.Len(t, counting, 1)
}

func TestSearchProducts(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := b.SearchProducts(ctx, "store-1", "t", 10)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidItem))
	assert.Contains(t, err.Error(), "at least 2 character(s)")

	found, err := b.SearchProducts(ctx, "store-1", "tea", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 5, found[0].OnHand)

	_, err = b.SearchProducts(ctx, "missing", "tea", 10)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestObserver_ReceivesUseCaseEvents(t *testing.T) {
	obs := &recordingObserver{}
	b, _ := newTestBackend(t, obs)
	ctx := context.Background()

	sess := createSession(t, b)
	err := b.AddItems(ctx, sess.ID, "user-1", nil)
	require.Error(t, err)

	require.Len(t, obs.events, 2)
	assert.Equal(t, "create-session", obs.events[0].Name)
	assert.True(t, obs.events[0].Success)
	assert.Equal(t, sess.ID, obs.events[0].Fields["session_id"])
	assert.Equal(t, "add-items", obs.events[1].Name)
	assert.False(t, obs.events[1].Success)
	assert.True(t, domain.IsCode(obs.events[1].Err, domain.CodeEmptyBatch))
}
