package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/testutil"
)

var numberPattern = regexp.MustCompile(`^(RCV|CNT)-\d{8}-[0-9A-F]{6}$`)

func TestSubmitSession_PartialReceivingFlagsNeedsDisplay(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)
	addItems(t, b, sess.ID, "user-1", in(keyCoffee, 4, 0), in(keyTea, 3, 1))

	res, err := b.SubmitSession(ctx, app.SubmitRequest{
		SessionID: sess.ID,
		UserID:    "user-1",
		Items:     []domain.ItemInput{in(keyCoffee, 4, 0), in(keyTea, 3, 1)},
		IsFinal:   false,
	})
	require.NoError(t, err)
	assert.Regexp(t, numberPattern, res.ReceivingNumber)
	assert.Equal(t, "RCV", res.ReceivingNumber[:3])
	assert.Equal(t, 2, res.ItemsCount)
	assert.Equal(t, 7, res.TotalQuantity)
	assert.Equal(t, 1, res.TotalRejected)
	// 4 x 2.50 + 2 x 1.25
	assert.True(t, decimal.RequireFromString("12.5").Equal(res.TotalCost), "got %s", res.TotalCost)

	require.Len(t, res.StockChanges, 2)
	coffee := res.StockChanges[0]
	assert.Equal(t, domain.StockSnapshot{
		Key: keyCoffee, ProductName: "Coffee Beans", SKU: "SKU-p-coffee",
		QuantityBefore: 0, QuantityReceived: 4, QuantityAfter: 4,
	}, coffee)
	tea := res.StockChanges[1]
	assert.Equal(t, 5, tea.QuantityBefore)
	assert.Equal(t, 2, tea.QuantityReceived)
	assert.Equal(t, 7, tea.QuantityAfter)

	flagged := res.NeedsDisplay()
	require.Len(t, flagged, 1)
	assert.Equal(t, keyCoffee, flagged[0].Key)

	// A partial submission closes the round but keeps the session open.
	sessNow, err := b.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, sessNow.IsActive)
	assert.False(t, sessNow.IsFinal)

	items, err := b.GetItems(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, items.Items, "submitted contributions leave the open round")

	found, err := b.SearchProducts(ctx, "store-1", "coffee", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 4, found[0].OnHand)
}

func TestSubmitSession_SecondRoundDoesNotDoubleCount(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	addItems(t, b, sess.ID, "user-1", in(keyCoffee, 4, 0))
	first, err := b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyCoffee, 4, 0)}})
	require.NoError(t, err)

	addItems(t, b, sess.ID, "user-2", in(keyCoffee, 2, 0))
	items, err := b.GetItems(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, items.Summary.TotalQuantity)

	second, err := b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyCoffee, 2, 0)}, IsFinal: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.ReceivingNumber, second.ReceivingNumber)
	require.Len(t, second.StockChanges, 1)
	assert.Equal(t, 4, second.StockChanges[0].QuantityBefore)
	assert.Equal(t, 6, second.StockChanges[0].QuantityAfter)
	assert.Empty(t, second.NeedsDisplay())

	subs, err := b.ListSubmissions(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	sessNow, err := b.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, sessNow.IsFinal)
	assert.False(t, sessNow.IsActive)
	require.NotNil(t, sessNow.CompletedAt)

	_, err = b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyCoffee, 1, 0)}})
	assert.True(t, domain.IsCode(err, domain.CodeSessionFinal))
	err = b.AddItems(ctx, sess.ID, "user-1", []domain.ItemInput{in(keyCoffee, 1, 0)})
	assert.True(t, domain.IsCode(err, domain.CodeSessionFinal))
}

func TestSubmitSession_CountingLeavesStockAlone(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b, withType(domain.SessionCounting))

	res, err := b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyTea, 9, 0)}, IsFinal: true})
	require.NoError(t, err)
	assert.Equal(t, "CNT", res.ReceivingNumber[:3])
	assert.Empty(t, res.StockChanges)

	found, err := b.SearchProducts(ctx, "store-1", "tea", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, found[0].OnHand)
}

func TestSubmitSession_CoalescesDuplicateLines(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	res, err := b.SubmitSession(ctx, app.SubmitRequest{
		SessionID: sess.ID,
		UserID:    "user-1",
		Items:     []domain.ItemInput{in(keyCoffee, 2, 0), in(keyMugRed, 1, 0), in(keyCoffee, 3, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsCount)
	require.Len(t, res.StockChanges, 2)
	assert.Equal(t, 4, res.StockChanges[0].QuantityReceived)

	stored, err := b.ListSubmissions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].StockChanges, 2)
}

func TestSubmitSession_ValidationAndUnknownProduct(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)

	_, err := b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1"})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeEmptyBatch))
	assert.Contains(t, err.Error(), "At least one item is required for submission")

	_, err = b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyCoffee, -1, 0)}})
	assert.True(t, domain.IsCode(err, domain.CodeInvalidItem))

	_, err = b.SubmitSession(ctx, app.SubmitRequest{SessionID: sess.ID, UserID: "user-1", Items: []domain.ItemInput{in(keyCoffee, 1, 0), testutil.Item("ghost", 1, 0)}})
	assert.True(t, domain.IsCode(err, domain.CodeSubmitFailed))

	found, err := b.SearchProducts(ctx, "store-1", "coffee", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, found[0].OnHand, "stock moved by the first line must roll back")
}

func TestSubmitSession_RollbackOnWriteFailure(t *testing.T) {
	b, database := newTestBackend(t)
	ctx := context.Background()
	sess := createSession(t, b)
	addItems(t, b, sess.ID, "user-1", in(keyTea, 3, 0))

	// Stock, the submission record, its lines, the closed round and the
	// finalized session are written in that order.
	tables := []string{"stock_levels", "submissions", "submission_items", "session_items", "sessions"}
	for _, table := range tables {
		t.Run("fail_on_"+table, func(t *testing.T) {
			failUoW := &testutil.FailingUoW{
				DB:        database,
				FailTable: table,
				Err:       fmt.Errorf("injected submit failure"),
			}
			svc := NewSubmitService(database, failUoW)

			_, err := svc.SubmitSession(ctx, app.SubmitRequest{
				SessionID: sess.ID,
				UserID:    "user-1",
				Items:     []domain.ItemInput{in(keyTea, 3, 0)},
				IsFinal:   true,
			})
			require.Error(t, err)
			assert.True(t, domain.IsCode(err, domain.CodeSubmitFailed))
			written := failUoW.Written()
			assert.Equal(t, tables[:len(written)], written)

			found, err := b.SearchProducts(ctx, "store-1", "tea", 5)
			require.NoError(t, err)
			assert.Equal(t, 5, found[0].OnHand)

			items, err := b.GetItems(ctx, sess.ID, "user-1")
			require.NoError(t, err)
			assert.Equal(t, 3, items.Summary.TotalQuantity)

			sessNow, err := b.GetSession(ctx, sess.ID)
			require.NoError(t, err)
			assert.True(t, sessNow.IsActive)

			subs, err := b.ListSubmissions(ctx, sess.ID)
			require.NoError(t, err)
			assert.Empty(t, subs)
		})
	}
}
