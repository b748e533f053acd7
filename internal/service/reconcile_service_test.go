package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/testutil"
)

func TestCompareSessions_CountedScenario(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	a := createSession(t, b, withShipment("ship-1"))
	bs := createSession(t, b, withShipment("ship-1"))

	addItems(t, b, a.ID, "user-1", in(keyCoffee, 5, 0))
	addItems(t, b, a.ID, "user-2", in(keyCoffee, 3, 0))
	addItems(t, b, bs.ID, "user-3", in(keyCoffee, 8, 0), in(keyTea, 2, 0))

	res, err := b.CompareSessions(ctx, a.ID, bs.ID, "user-1")
	require.NoError(t, err)

	require.Len(t, res.Matched, 1)
	assert.Equal(t, domain.MatchedItem{
		Key: keyCoffee, ProductName: "Coffee Beans", SKU: "SKU-p-coffee",
		QuantityA: 8, QuantityB: 8, QuantityDiff: 0, IsMatch: true,
	}, res.Matched[0])
	assert.Empty(t, res.OnlyInA)
	require.Len(t, res.OnlyInB, 1)
	assert.Equal(t, keyTea, res.OnlyInB[0].Key)
	assert.Equal(t, 2, res.OnlyInB[0].Quantity)
	assert.Equal(t, domain.ComparisonSummary{TotalMatched: 1, QuantitySameCount: 1, OnlyInBCount: 1}, res.Summary)

	assert.Equal(t, a.Name, res.SessionA.SessionName)
	assert.Equal(t, 10, res.SessionB.TotalQty)
}

func TestCompareSessions_UnknownSession(t *testing.T) {
	b, _ := newTestBackend(t)
	a := createSession(t, b)
	_, err := b.CompareSessions(context.Background(), a.ID, "missing", "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestMergeSessions_ConservesQuantitiesAndDeactivatesSource(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	target := createSession(t, b, withShipment("ship-1"))
	source := createSession(t, b, withShipment("ship-1"))

	addItems(t, b, target.ID, "user-1", in(keyCoffee, 5, 1))
	addItems(t, b, source.ID, "user-2", in(keyCoffee, 3, 0), in(keyMugRed, 4, 0))
	addItems(t, b, source.ID, "user-3", in(keyMugRed, 1, 0))

	before, err := b.GetItems(ctx, target.ID, "user-1")
	require.NoError(t, err)
	src, err := b.GetItems(ctx, source.ID, "user-2")
	require.NoError(t, err)

	out, err := b.MergeSessions(ctx, target.ID, source.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ItemsCopied)
	assert.Equal(t, 8, out.QuantityCopied)
	assert.Equal(t, 2, out.UniqueProductsCopied)
	assert.Equal(t, 1, out.TargetItemsBefore)
	assert.Equal(t, 2, out.TargetItemsAfter)
	assert.Equal(t, 5, out.TargetQuantityBefore)
	assert.Equal(t, 13, out.TargetQuantityAfter)
	assert.Equal(t, 1, out.TargetMembersBefore)
	assert.Equal(t, 2, out.MembersAdded, "user-2 and user-3 joined the target")
	assert.Equal(t, 3, out.TargetMembersAfter)
	assert.True(t, out.SourceDeactivated)

	after, err := b.GetItems(ctx, target.ID, "user-1")
	require.NoError(t, err)
	afterAgg, err := after.Aggregate()
	require.NoError(t, err)
	beforeAgg, err := before.Aggregate()
	require.NoError(t, err)
	srcAgg, err := src.Aggregate()
	require.NoError(t, err)
	for _, key := range afterAgg.Keys() {
		got, _ := afterAgg.Item(key)
		bt, _ := beforeAgg.Item(key)
		st, _ := srcAgg.Item(key)
		assert.Equal(t, bt.TotalQuantity+st.TotalQuantity, got.TotalQuantity, "key %s", key)
	}
	assert.Equal(t, before.Summary.TotalRejected+src.Summary.TotalRejected, after.Summary.TotalRejected)

	sourceNow, err := b.GetSession(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, sourceNow.IsActive)
	assert.False(t, sourceNow.IsFinal)

	history, err := b.MergeHistory(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, source.ID, history[0].SourceSessionID)
	assert.Equal(t, "user-1", history[0].MergedBy)
	assert.Equal(t, 8, history[0].QuantityCopied)
}

func TestMergeSessions_Guards(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	target := createSession(t, b, withShipment("ship-1"))
	source := createSession(t, b, withShipment("ship-1"))
	other := createSession(t, b, withShipment("ship-2"))

	_, err := b.MergeSessions(ctx, target.ID, target.ID, "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeMergeFailed))

	_, err = b.MergeSessions(ctx, target.ID, other.ID, "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeMergeFailed))
	assert.Contains(t, err.Error(), "shipments")

	_, err = b.MergeSessions(ctx, target.ID, source.ID, "user-1")
	require.NoError(t, err)

	// A deactivated source cannot be merged again, and cannot receive.
	_, err = b.MergeSessions(ctx, target.ID, source.ID, "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeSessionInactive))
	_, err = b.MergeSessions(ctx, source.ID, target.ID, "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeTargetInactive))

	_, err = b.MergeSessions(ctx, "missing", target.ID, "user-1")
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))
}

func TestMergeSessions_RollbackLeavesBothSessionsUntouched(t *testing.T) {
	b, database := newTestBackend(t)
	ctx := context.Background()
	target := createSession(t, b, withShipment("ship-1"))
	source := createSession(t, b, withShipment("ship-1"))
	addItems(t, b, target.ID, "user-1", in(keyCoffee, 5, 0))
	addItems(t, b, source.ID, "user-2", in(keyCoffee, 3, 0), in(keyTea, 1, 0))

	// Copying rows, adding user-2 to the target, deactivating the source and
	// logging the merge each write a different table.
	for _, table := range []string{"session_items", "session_members", "sessions", "session_merges"} {
		t.Run("fail_on_"+table, func(t *testing.T) {
			failUoW := &testutil.FailingUoW{
				DB:        database,
				FailTable: table,
				Err:       fmt.Errorf("injected merge failure"),
			}
			svc := NewReconcileService(database, failUoW)

			_, err := svc.MergeSessions(ctx, target.ID, source.ID, "user-1")
			require.Error(t, err)
			assert.True(t, domain.IsCode(err, domain.CodeMergeFailed))
			assert.Contains(t, err.Error(), "injected merge failure")

			items, err := b.GetItems(ctx, target.ID, "user-1")
			require.NoError(t, err)
			assert.Equal(t, 5, items.Summary.TotalQuantity)
			assert.Equal(t, 1, items.Summary.TotalParticipants)

			src, err := b.GetSession(ctx, source.ID)
			require.NoError(t, err)
			assert.True(t, src.IsActive)

			history, err := b.MergeHistory(ctx, source.ID)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}
