package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/testutil"
)

func newContribution(sessionID string, key domain.ItemKey, userID string, qty, rejected int) *Contribution {
	return &Contribution{
		ID:               uuid.New().String(),
		SessionID:        sessionID,
		Key:              key,
		UserID:           userID,
		Quantity:         qty,
		QuantityRejected: rejected,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestContributionRepo_ListOpen_ArrivalOrder(t *testing.T) {
	database, sessions := sessionTestSetup(t)
	ctx := context.Background()
	repo := NewSQLiteContributionRepo(database)

	sess := testutil.NewTestSession()
	require.NoError(t, sessions.Create(ctx, sess))
	require.NoError(t, NewSQLiteMemberRepo(database).Add(ctx, &domain.Member{
		ID: "m1", SessionID: sess.ID, UserID: "user-2", UserName: "Bo", JoinedAt: time.Now().UTC(), IsActive: true,
	}))

	x := domain.ItemKey{ProductID: "x"}
	red := domain.ItemKey{ProductID: "x", VariantID: "red"}
	require.NoError(t, repo.Create(ctx, newContribution(sess.ID, x, "user-2", 3, 0)))
	require.NoError(t, repo.Create(ctx, newContribution(sess.ID, red, "user-1", 2, 1)))
	require.NoError(t, repo.Create(ctx, newContribution(sess.ID, x, "user-1", 5, 0)))

	open, err := repo.ListOpen(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, "user-2", open[0].UserID)
	assert.Equal(t, "Bo", open[0].UserName)
	assert.Equal(t, red, open[1].Key)
	assert.Equal(t, "", open[1].UserName, "non-members have no stored name")

	agg := BuildAggregate(sess.ID, open)
	assert.Equal(t, []domain.ItemKey{x, red}, agg.Keys())
	item, _ := agg.Item(x)
	assert.Equal(t, 8, item.TotalQuantity)
	require.Len(t, item.Contributions, 2)
	assert.Equal(t, "user-2", item.Contributions[0].UserID)
}

func TestContributionRepo_CloseOpen(t *testing.T) {
	database, sessions := sessionTestSetup(t)
	ctx := context.Background()
	repo := NewSQLiteContributionRepo(database)
	subs := NewSQLiteSubmissionRepo(database)

	sess := testutil.NewTestSession()
	require.NoError(t, sessions.Create(ctx, sess))
	x := domain.ItemKey{ProductID: "x"}
	require.NoError(t, repo.Create(ctx, newContribution(sess.ID, x, "user-1", 3, 0)))
	require.NoError(t, repo.Create(ctx, newContribution(sess.ID, x, "user-1", 4, 0)))

	sub := &domain.SubmitResult{
		SubmissionID:    "sub-1",
		SessionID:       sess.ID,
		ReceivingNumber: "RCV-20250615-ABCDEF",
		SubmittedBy:     "user-1",
		SubmittedAt:     time.Now().UTC(),
	}
	require.NoError(t, subs.Create(ctx, sub))

	n, err := repo.CloseOpen(ctx, sess.ID, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	open, err := repo.ListOpen(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, repo.Create(ctx, newContribution(sess.ID, x, "user-1", 1, 0)))
	open, err = repo.ListOpen(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1, "contributions after a submission open a new round")
}
