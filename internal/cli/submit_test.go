package cli

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/registry"
	"github.com/JINL2/mystorecluade-sub001/internal/testutil"
	"github.com/JINL2/mystorecluade-sub001/internal/workflow"
)

// scriptedUI answers the submit workflow from fixed choices and records
// what it was asked.
type scriptedUI struct {
	choose     submitMode
	proceed    bool
	isFinal    bool
	onFailure  func(slot workflow.Slot)
	failures   []workflow.Slot
	reviews    int
	displayed  []domain.StockSnapshot
	finalAsked int
}

func (u *scriptedUI) mode(workflow.Snapshot) (submitMode, error) { return u.choose, nil }

func (u *scriptedUI) confirmPending(workflow.Snapshot) (bool, error) { return u.proceed, nil }

func (u *scriptedUI) selectSession(snap workflow.Snapshot) (string, error) {
	if len(snap.Candidates) == 0 {
		return "", nil
	}
	return snap.Candidates[0].SessionID, nil
}

func (u *scriptedUI) confirmMerge(workflow.Snapshot) (bool, error) {
	u.choose = modeOnly
	return true, nil
}

func (u *scriptedUI) review(snap workflow.Snapshot, edit func(domain.EditableItem) error) (bool, error) {
	u.reviews++
	return true, nil
}

func (u *scriptedUI) finalChoice(workflow.Snapshot) (bool, bool, error) {
	u.finalAsked++
	return u.isFinal, true, nil
}

func (u *scriptedUI) needsDisplay(snap workflow.Snapshot) error {
	u.displayed = snap.NeedsDisplay
	return nil
}

func (u *scriptedUI) failed(slot workflow.Slot, err error) bool {
	u.failures = append(u.failures, slot)
	if u.onFailure == nil {
		return false
	}
	u.onFailure(slot)
	return true
}

func newRunner(t *testing.T, ui submitUI) (*submitRunner, *testutil.FakeClient, *domain.Session) {
	t.Helper()
	client := testutil.NewFakeClient()
	sess := testutil.NewTestSession()
	client.AddSession(sess)
	page := workflow.NewPage(workflow.Config{
		Client:  client,
		Merger:  workflow.NewMergeCoordinator(client, registry.NewMemoryStore(), nil),
		Guard:   registry.NewLocalGuard(),
		Session: sess,
		UserID:  "user-1",
	})
	return &submitRunner{page: page, ui: ui, out: io.Discard}, client, sess
}

var keyRice = domain.ItemKey{ProductID: "p-rice"}

func TestSubmitRunner_CancelAtModeSelect(t *testing.T) {
	r, client, sess := newRunner(t, &scriptedUI{choose: modeCancel})
	client.Contribute(sess.ID, keyRice, "user-1", 2, 0)

	_, err := r.run(context.Background())
	assert.ErrorIs(t, err, errSubmitCancelled)
	assert.Zero(t, client.Calls(testutil.OpSubmit))
}

func TestSubmitRunner_DecliningPendingCancels(t *testing.T) {
	r, client, sess := newRunner(t, &scriptedUI{choose: modeOnly, proceed: false})
	client.Contribute(sess.ID, keyRice, "user-1", 2, 0)

	_, err := r.run(context.Background())
	assert.ErrorIs(t, err, errSubmitCancelled)
	assert.Zero(t, client.Calls(testutil.OpGet))
}

func TestSubmitRunner_SubmitsReviewedItems(t *testing.T) {
	ui := &scriptedUI{choose: modeOnly, proceed: true, isFinal: true}
	r, client, sess := newRunner(t, ui)
	client.Stock[keyRice] = 4
	client.Contribute(sess.ID, keyRice, "user-1", 2, 0)
	client.Contribute(sess.ID, keyRice, "user-2", 3, 1)

	res, err := r.run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsFinal)
	assert.Equal(t, 1, ui.reviews)
	assert.Empty(t, ui.displayed)

	require.Len(t, client.Submitted, 1)
	req := client.Submitted[0]
	require.Len(t, req.Items, 1)
	assert.Equal(t, 5, req.Items[0].Quantity)
	assert.Equal(t, 1, req.Items[0].QuantityRejected)
}

func TestSubmitRunner_RetriesAfterSubmitFailure(t *testing.T) {
	ui := &scriptedUI{choose: modeOnly, proceed: true}
	r, client, sess := newRunner(t, ui)
	client.Contribute(sess.ID, keyRice, "user-1", 2, 0)
	client.Stock[keyRice] = 1
	client.SetFail(testutil.OpSubmit, errors.New("connection reset"))
	ui.onFailure = func(workflow.Slot) { client.SetFail(testutil.OpSubmit, nil) }

	res, err := r.run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []workflow.Slot{workflow.SlotSubmit}, ui.failures)
	assert.Equal(t, 2, ui.finalAsked)
	assert.Equal(t, 2, client.Calls(testutil.OpSubmit))
}

func TestSubmitRunner_SubmitFailureEndsRunWhenNotHandled(t *testing.T) {
	r, client, sess := newRunner(t, &scriptedUI{choose: modeOnly, proceed: true})
	client.Contribute(sess.ID, keyRice, "user-1", 2, 0)
	client.SetFail(testutil.OpSubmit, errors.New("connection reset"))

	_, err := r.run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.CodeSubmitFailed, domain.CodeOf(err))
}

func TestSubmitRunner_ShowsNewlyStockedProducts(t *testing.T) {
	ui := &scriptedUI{choose: modeOnly, proceed: true}
	r, client, sess := newRunner(t, ui)
	client.Contribute(sess.ID, keyRice, "user-1", 3, 0)

	res, err := r.run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, ui.displayed, 1)
	assert.Equal(t, keyRice, ui.displayed[0].Key)
	assert.Equal(t, 3, ui.displayed[0].QuantityAfter)
}

func TestSubmitRunner_CombineMergesOnceThenSubmits(t *testing.T) {
	ui := &scriptedUI{choose: modeCombine, proceed: true}
	r, client, sess := newRunner(t, ui)
	other := testutil.NewTestSession(testutil.WithCreator("user-2"))
	client.AddSession(other)
	client.Stock[keyRice] = 10
	client.Contribute(sess.ID, keyRice, "user-1", 2, 0)
	client.Contribute(other.ID, keyRice, "user-2", 5, 0)

	res, err := r.run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, client.Calls(testutil.OpMerge))
	assert.False(t, client.Session(other.ID).IsActive)
	require.Len(t, client.Submitted, 1)
	assert.Equal(t, 7, client.Submitted[0].Items[0].Quantity)
}
