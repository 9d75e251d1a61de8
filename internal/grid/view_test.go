package grid

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soc-console/internal/client"
	"soc-console/internal/client/notify"
	coreerrors "soc-console/internal/core/errors"
	corelog "soc-console/internal/core/log"
	"soc-console/internal/testutils"
)

func newTestView(t *testing.T, backend *testutils.FakeBackend, ttl time.Duration) (*View, *notify.Recorder) {
	rec := notify.NewRecorder()
	api := client.NewAPIClient(backend.ServerConfig(), corelog.NewTestLogger(t))
	view, err := NewView(api, rec, ViewOptions{CacheExpiration: ttl, Logger: corelog.NewTestLogger(t)})
	require.NoError(t, err)
	return view, rec
}

func TestGroup_SortsEachBucketByID(t *testing.T) {
	b := Group([]Node{
		{ID: "z", Status: StatusAccepted},
		{ID: "b", Status: StatusUnaccepted},
		{ID: "a", Status: StatusAccepted},
		{ID: "r", Status: StatusRejected},
		{ID: "d", Status: StatusDenied},
		{ID: "x", Status: "bogus"},
	})

	assert.Equal(t, []Node{{ID: "a", Status: StatusAccepted}, {ID: "z", Status: StatusAccepted}}, b.Accepted)
	assert.Len(t, b.Unaccepted, 1)
	assert.Len(t, b.Rejected, 1)
	assert.Len(t, b.Denied, 1)
	assert.Equal(t, 5, b.Total())
}

func TestColorForStatus(t *testing.T) {
	assert.Equal(t, ColorError, ColorForStatus(StatusRejected))
	assert.Equal(t, ColorSuccess, ColorForStatus(StatusAccepted))
	assert.Equal(t, ColorWarning, ColorForStatus(StatusDenied))
	assert.Equal(t, ColorGray, ColorForStatus(StatusUnaccepted))
	assert.Equal(t, ColorGray, ColorForStatus("whatever"))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("gone").Valid())
}

func TestNode_Label(t *testing.T) {
	n := NodeFromRecord(client.GridMemberRecord{ID: "n2", Name: "node2", Role: "standalone", Status: "accepted"})
	assert.Equal(t, "node2 (standalone)", n.Label())
	assert.True(t, n.IsAccepted())
	assert.False(t, n.IsUnaccepted())
}

func TestView_LoadGroupsMembers(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.SetMembers(
		client.GridMemberRecord{ID: "n2", Status: "accepted"},
		client.GridMemberRecord{ID: "n1", Status: "accepted"},
		client.GridMemberRecord{ID: "n3", Status: "unaccepted"},
	)
	view, _ := newTestView(t, backend, time.Minute)

	buckets, err := view.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets.Accepted, 2)
	assert.Equal(t, "n1", buckets.Accepted[0].ID)
	assert.Equal(t, "n3", buckets.Unaccepted[0].ID)
}

func TestView_NodesUsesCacheUntilExpired(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.SetMembers(client.GridMemberRecord{ID: "n1", Status: "accepted"})
	view, _ := newTestView(t, backend, time.Minute)

	now := time.Now()
	view.now = func() time.Time { return now }

	nodes, err := view.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	backend.SetMembers(client.GridMemberRecord{ID: "n1", Status: "accepted"}, client.GridMemberRecord{ID: "n2"})
	nodes, err = view.Nodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 1, "cached result expected")

	now = now.Add(2 * time.Minute)
	nodes, err = view.Nodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	n, ok, err := view.Get(context.Background(), "n2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "n2", n.ID)

	view.Invalidate()
	_, ok, err = view.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestView_MembersBeyondCacheSize(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.SetMembers(
		client.GridMemberRecord{ID: "a", Status: "accepted"},
		client.GridMemberRecord{ID: "b", Status: "accepted"},
		client.GridMemberRecord{ID: "c", Status: "accepted"},
	)
	api := client.NewAPIClient(backend.ServerConfig(), corelog.NewTestLogger(t))
	view, err := NewView(api, notify.NewRecorder(), ViewOptions{
		CacheSize:       2,
		CacheExpiration: time.Minute,
		Logger:          corelog.NewTestLogger(t),
	})
	require.NoError(t, err)

	buckets, err := view.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, buckets.Accepted, 3)

	nodes, err := view.Nodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	n, ok, err := view.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", n.ID)
}

func TestView_AcceptReloadsAndNotifies(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.SetMembers(client.GridMemberRecord{ID: "n1", Status: "unaccepted"})
	view, rec := newTestView(t, backend, time.Minute)

	require.NoError(t, view.Accept(context.Background(), "n1"))
	assert.Equal(t, []string{notify.KeyGridMemberAcceptSuccess}, rec.Messages(notify.LevelInfo))

	nodes, err := view.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, StatusAccepted, nodes[0].Status)
}

func TestView_RejectAndDelete(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.SetMembers(
		client.GridMemberRecord{ID: "n1", Status: "unaccepted"},
		client.GridMemberRecord{ID: "n2", Status: "unaccepted"},
	)
	view, rec := newTestView(t, backend, time.Minute)

	require.NoError(t, view.Reject(context.Background(), "n1"))
	require.NoError(t, view.Delete(context.Background(), "n2"))

	nodes, err := view.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, StatusRejected, nodes[0].Status)
	assert.Empty(t, rec.Messages(notify.LevelError))
}

func TestView_FailureNotifiesAndKeepsCache(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	backend.SetMembers(client.GridMemberRecord{ID: "n1", Status: "accepted"})
	view, rec := newTestView(t, backend, time.Minute)

	_, err := view.Load(context.Background())
	require.NoError(t, err)

	backend.FailNext("/api/gridmembers/", http.StatusInternalServerError, 1)
	_, err = view.Load(context.Background())
	require.Error(t, err)
	assert.True(t, coreerrors.IsTransport(err))
	assert.Len(t, rec.Messages(notify.LevelError), 1)

	nodes, err := view.Nodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestView_AcceptUnknownMember(t *testing.T) {
	backend := testutils.NewFakeBackend(t)
	view, rec := newTestView(t, backend, time.Minute)

	err := view.Accept(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))
	assert.Empty(t, rec.Messages(notify.LevelInfo))
}

func TestNewView_RequiresBackend(t *testing.T) {
	_, err := NewView(nil, nil, ViewOptions{})
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidParam))
}
