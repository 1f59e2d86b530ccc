//go:build unit
// +build unit

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"climb-calendar/store"
)

var namesKey = Key{Resource: "competitions"}

func parseNames(docs []store.Document) (any, error) {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		n, _ := d.Data["name"].(string)
		names = append(names, n)
	}
	return names, nil
}

func newRemoteCache(t *testing.T) (*Cache, *store.MemoryStore) {
	s := store.NewMemoryStore()
	c := New()
	c.RegisterRemote(namesKey, RemoteSource{Store: s, Query: store.Collection("competitions"), Parse: parseNames})
	return c, s
}

func TestRead_UnknownAndDefault(t *testing.T) {
	c := New()
	assert.Equal(t, StatusUnknown, c.Read(Key{Resource: "nothing"}).Status)

	view := Key{Resource: "ui", Scope: "view"}
	c.RegisterDefault(view, "calendar")
	e := c.Read(view)
	assert.True(t, e.Loaded())
	assert.Equal(t, "calendar", e.Value)

	c.Write(view, "table")
	v, _, ok := Get[string](c, view)
	assert.True(t, ok)
	assert.Equal(t, "table", v)
}

func TestWrite_NotifiesSubscribersSynchronously(t *testing.T) {
	c := New()
	k := Key{Resource: "x"}
	var got []Entry
	unsub := c.Subscribe(k, func(e Entry) { got = append(got, e) })

	e1 := c.Write(k, 1)
	e2 := c.Write(k, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[1].Value)
	assert.Greater(t, e2.Version, e1.Version)

	unsub()
	unsub()
	c.Write(k, 3)
	assert.Len(t, got, 2)
}

func TestSubscriberPanicDoesNotBreakWrite(t *testing.T) {
	c := New()
	k := Key{Resource: "x"}
	c.Subscribe(k, func(Entry) { panic("boom") })
	e := c.Write(k, "ok")
	assert.Equal(t, "ok", c.Read(k).Value)
	assert.Equal(t, e.Version, c.Read(k).Version)
}

func TestPushSupersedesInFlightFetch(t *testing.T) {
	ctx := context.Background()
	c, s := newRemoteCache(t)
	require.NoError(t, c.Mount(ctx, namesKey, "view-1"))

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Fetch(ctx, namesKey, func(context.Context) (any, error) {
			close(started)
			<-release
			return []string{"stale result"}, nil
		})
		assert.NoError(t, err)
	}()

	<-started
	_, err := s.AddDoc(ctx, "competitions", store.Data{"name": "Sofia Open"})
	require.NoError(t, err)
	pushed := c.Read(namesKey)

	close(release)
	wg.Wait()

	after := c.Read(namesKey)
	assert.Equal(t, []string{"Sofia Open"}, after.Value)
	assert.Equal(t, pushed.Version, after.Version)
}

func TestFetchFailureKeepsValueAndMarksStale(t *testing.T) {
	ctx := context.Background()
	c := New()
	k := Key{Resource: "x"}

	_, err := c.Fetch(ctx, k, func(context.Context) (any, error) { return nil, errors.New("offline") })
	require.Error(t, err)
	assert.Equal(t, StatusError, c.Read(k).Status)

	_, err = c.Fetch(ctx, k, func(context.Context) (any, error) { return "v1", nil })
	require.NoError(t, err)

	_, err = c.Fetch(ctx, k, func(context.Context) (any, error) { return nil, errors.New("offline") })
	require.Error(t, err)
	e := c.Read(k)
	assert.Equal(t, StatusLoaded, e.Status)
	assert.Equal(t, "v1", e.Value)
	assert.True(t, e.Stale)
	assert.Equal(t, "offline", e.ErrorText())
}

func TestMountFlappingLeavesOneSubscription(t *testing.T) {
	ctx := context.Background()
	c, s := newRemoteCache(t)

	require.NoError(t, c.Mount(ctx, namesKey, "view-1"))
	c.Unmount(namesKey, "view-1")
	require.NoError(t, c.Mount(ctx, namesKey, "view-1"))

	assert.Equal(t, 1, c.ActiveRemotes())
	assert.Equal(t, 1, s.Listeners())
	assert.Equal(t, 1, c.Mounted(namesKey))
}

func TestMountIsIdempotentPerToken(t *testing.T) {
	ctx := context.Background()
	c, s := newRemoteCache(t)

	require.NoError(t, c.Mount(ctx, namesKey, "a"))
	require.NoError(t, c.Mount(ctx, namesKey, "a"))
	require.NoError(t, c.Mount(ctx, namesKey, "b"))
	assert.Equal(t, 1, s.Listeners())

	c.Unmount(namesKey, "a")
	c.Unmount(namesKey, "a")
	assert.Equal(t, 1, s.Listeners(), "b still mounted")

	c.Unmount(namesKey, "b")
	c.Unmount(namesKey, "never-mounted")
	assert.Equal(t, 0, s.Listeners())
	assert.Equal(t, 0, c.ActiveRemotes())
}

func TestMountUnregistered(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Mount(context.Background(), Key{Resource: "nope"}, "t"), ErrUnregistered)
}

func TestPushesReplaceWholeValue(t *testing.T) {
	ctx := context.Background()
	c, s := newRemoteCache(t)
	require.NoError(t, c.Mount(ctx, namesKey, "v"))

	a, err := s.AddDoc(ctx, "competitions", store.Data{"name": "A"})
	require.NoError(t, err)
	_, err = s.AddDoc(ctx, "competitions", store.Data{"name": "B"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteDoc(ctx, "competitions", a.ID))

	assert.Equal(t, []string{"B"}, c.Read(namesKey).Value)
}

func TestSubscribeErrorMarksEntry(t *testing.T) {
	m := new(store.MockStore)
	q := store.Collection("competitions")
	m.On("OnSnapshot", mock.Anything, q, mock.Anything).Return(nil, errors.New("denied"))

	c := New()
	c.RegisterRemote(namesKey, RemoteSource{Store: m, Query: q, Parse: parseNames})

	err := c.Mount(context.Background(), namesKey, "v")
	require.Error(t, err)
	assert.Equal(t, StatusError, c.Read(namesKey).Status)
	assert.Equal(t, 0, c.Mounted(namesKey))
}

func TestRefetchReadsStore(t *testing.T) {
	ctx := context.Background()
	c, s := newRemoteCache(t)
	_, err := s.AddDoc(ctx, "competitions", store.Data{"name": "A"})
	require.NoError(t, err)

	e, err := c.Refetch(ctx, namesKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, e.Value)
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func TestMutateDoesNotWriteLocally(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	c := New(WithNotifier(n))
	k := Key{Resource: "x"}
	c.Write(k, "before")

	var pendingDuringRun int
	err := c.Mutate(ctx, Mutation{
		Key:    k,
		Action: []string{"Competition", "Add"},
		Run: func(context.Context) error {
			pendingDuringRun = c.Pending(k)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, pendingDuringRun)
	assert.Equal(t, 0, c.Pending(k))
	assert.Equal(t, "before", c.Read(k).Value)
	require.Len(t, n.got, 1)
	assert.Equal(t, "Competition Add", n.got[0].Title())
	assert.True(t, n.got[0].Success())
}

func TestMutateRefusedByAuthorize(t *testing.T) {
	n := &recordingNotifier{}
	c := New(WithNotifier(n))
	denied := errors.New("only an authorized user may add a competition")
	ran := false

	err := c.Mutate(context.Background(), Mutation{
		Key:       Key{Resource: "x"},
		Action:    []string{"Competition", "Add"},
		Authorize: func(context.Context) error { return denied },
		Run:       func(context.Context) error { ran = true; return nil },
	})

	assert.ErrorIs(t, err, denied)
	assert.False(t, ran)
	require.Len(t, n.got, 1)
	assert.False(t, n.got[0].Success())
}

func TestMutateFailureIsReportedNotRetried(t *testing.T) {
	n := &recordingNotifier{}
	c := New(WithNotifier(n))
	calls := 0

	err := c.Mutate(context.Background(), Mutation{
		Key:    Key{Resource: "x"},
		Action: []string{"UserEvent", "Delete"},
		Run:    func(context.Context) error { calls++; return errors.New("quota") },
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, n.got, 1)
}

func TestLastUnmountMarksValueStale(t *testing.T) {
	ctx := context.Background()
	c, s := newRemoteCache(t)
	_, err := s.AddDoc(ctx, "competitions", store.Data{"name": "A"})
	require.NoError(t, err)

	require.NoError(t, c.Mount(ctx, namesKey, "a"))
	require.NoError(t, c.Mount(ctx, namesKey, "b"))
	assert.False(t, c.Read(namesKey).Stale)

	c.Unmount(namesKey, "a")
	assert.False(t, c.Read(namesKey).Stale, "b keeps it current")

	c.Unmount(namesKey, "b")
	e := c.Read(namesKey)
	assert.True(t, e.Stale)
	assert.Equal(t, []string{"A"}, e.Value)

	require.NoError(t, c.Mount(ctx, namesKey, "a"))
	assert.False(t, c.Read(namesKey).Stale)
}

func TestInvalidate_LeavesUnloadedEntriesAlone(t *testing.T) {
	c := New()
	k := Key{Resource: "x"}
	e := c.Invalidate(k)
	assert.Equal(t, StatusUnknown, e.Status)
	assert.False(t, e.Stale)
	assert.Zero(t, e.Version)
}
