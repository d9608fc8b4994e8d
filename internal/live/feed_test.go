package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu       sync.Mutex
	items    []string
	loads    int
	fail     bool
	signal   chan struct{}
	watching atomic.Int32
}

func newFakeSource(items ...string) *fakeSource {
	return &fakeSource{items: items, signal: make(chan struct{}, 8)}
}

func (s *fakeSource) load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.fail {
		return nil, errors.New("offline")
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *fakeSource) changes(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	s.watching.Add(1)
	go func() {
		defer close(out)
		defer s.watching.Add(-1)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.signal:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (s *fakeSource) set(items ...string) {
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.signal <- struct{}{}
}

func (s *fakeSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func receive(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case items := <-ch:
		return items
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestFeed_SnapshotWhileIdleReadsSource(t *testing.T) {
	src := newFakeSource("a", "b")
	feed := NewFeed[string]("test", src.load, src.changes)

	items, err := feed.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.False(t, feed.Running())
	assert.Zero(t, src.watching.Load())
}

func TestFeed_SubscribeReceivesUpdates(t *testing.T) {
	src := newFakeSource("a")
	feed := NewFeed[string]("test", src.load, src.changes)

	got := make(chan []string, 16)
	unsubscribe := feed.Subscribe(func(items []string) { got <- items })
	defer unsubscribe()

	assert.Equal(t, []string{"a"}, receive(t, got))

	src.set("a", "b")
	assert.Equal(t, []string{"a", "b"}, receive(t, got))

	snap, err := feed.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, snap)
}

func TestFeed_UnchangedSnapshotIsNotRedelivered(t *testing.T) {
	src := newFakeSource("a")
	feed := NewFeed[string]("test", src.load, src.changes)

	got := make(chan []string, 16)
	unsubscribe := feed.Subscribe(func(items []string) { got <- items })
	defer unsubscribe()
	receive(t, got)

	before := src.loadCount()
	src.signal <- struct{}{}
	require.Eventually(t, func() bool { return src.loadCount() > before }, time.Second, 5*time.Millisecond)

	select {
	case items := <-got:
		t.Fatalf("unexpected delivery %v", items)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_LateSubscriberGetsCurrentSnapshot(t *testing.T) {
	src := newFakeSource("a")
	feed := NewFeed[string]("test", src.load, src.changes)

	first := make(chan []string, 16)
	unsubscribeFirst := feed.Subscribe(func(items []string) { first <- items })
	defer unsubscribeFirst()
	receive(t, first)

	second := make(chan []string, 16)
	unsubscribeSecond := feed.Subscribe(func(items []string) { second <- items })
	defer unsubscribeSecond()
	assert.Equal(t, []string{"a"}, receive(t, second))
}

func TestFeed_RefCountedLifecycle(t *testing.T) {
	src := newFakeSource("a")
	feed := NewFeed[string]("test", src.load, src.changes)

	release1 := feed.Acquire()
	release2 := feed.Acquire()
	require.Eventually(t, func() bool { return src.watching.Load() == 1 }, time.Second, 5*time.Millisecond)

	release1()
	release1() // second call is ignored
	assert.True(t, feed.Running())
	assert.EqualValues(t, 1, src.watching.Load())

	release2()
	assert.False(t, feed.Running())
	require.Eventually(t, func() bool { return src.watching.Load() == 0 }, time.Second, 5*time.Millisecond)

	// restart after a full stop
	release3 := feed.Acquire()
	require.Eventually(t, func() bool { return src.watching.Load() == 1 }, time.Second, 5*time.Millisecond)
	release3()
}

func TestFeed_FailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	src := newFakeSource("a")
	feed := NewFeed[string]("test", src.load, src.changes)

	got := make(chan []string, 16)
	unsubscribe := feed.Subscribe(func(items []string) { got <- items })
	defer unsubscribe()
	receive(t, got)

	src.mu.Lock()
	src.fail = true
	src.mu.Unlock()
	before := src.loadCount()
	src.signal <- struct{}{}
	require.Eventually(t, func() bool { return src.loadCount() > before }, time.Second, 5*time.Millisecond)

	snap, err := feed.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, snap)
}

func TestFeed_SourceWithoutChanges(t *testing.T) {
	src := newFakeSource("a")
	noChanges := func(context.Context) (<-chan struct{}, error) { return nil, errors.New("unsupported") }
	feed := NewFeed[string]("test", src.load, noChanges)

	got := make(chan []string, 1)
	unsubscribe := feed.Subscribe(func(items []string) { got <- items })
	assert.Equal(t, []string{"a"}, receive(t, got))
	unsubscribe()
	assert.False(t, feed.Running())
}

func TestFeed_SlowLoadDoesNotOverwriteNewerSnapshot(t *testing.T) {
	var (
		mu      sync.Mutex
		calls   int
		current = []string{"v1"}
	)
	started := make(chan struct{})
	gate := make(chan struct{})
	load := func(context.Context) ([]string, error) {
		mu.Lock()
		calls++
		call := calls
		items := append([]string(nil), current...)
		mu.Unlock()
		if call == 2 {
			close(started)
			<-gate
		}
		return items, nil
	}
	static := func(context.Context) (<-chan struct{}, error) { return nil, nil }

	feed := NewFeed[string]("test", load, static)
	got := make(chan []string, 4)
	unsubscribe := feed.Subscribe(func(items []string) { got <- items })
	defer unsubscribe()
	assert.Equal(t, []string{"v1"}, receive(t, got))

	slow := make(chan struct{})
	go func() {
		defer close(slow)
		feed.Refresh(context.Background())
	}()
	<-started

	mu.Lock()
	current = []string{"v2"}
	mu.Unlock()
	feed.Refresh(context.Background())
	assert.Equal(t, []string{"v2"}, receive(t, got))

	close(gate)
	<-slow

	items, err := feed.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, items)
	select {
	case stale := <-got:
		t.Fatalf("stale snapshot delivered: %v", stale)
	default:
	}
}
