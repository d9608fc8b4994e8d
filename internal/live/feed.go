// Package live keeps an in-process mirror of a remote collection and pushes
// every new snapshot to its subscribers.
package live

import (
	"context"
	"reflect"
	"sync"

	log "github.com/sirupsen/logrus"
)

// LoadFunc reads the whole collection.
type LoadFunc[T any] func(ctx context.Context) ([]T, error)

// ChangesFunc returns a channel that signals whenever the collection may have
// changed. The channel must be closed when ctx ends.
type ChangesFunc func(ctx context.Context) (<-chan struct{}, error)

// Feed mirrors a collection while at least one consumer holds it. The first
// Subscribe (or Acquire) starts watching the source, the last release stops it.
type Feed[T any] struct {
	name    string
	load    LoadFunc[T]
	changes ChangesFunc

	mu       sync.Mutex
	refs     int
	cancel   context.CancelFunc
	done     chan struct{}
	snapshot []T
	loaded   bool
	subs     map[int]func([]T)
	nextID   int
	// loads are numbered when they start; a result older than the last
	// published one is dropped
	loadSeq      uint64
	publishedSeq uint64

	// serializes delivery so subscribers never see snapshots out of order
	deliverMu sync.Mutex
}

// NewFeed creates an idle feed.
func NewFeed[T any](name string, load LoadFunc[T], changes ChangesFunc) *Feed[T] {
	return &Feed[T]{
		name:    name,
		load:    load,
		changes: changes,
		subs:    make(map[int]func([]T)),
	}
}

// Acquire holds the feed open without receiving snapshots.
func (f *Feed[T]) Acquire() (release func()) {
	return f.Subscribe(nil)
}

// Subscribe registers fn for every published snapshot and returns the
// function that unregisters it. fn receives the current snapshot right away
// when one is loaded. Snapshots passed to fn are shared and must not be
// modified. Neither Subscribe nor the returned function may be called from
// inside fn.
func (f *Feed[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	f.deliverMu.Lock()
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if fn != nil {
		f.subs[id] = fn
	}
	f.refs++
	if f.refs == 1 {
		f.startLocked()
	}
	current, loaded := f.snapshot, f.loaded
	f.mu.Unlock()

	if fn != nil && loaded {
		fn(current)
	}
	f.deliverMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.release(id) })
	}
}

// Snapshot returns the mirrored collection. When nobody holds the feed, or
// the first load has not finished yet, it reads the source directly.
func (f *Feed[T]) Snapshot(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	if f.refs > 0 && f.loaded {
		out := make([]T, len(f.snapshot))
		copy(out, f.snapshot)
		f.mu.Unlock()
		return out, nil
	}
	f.mu.Unlock()
	return f.load(ctx)
}

// Running reports whether the feed is currently watching its source.
func (f *Feed[T]) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refs > 0
}

// Refresh reloads the collection now. It is a no-op while the feed is idle.
func (f *Feed[T]) Refresh(ctx context.Context) {
	if !f.Running() {
		return
	}
	f.refresh(ctx)
}

func (f *Feed[T]) release(id int) {
	f.mu.Lock()
	delete(f.subs, id)
	f.refs--
	if f.refs > 0 {
		f.mu.Unlock()
		return
	}
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.loaded = false
	f.snapshot = nil
	f.mu.Unlock()

	cancel()
	<-done
	log.WithField("feed", f.name).Debug("feed stopped")
}

// startLocked must be called with f.mu held.
func (f *Feed[T]) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	f.cancel, f.done = cancel, done

	go func() {
		defer close(done)
		logger := log.WithField("feed", f.name)

		ch, err := f.changes(ctx)
		if err != nil {
			logger.WithError(err).Warn("cannot watch source, serving a static snapshot")
		}
		f.refresh(ctx)
		if ch == nil {
			<-ctx.Done()
			return
		}
		for range ch {
			f.refresh(ctx)
		}
	}()
	log.WithField("feed", f.name).Debug("feed started")
}

func (f *Feed[T]) refresh(ctx context.Context) {
	f.mu.Lock()
	f.loadSeq++
	seq := f.loadSeq
	f.mu.Unlock()

	items, err := f.load(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithField("feed", f.name).WithError(err).Warn("feed refresh failed, keeping previous snapshot")
		}
		return
	}

	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	if f.refs == 0 || ctx.Err() != nil || seq < f.publishedSeq {
		f.mu.Unlock()
		return
	}
	f.publishedSeq = seq
	if f.loaded && reflect.DeepEqual(f.snapshot, items) {
		f.mu.Unlock()
		return
	}
	f.snapshot = items
	f.loaded = true
	subs := make([]func([]T), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(items)
	}
}
