// Package ctxwatch lets a blocking socket operation be interrupted by
// a context without making every read/write itself context-aware.
package ctxwatch

import (
	"context"
	"sync/atomic"
)

// ContextWatcher watches a context and runs a callback when it is
// canceled. It watches one context at a time.
type ContextWatcher struct {
	onCancel             func()
	onUnwatchAfterCancel func()

	watchInProgress uint32
	watchChan       chan context.Context
	unwatchChan     chan struct{}
}

// NewContextWatcher returns a ContextWatcher. onCancel runs when a
// watched context is canceled. onUnwatchAfterCancel runs when Unwatch
// is called after onCancel already ran for that watch.
func NewContextWatcher(onCancel func(), onUnwatchAfterCancel func()) *ContextWatcher {
	return &ContextWatcher{
		onCancel:             onCancel,
		onUnwatchAfterCancel: onUnwatchAfterCancel,
	}
}

func (cw *ContextWatcher) watch() {
	for ctx := range cw.watchChan {
		select {
		case <-ctx.Done():
			cw.onCancel()
			<-cw.watchChan
			cw.onUnwatchAfterCancel()
			cw.unwatchChan <- struct{}{}
		case <-cw.watchChan:
			cw.unwatchChan <- struct{}{}
		}
	}
}

// Watch starts watching ctx. Panics if a watch is already in progress.
func (cw *ContextWatcher) Watch(ctx context.Context) {
	if atomic.SwapUint32(&cw.watchInProgress, 1) != 0 {
		panic("ctxwatch: Watch already in progress")
	}
	if ctx.Done() == nil {
		atomic.StoreUint32(&cw.watchInProgress, 0)
		return
	}
	if cw.watchChan == nil {
		cw.watchChan = make(chan context.Context, 1)
		cw.unwatchChan = make(chan struct{}, 1)
		go cw.watch()
	}
	cw.watchChan <- ctx
}

// Unwatch stops watching the previously watched context.
func (cw *ContextWatcher) Unwatch() {
	if atomic.SwapUint32(&cw.watchInProgress, 0) != 1 {
		return
	}
	cw.watchChan <- nil
	<-cw.unwatchChan
}

// Stop permanently shuts down the watcher goroutine.
func (cw *ContextWatcher) Stop() {
	cw.Unwatch()
	if cw.watchChan != nil {
		close(cw.watchChan)
	}
}
