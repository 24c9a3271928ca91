package viewstate

import (
	"context"
	"sync"

	"github.com/JamesVaughan/visualize-calibration-report/src/dataset"
	"github.com/JamesVaughan/visualize-calibration-report/src/logging"
)

// LoadResult is what a background load delivers back to the UI thread.
type LoadResult struct {
	Path    string
	Dataset *dataset.Dataset
	Err     error
}

// Loader runs dataset parsing off the UI thread. Only the completed result
// crosses back; partial datasets never leave the worker. One load is in
// flight at a time: starting a new one abandons the previous result.
type Loader struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	ch     chan LoadResult
}

// Start begins loading path in the background and returns a channel that
// delivers at most one LoadResult. Cancelling the load (or starting another
// one) closes the channel without delivering anything, even when the worker
// had already finished: a result queued before the cancel is dropped, never
// observed by the receiver. progress may be nil; it is invoked from the
// worker goroutine, so UI callers must marshal updates back themselves.
func (l *Loader) Start(path string, progress func(rows int)) <-chan LoadResult {
	l.Cancel()
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan LoadResult, 1)
	l.mu.Lock()
	l.cancel = cancel
	l.ch = ch
	l.mu.Unlock()
	go func() {
		d, err := dataset.LoadFileContext(ctx, path, progress)
		l.mu.Lock()
		defer l.mu.Unlock()
		// A cancel may land at any point, including after the parse finished.
		// The channel swap under the mutex decides: once Cancel has detached
		// this load, its result goes nowhere.
		if l.ch != ch || ctx.Err() != nil {
			logging.Debugf("load of %s abandoned", path)
			return
		}
		ch <- LoadResult{Path: path, Dataset: d, Err: err}
	}()
	return ch
}

// Cancel abandons the in-flight load, if any. After Cancel returns, the
// channel from the matching Start is closed and will not deliver a result,
// regardless of how far the worker got. A no-op when idle.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.cancel = nil
	// Drop a result the worker queued before this cancel, then close so the
	// receiver observes abandonment instead of waiting forever.
	select {
	case <-l.ch:
	default:
	}
	close(l.ch)
	l.ch = nil
}
