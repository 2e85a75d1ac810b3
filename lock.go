package vault

import (
	"context"
	"sync/atomic"

	"github.com/xraph/vault/store"
)

// LockState is the state of a Vault's reentrancy lock.
type LockState int32

const (
	// LockIdle means no guarded operation is in flight.
	LockIdle LockState = iota
	// LockEngaged means a guarded operation is running.
	LockEngaged
)

func (s LockState) String() string {
	switch s {
	case LockIdle:
		return "idle"
	case LockEngaged:
		return "engaged"
	default:
		return "unknown"
	}
}

// reentrancyLock serializes mutating requests and tracks whether a guarded
// (transfer-capable) one is in flight.
//
// While the holder is handing value to an external party the lock is also
// interacting. Any entry during that window is rejected whatever context it
// carries; outside it, callers from other goroutines wait for the semaphore.
type reentrancyLock struct {
	sem         chan struct{}
	state       atomic.Int32
	interacting atomic.Bool
}

func newReentrancyLock() *reentrancyLock {
	return &reentrancyLock{sem: make(chan struct{}, 1)}
}

// acquire waits for exclusive access. When engage is set the state moves
// Idle→Engaged. The returned release must be called exactly once.
func (l *reentrancyLock) acquire(ctx context.Context, engage bool) (release func(), err error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if engage && !l.state.CompareAndSwap(int32(LockIdle), int32(LockEngaged)) {
		<-l.sem
		return nil, ErrReentrancy
	}

	return func() {
		if engage {
			l.state.Store(int32(LockIdle))
		}
		<-l.sem
	}, nil
}

func (l *reentrancyLock) current() LockState {
	return LockState(l.state.Load())
}

// interact marks the lock as interacting for the duration of fn. Only the
// lock holder calls it.
func (l *reentrancyLock) interact(fn func() error) error {
	l.interacting.Store(true)
	defer l.interacting.Store(false)
	return fn()
}

// inInteraction reports whether the holder is inside an external call.
func (l *reentrancyLock) inInteraction() bool {
	return l.interacting.Load()
}

// ──────────────────────────────────────────────────
// Execution frames
// ──────────────────────────────────────────────────

// frameKey is keyed by vault so nested vaults do not see each other's frames.
type frameKey struct{ v *Vault }

// frame is the state of one top-level request: the open transaction and
// the notifications to deliver once it commits.
type frame struct {
	op      string
	tx      store.Tx
	pending []func(context.Context)
}

// after queues a notification until the outermost transaction commits.
func (f *frame) after(emit func(context.Context)) {
	f.pending = append(f.pending, emit)
}

func (v *Vault) frameFrom(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{v}).(*frame)
	return f
}

// detach hides the vault's frame from ctx. Observers called from inside a
// request receive a detached context so their own calls are not treated
// as part of the request.
func (v *Vault) detach(ctx context.Context) context.Context {
	if v.frameFrom(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, frameKey{v}, (*frame)(nil))
}
