package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/vault/id"
	"github.com/xraph/vault/types"
)

// Compile-time interface checks.
var (
	_ Gateway   = (*Pool)(nil)
	_ Custodian = (*Pool)(nil)
	_ Receiver  = (*Pool)(nil)
)

// Pool holds value in process and delivers it to registered recipients.
type Pool struct {
	mu         sync.Mutex
	held       types.Amount
	recipients map[string]Recipient
	delivered  map[string]types.Amount
	history    []Delivery

	policy Policy
	logger *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPolicy sets the delivery policy.
func WithPolicy(p Policy) PoolOption {
	return func(pool *Pool) { pool.policy = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(pool *Pool) { pool.logger = logger }
}

// NewPool creates an empty Pool using DefaultPolicy.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		recipients: make(map[string]Recipient),
		delivered:  make(map[string]types.Amount),
		policy:     DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the delivery policy.
func (p *Pool) Policy() Policy { return p.policy }

// Register installs r as the callback path of to.
func (p *Pool) Register(to id.AccountID, r Recipient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recipients[to.String()] = r
}

// Unregister removes the callback path of to.
func (p *Pool) Unregister(to id.AccountID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.recipients, to.String())
}

// Held implements Custodian.
func (p *Pool) Held(_ context.Context) (types.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held, nil
}

// Accept implements Receiver.
func (p *Pool) Accept(_ context.Context, _ id.AccountID, amount types.Amount) error {
	return p.Inject(amount)
}

// Inject adds value that arrived outside the deposit path.
func (p *Pool) Inject(amount types.Amount) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	held, err := p.held.Add(amount)
	if err != nil {
		return fmt.Errorf("transfer: inject %d: %w", amount, err)
	}
	p.held = held
	return nil
}

// Delivered returns the total successfully delivered to to.
func (p *Pool) Delivered(to id.AccountID) types.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered[to.String()]
}

// Deliveries returns every successful delivery in order.
func (p *Pool) Deliveries() []Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Delivery, len(p.history))
	copy(out, p.history)
	return out
}

// Send implements Gateway. The held value is reserved before the recipient
// callback runs and restored if the callback refuses the delivery.
// The pool lock is not held while the callback runs.
func (p *Pool) Send(ctx context.Context, to id.AccountID, amount types.Amount) error {
	p.mu.Lock()
	remaining, err := p.held.Sub(amount)
	if err != nil {
		held := p.held
		p.mu.Unlock()
		return fmt.Errorf("%w: held %d, requested %d", ErrInsufficientFunds, held, amount)
	}
	p.held = remaining
	r := p.recipients[to.String()]
	p.mu.Unlock()

	d := Delivery{
		ID:     id.NewTransferID(),
		To:     to,
		Amount: amount,
		At:     time.Now().UTC(),
	}

	if r != nil {
		if err := p.deliver(ctx, r, d); err != nil {
			p.mu.Lock()
			p.held += amount
			p.mu.Unlock()

			p.logger.Debug("transfer refused",
				"transfer_id", d.ID.String(),
				"to", to.String(),
				"amount", amount,
				"error", err,
			)
			return err
		}
	}

	p.mu.Lock()
	p.delivered[to.String()] += amount
	p.history = append(p.history, d)
	p.mu.Unlock()

	return nil
}

// deliver runs the recipient callback under the pool's policy.
func (p *Pool) deliver(ctx context.Context, r Recipient, d Delivery) error {
	if p.policy.Mode == ModeUnrestricted {
		return invoke(WithMeter(ctx, UnlimitedMeter()), r, d)
	}

	meter := NewMeter(p.policy.Budget)
	cctx := WithMeter(ctx, meter)
	if p.policy.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, p.policy.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- invoke(cctx, r, d)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		if meter.Overdrawn() {
			return fmt.Errorf("%w: used %d of %d", ErrBudgetExhausted, meter.Used(), p.policy.Budget)
		}
		return nil
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrDeadlineExceeded, p.policy.Timeout)
		}
		return cctx.Err()
	}
}

func invoke(ctx context.Context, r Recipient, d Delivery) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrRecipientPanic, rec)
		}
	}()
	return r.OnReceive(ctx, d)
}
