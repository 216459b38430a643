package push

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	ErrNoHealthy   = errors.New("no healthy push providers")
	ErrNoAcquire   = errors.New("push provider not acquired")
	ErrNoProviders = errors.New("no push providers configured")
)

// Dispatcher spreads multicasts over healthy providers round-robin. A call is
// attempted at most maxAttempts times, each time on the next healthy provider.
type Dispatcher struct {
	providers   []Provider
	rr          atomic.Uint64
	maxAttempts int
	log         *zap.Logger
}

func NewDispatcher(provs []Provider, maxAttempts int, log *zap.Logger) (*Dispatcher, error) {
	if len(provs) == 0 {
		return nil, ErrNoProviders
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{providers: provs, maxAttempts: maxAttempts, log: log}, nil
}

func (d *Dispatcher) selectProvider() (Provider, error) {
	healthy := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Ready() {
			healthy = append(healthy, p)
		}
	}
	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.rr.Add(1)
	return healthy[int((x-1)%uint64(len(healthy)))], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, msg Message) (BatchResult, error) {
	p, err := d.selectProvider()
	if err != nil {
		return BatchResult{}, err
	}
	if !p.Acquire() {
		return BatchResult{}, ErrNoAcquire
	}
	res, err := p.SendMulticast(ctx, msg)
	if err != nil {
		d.log.Debug("push provider failed", zap.String("provider", p.Name()), zap.Error(err))
	}
	return res, err
}

// SendMulticast delivers msg through the first provider that accepts it.
func (d *Dispatcher) SendMulticast(ctx context.Context, msg Message) (BatchResult, error) {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		res, err := d.tryOnce(ctx, msg)
		if err == nil {
			return res, nil
		}
		last = err
		if ctx.Err() != nil {
			break
		}
	}
	return BatchResult{}, last
}
