package notification

import (
	"context"
	"sync"
	"time"

	"taskpal/internal/logging"
)

// DefaultPollInterval matches the 30-second refresh the source design used.
const DefaultPollInterval = 30 * time.Second

// Poller refreshes the store on a fixed interval while its owning view is
// displayed. Stop must be called on teardown or the background refresh leaks
// past navigation.
type Poller struct {
	store    *Store
	logger   logging.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a poller over store. interval <= 0 selects the default.
func NewPoller(store *Store, interval time.Duration, logger logging.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{store: store, logger: logging.OrNop(logger), interval: interval}
}

// Start refreshes immediately and then on every tick until Stop is called or
// ctx is cancelled. Starting an already-running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done

	go func() {
		defer close(done)
		if err := p.store.Refresh(ctx); err != nil {
			p.logger.Warn("notification refresh failed: %v", err)
		}
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.store.Refresh(ctx); err != nil {
					p.logger.Warn("notification refresh failed: %v", err)
				}
			}
		}
	}()
}

// Stop cancels the refresh loop and waits for it to exit. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
