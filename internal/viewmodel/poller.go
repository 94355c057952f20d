package viewmodel

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 2 * time.Second

// Poller re-runs both refreshes on a fixed interval while a transaction is
// open, and stays idle otherwise.
type Poller struct {
	vm       *ViewModel
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(vm *ViewModel, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		vm:       vm,
		interval: interval,
		logger:   logger.Named("poller"),
	}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	updates, unsubscribe := p.vm.Subscribe()
	defer unsubscribe()

	var ticker *time.Ticker
	var tick <-chan time.Time
	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
			p.logger.Debug("polling stopped")
		}
	}
	defer stop()

	track := func(active bool) {
		switch {
		case active && ticker == nil:
			ticker = time.NewTicker(p.interval)
			tick = ticker.C
			p.logger.Debug("polling started", zap.Duration("interval", p.interval))
		case !active:
			stop()
		}
	}

	track(p.vm.Snapshot().Active())
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			track(snap.Active())
		case <-tick:
			// The view may have closed since the last update was read.
			if !p.vm.Snapshot().Active() {
				stop()
				continue
			}
			p.vm.Poll(ctx)
		}
	}
}
