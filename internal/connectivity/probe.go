package connectivity

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const probeTimeout = 3 * time.Second

// Prober is the monitor's transition source. It checks reachability of the
// API origin on a fixed interval and feeds transitions to the monitor;
// coming back online is the monitor's ready-for-retry signal. Any HTTP
// response counts as reachable, including 4xx/5xx: the origin answered.
type Prober struct {
	monitor  *Monitor
	baseURL  string
	client   *http.Client
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewProber creates a prober against the given API origin.
func NewProber(monitor *Monitor, baseURL string, interval time.Duration, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		monitor:  monitor,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: probeTimeout},
		interval: interval,
		logger:   logger,
	}
}

// Start begins probing. The first check runs immediately so the monitor
// starts from a fresh value rather than an assumption.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)
}

// Stop stops the probe loop.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Prober) loop(ctx context.Context) {
	p.monitor.OnTransition(p.check(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.monitor.OnTransition(p.check(ctx))
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
