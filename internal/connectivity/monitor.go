package connectivity

import (
	"sync"

	"github.com/tgrandin/locachat/internal/bus"
	"go.uber.org/zap"
)

// Monitor maintains the process-wide online flag. It is a passive observer
// with a single writer: only the platform's transition source (the prober,
// in this client) calls OnTransition. Everyone else reads.
type Monitor struct {
	mu     sync.RWMutex
	online bool
	bus    *bus.Bus
	logger *zap.Logger

	shouldReload func() bool
	reload       func()
}

// NewMonitor creates a monitor with the given initial connectivity value.
func NewMonitor(initial bool, b *bus.Bus, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{online: initial, bus: b, logger: logger}
}

// BindReload installs the reconnect behavior: when a transition to online
// occurs and shouldReload reports true (the last surfaced error was
// connectivity-caused), reload runs in the background to refresh the
// conversation list.
func (m *Monitor) BindReload(shouldReload func() bool, reload func()) {
	m.mu.Lock()
	m.shouldReload = shouldReload
	m.reload = reload
	m.mu.Unlock()
}

// Online returns the current connectivity flag.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnTransition is invoked by the transition source when connectivity
// changes. Repeating the current value is a no-op.
func (m *Monitor) OnTransition(isOnline bool) {
	m.mu.Lock()
	if m.online == isOnline {
		m.mu.Unlock()
		return
	}
	m.online = isOnline
	shouldReload := m.shouldReload
	reload := m.reload
	m.mu.Unlock()

	if isOnline {
		m.logger.Info("connectivity restored")
		m.bus.Emit(bus.KindConnectivityOnline, nil)
		if shouldReload != nil && reload != nil && shouldReload() {
			go reload()
		}
	} else {
		m.logger.Warn("connectivity lost")
		m.bus.Emit(bus.KindConnectivityOffline, nil)
	}
}
