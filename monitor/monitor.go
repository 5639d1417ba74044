// Package monitor keeps track of the link state of a PHY. It polls the PHY
// periodically and on interrupts, and serializes configuration calls with the
// polls so multi-transaction register sequences are never interleaved.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/soypat/ctcphy"
	"github.com/soypat/ctcphy/internal"
	"github.com/soypat/ctcphy/mars"
	"github.com/soypat/ctcphy/phy"
)

// Device is the PHY driven by a Monitor. [mars.Device] implements it.
type Device interface {
	ReadStatus() (phy.Status, error)
	AckInterrupt() (mars.IntrEvents, error)
}

var _ Device = (*mars.Device)(nil)

// Config configures a Monitor. Zero values select defaults.
type Config struct {
	// Interval between periodic polls. Default 1s.
	Interval time.Duration
	// EventRate limits the rate of interrupt triggered polls per second. Default 10.
	EventRate rate.Limit
	// EventBurst is the number of interrupt triggered polls allowed back to back. Default 1.
	EventBurst int
	// MinBackoff and MaxBackoff bound the wait after a failed poll. Defaults 100ms and 10s.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Logger     *slog.Logger
	// OnChange is called from the polling goroutine with the lock held when
	// the link, speed or duplex change.
	OnChange func(old, new phy.Status)
}

// Monitor polls a Device and reports link changes.
type Monitor struct {
	mu       sync.Mutex
	dev      Device
	status   phy.Status
	events   mars.IntrEvents
	limiter  *rate.Limiter
	backoff  internal.Backoff
	interval time.Duration
	intr     chan struct{}
	onChange func(old, new phy.Status)
	log      *slog.Logger
}

// New returns a Monitor for dev.
func New(dev Device, cfg Config) (*Monitor, error) {
	if dev == nil {
		return nil, ctcphy.ErrInvalidConfig
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.EventRate <= 0 {
		cfg.EventRate = 10
	}
	if cfg.EventBurst <= 0 {
		cfg.EventBurst = 1
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = max(10*time.Second, cfg.MinBackoff)
	}
	m := &Monitor{
		dev:      dev,
		status:   phy.DownStatus(),
		limiter:  rate.NewLimiter(cfg.EventRate, cfg.EventBurst),
		backoff:  internal.NewBackoff(cfg.MinBackoff, cfg.MaxBackoff),
		interval: cfg.Interval,
		intr:     make(chan struct{}, 1),
		onChange: cfg.OnChange,
		log:      cfg.Logger,
	}
	return m, nil
}

// Interrupt signals that the PHY raised its interrupt line. It never blocks;
// interrupts signalled before Run handles the previous one are coalesced.
func (m *Monitor) Interrupt() {
	select {
	case m.intr <- struct{}{}:
	default:
	}
}

// Do runs fn with exclusive access to the device.
func (m *Monitor) Do(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

// Status returns the link status of the last successful poll.
func (m *Monitor) Status() phy.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Events returns and clears the interrupt events acknowledged since the last call.
func (m *Monitor) Events() mars.IntrEvents {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := m.events
	m.events = 0
	return ev
}

// Poll reads the link status once.
func (m *Monitor) Poll() (phy.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poll(false)
}

// Run polls the device until ctx is done. Polls happen every interval and after
// every interrupt, the latter rate limited. After a failed poll the next one is
// delayed with exponential backoff instead. Run returns the context's error or
// the first error that did not come from the bus.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		ack := false
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		case <-m.intr:
			err := m.limiter.Wait(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return err
			}
			ack = true
		}
		m.mu.Lock()
		_, err := m.poll(ack)
		m.mu.Unlock()
		wait := m.interval
		if err != nil && !IsTransient(err) {
			return err
		} else if err != nil {
			wait = m.backoff.Miss()
			internal.LogAttrs(m.log, slog.LevelError, "monitor:poll", slog.String("err", err.Error()), slog.Duration("retry", wait))
		} else {
			m.backoff.Hit()
		}
		timer.Reset(wait)
	}
}

// poll must be called with m.mu held.
func (m *Monitor) poll(ack bool) (phy.Status, error) {
	if ack {
		ev, err := m.dev.AckInterrupt()
		if err != nil {
			return m.status, err
		}
		m.events |= ev
		if ev != 0 {
			internal.LogAttrs(m.log, slog.LevelDebug, "monitor:intr", slog.String("events", ev.String()))
		}
	}
	st, err := m.dev.ReadStatus()
	if err != nil {
		return m.status, err
	}
	old := m.status
	m.status = st
	if st.Link != old.Link || st.Speed != old.Speed || st.Duplex != old.Duplex {
		internal.LogAttrs(m.log, slog.LevelInfo, "monitor:link", slog.String("status", st.String()))
		if m.onChange != nil {
			m.onChange(old, st)
		}
	}
	return st, nil
}

// IsTransient reports whether err came from the bus rather than from misuse of the device.
func IsTransient(err error) bool {
	var berr *phy.BusError
	return errors.As(err, &berr)
}
