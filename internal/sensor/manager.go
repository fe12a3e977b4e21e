package sensor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager implements Service by polling registered Devices. Each subscription
// runs its own goroutine; a listener sees events of one subscription in order
// and never concurrently.
//
// Listeners must not call Unsubscribe from inside OnReading or
// OnAccuracyChanged: Unsubscribe waits for the delivering goroutine.
type Manager struct {
	logger *zap.SugaredLogger

	mu      sync.Mutex
	devices map[Kind]Device
	subs    map[Listener][]*subscription
	closed  bool
}

type subscription struct {
	capability *Capability
	device     Device
	rate       RateHint
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewManager returns a Manager with the given devices registered. The first
// device of each kind becomes the default for that kind.
func NewManager(logger *zap.SugaredLogger, devices ...Device) *Manager {
	m := &Manager{
		logger:  logger,
		devices: make(map[Kind]Device),
		subs:    make(map[Listener][]*subscription),
	}
	for _, d := range devices {
		m.Register(d)
	}
	return m
}

// Register adds a device. It is ignored if a default for its kind exists.
func (m *Manager) Register(d Device) {
	if d == nil {
		return
	}
	c := d.Capability()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[c.Kind]; ok {
		m.logger.Warnf("sensor: %s %q ignored, default already registered", c.Kind, c.Name)
		return
	}
	m.devices[c.Kind] = d
	m.logger.Infof("sensor: registered %s %q (vendor %s, range ±%.2f)", c.Kind, c.Name, c.Vendor, c.MaxRange)
}

// DefaultSensor implements Service.
func (m *Manager) DefaultSensor(kind Kind) *Capability {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[kind]
	if !ok {
		return nil
	}
	return d.Capability()
}

// Subscribe implements Service. It returns false when c does not belong to a
// registered device or the manager is closed.
func (m *Manager) Subscribe(l Listener, c *Capability, rate RateHint) bool {
	if l == nil || c == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	d, ok := m.devices[c.Kind]
	if !ok || d.Capability() != c {
		m.logger.Warnf("sensor: subscribe to unknown %s %q", c.Kind, c.Name)
		return false
	}
	for _, s := range m.subs[l] {
		if s.capability == c {
			return true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		capability: c,
		device:     d,
		rate:       rate,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	m.subs[l] = append(m.subs[l], s)
	go m.poll(ctx, l, s)

	m.logger.Debugf("sensor: subscribed to %s %q at rate %s", c.Kind, c.Name, rate)
	return true
}

// Unsubscribe implements Service.
func (m *Manager) Unsubscribe(l Listener) {
	m.mu.Lock()
	subs := m.subs[l]
	delete(m.subs, l)
	m.mu.Unlock()

	stop(subs)
	if len(subs) > 0 {
		m.logger.Debugf("sensor: removed %d subscription(s)", len(subs))
	}
}

// ActiveSubscriptions returns the number of live subscriptions.
func (m *Manager) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, subs := range m.subs {
		n += len(subs)
	}
	return n
}

// Close stops all subscriptions and closes every registered device.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*subscription
	for l, subs := range m.subs {
		all = append(all, subs...)
		delete(m.subs, l)
	}
	devices := m.devices
	m.devices = make(map[Kind]Device)
	m.mu.Unlock()

	stop(all)

	var err error
	for _, d := range devices {
		err = multierr.Append(err, d.Close())
	}
	return err
}

func stop(subs []*subscription) {
	for _, s := range subs {
		s.cancel()
	}
	for _, s := range subs {
		<-s.done
	}
}

func (m *Manager) poll(ctx context.Context, l Listener, s *subscription) {
	defer close(s.done)

	ticker := time.NewTicker(s.rate.Interval())
	defer ticker.Stop()

	var (
		lastAccuracy Accuracy
		haveAccuracy bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			reading, accuracy, err := s.device.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Debugf("sensor: %s %q read error: %v", s.capability.Kind, s.capability.Name, err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			if !haveAccuracy || accuracy != lastAccuracy {
				lastAccuracy, haveAccuracy = accuracy, true
				l.OnAccuracyChanged(s.capability, accuracy)
			}
			l.OnReading(Event{
				Capability: s.capability,
				Reading:    reading,
				Accuracy:   accuracy,
				Timestamp:  t,
			})
		}
	}
}
