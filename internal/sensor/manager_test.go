package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/relabs-tech/accel_readout/internal/imu"
)

type fakeDevice struct {
	capability *Capability

	mu       sync.Mutex
	reading  imu.Reading
	accuracy Accuracy
	err      error
	closed   bool
}

func newFakeDevice(kind Kind) *fakeDevice {
	return &fakeDevice{
		capability: &Capability{Kind: kind, Name: "fake " + kind.String(), Vendor: "test"},
		accuracy:   AccuracyHigh,
	}
}

func (d *fakeDevice) Capability() *Capability { return d.capability }

func (d *fakeDevice) Read(context.Context) (imu.Reading, Accuracy, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reading, d.accuracy, d.err
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) set(r imu.Reading, a Accuracy, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reading, d.accuracy, d.err = r, a, err
}

type recordingListener struct {
	mu         sync.Mutex
	events     []Event
	accuracies []Accuracy
}

func (l *recordingListener) OnReading(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *recordingListener) OnAccuracyChanged(_ *Capability, a Accuracy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accuracies = append(l.accuracies, a)
}

func (l *recordingListener) eventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *recordingListener) accuracyLog() []Accuracy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Accuracy(nil), l.accuracies...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestManagerDefaultSensor(t *testing.T) {
	accel := newFakeDevice(KindAccelerometer)
	second := newFakeDevice(KindAccelerometer)
	m := NewManager(zaptest.NewLogger(t).Sugar(), accel, second, nil)

	test.That(t, m.DefaultSensor(KindAccelerometer), test.ShouldEqual, accel.capability)
	test.That(t, m.DefaultSensor(KindGyroscope), test.ShouldBeNil)
}

func TestManagerSubscribe(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	t.Run("delivers events until unsubscribed", func(t *testing.T) {
		dev := newFakeDevice(KindAccelerometer)
		dev.set(imu.Reading{X: 1, Y: 2, Z: 3}, AccuracyHigh, nil)
		m := NewManager(logger, dev)
		l := &recordingListener{}

		ok := m.Subscribe(l, m.DefaultSensor(KindAccelerometer), RateFastest)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, m.ActiveSubscriptions(), test.ShouldEqual, 1)

		waitFor(t, func() bool { return l.eventCount() >= 3 })
		m.Unsubscribe(l)
		test.That(t, m.ActiveSubscriptions(), test.ShouldEqual, 0)

		n := l.eventCount()
		time.Sleep(30 * time.Millisecond)
		test.That(t, l.eventCount(), test.ShouldEqual, n)

		l.mu.Lock()
		ev := l.events[0]
		l.mu.Unlock()
		test.That(t, ev.Capability, test.ShouldEqual, dev.capability)
		test.That(t, ev.Reading, test.ShouldResemble, imu.Reading{X: 1, Y: 2, Z: 3})
	})

	t.Run("duplicate subscribe keeps one subscription", func(t *testing.T) {
		dev := newFakeDevice(KindAccelerometer)
		m := NewManager(logger, dev)
		l := &recordingListener{}
		c := m.DefaultSensor(KindAccelerometer)

		test.That(t, m.Subscribe(l, c, RateNormal), test.ShouldBeTrue)
		test.That(t, m.Subscribe(l, c, RateNormal), test.ShouldBeTrue)
		test.That(t, m.ActiveSubscriptions(), test.ShouldEqual, 1)
		m.Unsubscribe(l)
	})

	t.Run("unknown capability is rejected", func(t *testing.T) {
		m := NewManager(logger, newFakeDevice(KindAccelerometer))
		foreign := &Capability{Kind: KindAccelerometer, Name: "foreign"}

		test.That(t, m.Subscribe(&recordingListener{}, foreign, RateNormal), test.ShouldBeFalse)
		test.That(t, m.Subscribe(&recordingListener{}, nil, RateNormal), test.ShouldBeFalse)
		test.That(t, m.ActiveSubscriptions(), test.ShouldEqual, 0)
	})

	t.Run("unsubscribe without subscription is a no-op", func(t *testing.T) {
		m := NewManager(logger)
		l := &recordingListener{}
		m.Unsubscribe(l)
		m.Unsubscribe(l)
		test.That(t, m.ActiveSubscriptions(), test.ShouldEqual, 0)
	})

	t.Run("read errors are skipped", func(t *testing.T) {
		dev := newFakeDevice(KindAccelerometer)
		dev.set(imu.Reading{}, AccuracyHigh, errors.New("bus error"))
		m := NewManager(logger, dev)
		l := &recordingListener{}

		m.Subscribe(l, dev.capability, RateFastest)
		time.Sleep(30 * time.Millisecond)
		test.That(t, l.eventCount(), test.ShouldEqual, 0)

		dev.set(imu.Reading{Z: 9.8}, AccuracyHigh, nil)
		waitFor(t, func() bool { return l.eventCount() > 0 })
		m.Unsubscribe(l)
	})
}

func TestManagerAccuracyChanges(t *testing.T) {
	dev := newFakeDevice(KindAccelerometer)
	dev.set(imu.Reading{}, AccuracyLow, nil)
	m := NewManager(zaptest.NewLogger(t).Sugar(), dev)
	l := &recordingListener{}

	m.Subscribe(l, dev.capability, RateFastest)
	waitFor(t, func() bool { return l.eventCount() >= 2 })
	dev.set(imu.Reading{}, AccuracyHigh, nil)
	waitFor(t, func() bool { return len(l.accuracyLog()) >= 2 })
	m.Unsubscribe(l)

	test.That(t, l.accuracyLog(), test.ShouldResemble, []Accuracy{AccuracyLow, AccuracyHigh})
}

func TestManagerClose(t *testing.T) {
	dev := newFakeDevice(KindAccelerometer)
	m := NewManager(zaptest.NewLogger(t).Sugar(), dev)
	l := &recordingListener{}
	m.Subscribe(l, dev.capability, RateFastest)

	test.That(t, m.Close(), test.ShouldBeNil)
	test.That(t, m.ActiveSubscriptions(), test.ShouldEqual, 0)
	test.That(t, dev.closed, test.ShouldBeTrue)
	test.That(t, m.Subscribe(l, dev.capability, RateFastest), test.ShouldBeFalse)
	test.That(t, m.Close(), test.ShouldBeNil)
}

func TestParseRateHint(t *testing.T) {
	for in, want := range map[string]RateHint{
		"normal":  RateNormal,
		"":        RateNormal,
		"UI":      RateUI,
		"game":    RateGame,
		"fastest": RateFastest,
	} {
		got, err := ParseRateHint(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}

	_, err := ParseRateHint("turbo")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, RateFastest.Interval(), test.ShouldEqual, minInterval)
	test.That(t, RateNormal.Interval(), test.ShouldEqual, 200*time.Millisecond)
}
