package playback

import (
	"sync"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
)

// RateListener is notified when the playback rate changes through a user
// action or an external change. Restored rates do not notify, so applying
// a remembered speed never re-records it.
type RateListener func(rate float64)

// Driver owns the playback rate of one tab's media element. All entry
// points serialize on an internal mutex.
type Driver struct {
	mu        sync.Mutex
	element   Element
	listeners []RateListener
	// lastApplied is reapplied when the page swaps its media element out
	// from under us.
	lastApplied float64
}

// NewDriver creates a driver for the given element.
func NewDriver(element Element) *Driver {
	return &Driver{
		element:     element,
		lastApplied: element.Rate(),
	}
}

// OnRateChange registers a listener for user-driven and external rate changes.
func (d *Driver) OnRateChange(fn RateListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Rate returns the current playback rate.
func (d *Driver) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastApplied
}

// SetRate applies a user-chosen rate and notifies listeners. The rate is
// clamped to the supported range first.
func (d *Driver) SetRate(rate float64) (float64, error) {
	d.mu.Lock()
	rate = domain.ClampSpeed(rate)
	if err := d.element.SetRate(rate); err != nil {
		d.mu.Unlock()
		return 0, err
	}
	d.lastApplied = rate
	listeners := append([]RateListener(nil), d.listeners...)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(rate)
	}
	return rate, nil
}

// Restore applies a remembered rate without notifying listeners. Used when
// resolving the speed for a new page or reapplying after the media element
// is replaced. Stored rates are bounded but never re-rounded.
func (d *Driver) Restore(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rate = domain.BoundSpeed(rate)
	if err := d.element.SetRate(rate); err != nil {
		return err
	}
	d.lastApplied = rate
	return nil
}

// Step adjusts the rate by one increment in the given direction (+1 or -1)
// and notifies listeners.
func (d *Driver) Step(direction int) (float64, error) {
	if direction != 1 && direction != -1 {
		return 0, apperrors.Validationf("step direction must be 1 or -1, got %d", direction)
	}
	return d.SetRate(d.Rate() + float64(direction)*domain.SpeedStep)
}

// ObserveRate records a rate change made by the page itself and notifies
// listeners so it is remembered like a user choice.
func (d *Driver) ObserveRate(rate float64) {
	d.mu.Lock()
	rate = domain.ClampSpeed(rate)
	if rate == d.lastApplied {
		d.mu.Unlock()
		return
	}
	d.lastApplied = rate
	listeners := append([]RateListener(nil), d.listeners...)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(rate)
	}
}

// Replace swaps in a new element and reapplies the last rate to it. The
// reapply is a restore, so listeners are not notified.
func (d *Driver) Replace(element Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := element.SetRate(d.lastApplied); err != nil {
		return err
	}
	d.element = element
	return nil
}
