package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
)

// fakeElement records applied rates.
type fakeElement struct {
	rate    float64
	applied []float64
	fail    bool
}

func (f *fakeElement) Rate() float64 { return f.rate }

func (f *fakeElement) SetRate(rate float64) error {
	if f.fail {
		return apperrors.Unavailable("element gone")
	}
	f.rate = rate
	f.applied = append(f.applied, rate)
	return nil
}

func TestDriver_SetRate_Notifies(t *testing.T) {
	el := &fakeElement{rate: 1.0}
	d := NewDriver(el)

	var notified []float64
	d.OnRateChange(func(rate float64) {
		notified = append(notified, rate)
	})

	rate, err := d.SetRate(1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rate)
	assert.Equal(t, []float64{1.5}, notified)
	assert.Equal(t, 1.5, el.rate)
}

func TestDriver_SetRate_Clamps(t *testing.T) {
	d := NewDriver(&fakeElement{rate: 1.0})

	rate, err := d.SetRate(99)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rate)

	rate, err = d.SetRate(0.01)
	require.NoError(t, err)
	assert.Equal(t, 0.1, rate)
}

func TestDriver_Restore_DoesNotNotify(t *testing.T) {
	el := &fakeElement{rate: 1.0}
	d := NewDriver(el)

	var notified []float64
	d.OnRateChange(func(rate float64) {
		notified = append(notified, rate)
	})

	require.NoError(t, d.Restore(2.0))
	assert.Empty(t, notified)
	assert.Equal(t, 2.0, el.rate)
	assert.Equal(t, 2.0, d.Rate())
}

func TestDriver_Restore_KeepsStoredPrecision(t *testing.T) {
	el := &fakeElement{rate: 1.0}
	d := NewDriver(el)

	// A remembered 1.75 comes back as 1.75, not snapped to the step grid.
	require.NoError(t, d.Restore(1.75))
	assert.Equal(t, 1.75, el.rate)

	// Out-of-range stored values are still bounded.
	require.NoError(t, d.Restore(9.0))
	assert.Equal(t, 5.0, el.rate)
}

func TestDriver_Step(t *testing.T) {
	d := NewDriver(&fakeElement{rate: 1.0})

	var notified []float64
	d.OnRateChange(func(rate float64) {
		notified = append(notified, rate)
	})

	rate, err := d.Step(1)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, rate, 1e-9)

	rate, err = d.Step(-1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate, 1e-9)

	assert.Len(t, notified, 2)

	_, err = d.Step(3)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDriver_Step_ClampsAtBounds(t *testing.T) {
	d := NewDriver(&fakeElement{rate: 5.0})

	rate, err := d.Step(1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, rate)
}

func TestDriver_ObserveRate_NotifiesOnce(t *testing.T) {
	d := NewDriver(&fakeElement{rate: 1.0})

	var notified []float64
	d.OnRateChange(func(rate float64) {
		notified = append(notified, rate)
	})

	d.ObserveRate(1.7)
	d.ObserveRate(1.7) // unchanged, no second notification
	assert.Equal(t, []float64{1.7}, notified)
	assert.Equal(t, 1.7, d.Rate())
}

func TestDriver_Replace_ReappliesWithoutNotifying(t *testing.T) {
	d := NewDriver(&fakeElement{rate: 1.0})
	_, err := d.SetRate(1.5)
	require.NoError(t, err)

	var notified []float64
	d.OnRateChange(func(rate float64) {
		notified = append(notified, rate)
	})

	replacement := &fakeElement{rate: 1.0}
	require.NoError(t, d.Replace(replacement))

	assert.Equal(t, []float64{1.5}, replacement.applied)
	assert.Empty(t, notified)
}

func TestDriver_SetRate_ElementFailure(t *testing.T) {
	el := &fakeElement{rate: 1.0, fail: true}
	d := NewDriver(el)

	_, err := d.SetRate(1.5)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	// Rate is unchanged after a failed apply.
	assert.Equal(t, 1.0, d.Rate())
}
