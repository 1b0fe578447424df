package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRanges() map[Axis]Range {
	return map[Axis]Range{
		AxisX:     {Min: -10, Max: 10},
		AxisY:     {Min: -10, Max: 10},
		AxisZ:     {Min: 0, Max: 20},
		AxisRoll:  {Min: -90, Max: 90},
		AxisPitch: {Min: -90, Max: 90},
		AxisYaw:   {Min: -90, Max: 90},
		AxisGrip:  {Min: 0, Max: 100},
	}
}

func TestDefaultLimits_CoversAllAxes(t *testing.T) {
	l := DefaultLimits()
	for _, axis := range Axes() {
		r, ok := l.Range(axis)
		require.True(t, ok, "missing range for %s", axis)
		assert.LessOrEqual(t, r.Min, r.Max, axis)
	}

	x, _ := l.Range(AxisX)
	assert.Equal(t, Range{Min: -80, Max: 80}, x)
	z, _ := l.Range(AxisZ)
	assert.Equal(t, Range{Min: 0, Max: 90}, z)
	grip, _ := l.Range(AxisGrip)
	assert.Equal(t, Range{Min: 0, Max: 100}, grip)
}

func TestNewLimits(t *testing.T) {
	l, err := NewLimits(fullRanges())
	require.NoError(t, err)
	r, _ := l.Range(AxisZ)
	assert.Equal(t, Range{Min: 0, Max: 20}, r)

	t.Run("missing axis", func(t *testing.T) {
		ranges := fullRanges()
		delete(ranges, AxisYaw)
		_, err := NewLimits(ranges)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
		e, _ := AsError(err)
		assert.Equal(t, AxisYaw, e.Field)
	})

	t.Run("inverted range", func(t *testing.T) {
		ranges := fullRanges()
		ranges[AxisX] = Range{Min: 5, Max: -5}
		_, err := NewLimits(ranges)
		require.Error(t, err)
		e, _ := AsError(err)
		assert.Equal(t, KindConfiguration, e.Kind)
		assert.Equal(t, AxisX, e.Field)
	})

	t.Run("non-finite bound", func(t *testing.T) {
		ranges := fullRanges()
		ranges[AxisGrip] = Range{Min: 0, Max: math.Inf(1)}
		_, err := NewLimits(ranges)
		require.Error(t, err)
	})

	t.Run("unknown axis", func(t *testing.T) {
		ranges := fullRanges()
		ranges[Axis("elbow")] = Range{Min: 0, Max: 1}
		_, err := NewLimits(ranges)
		require.Error(t, err)
	})

	t.Run("degenerate range allowed", func(t *testing.T) {
		ranges := fullRanges()
		ranges[AxisGrip] = Range{Min: 50, Max: 50}
		_, err := NewLimits(ranges)
		require.NoError(t, err)
	})
}

func TestWithOverride_ReplacesWholeEnvelope(t *testing.T) {
	base := DefaultLimits()
	assert.True(t, WithOverride(base, nil).Equal(base))

	override, err := NewLimits(fullRanges())
	require.NoError(t, err)

	effective := WithOverride(base, &override)
	assert.True(t, effective.Equal(override))

	// Base stays untouched.
	x, _ := base.Range(AxisX)
	assert.Equal(t, Range{Min: -80, Max: 80}, x)
}

func TestLimits_RangesReturnsCopy(t *testing.T) {
	l := DefaultLimits()
	ranges := l.Ranges()
	ranges[AxisX] = Range{Min: 0, Max: 0}

	x, _ := l.Range(AxisX)
	assert.Equal(t, Range{Min: -80, Max: 80}, x)
}

func TestPartialPose_Complete(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	p := PartialPose{X: f(1), Y: f(2), Z: f(3), Roll: f(0), Pitch: f(0), Yaw: f(0), Grip: f(50)}
	pose, err := p.Complete()
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 1, Y: 2, Z: 3, Grip: 50}, pose)

	p.Pitch = nil
	_, err = p.Complete()
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidInput, e.Kind)
	assert.Equal(t, AxisPitch, e.Field)
}

func TestLimitsFromNames(t *testing.T) {
	names := make(map[string]Range)
	for axis, r := range fullRanges() {
		names[string(axis)] = r
	}
	l, err := LimitsFromNames(names)
	require.NoError(t, err)
	r, _ := l.Range(AxisRoll)
	assert.Equal(t, Range{Min: -90, Max: 90}, r)

	names["wrist"] = Range{Min: 0, Max: 1}
	_, err = LimitsFromNames(names)
	assert.ErrorIs(t, err, ErrConfiguration)
}
