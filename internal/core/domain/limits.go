package domain

import (
	"fmt"
	"math"
)

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64 `json:"min" yaml:"min" mapstructure:"min"`
	Max float64 `json:"max" yaml:"max" mapstructure:"max"`
}

// Contains reports whether v lies inside the inclusive range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Limits is the safety envelope for every axis. Values are immutable: the
// only ways to obtain one are NewLimits and DefaultLimits, and every
// instance carries a well-ordered range for all seven axes.
type Limits struct {
	ranges map[Axis]Range
}

// NewLimits builds an envelope from a complete axis → range mapping.
func NewLimits(ranges map[Axis]Range) (Limits, error) {
	for axis := range ranges {
		if !axis.Valid() {
			return Limits{}, &Error{
				Kind:    KindConfiguration,
				Field:   axis,
				Message: fmt.Sprintf("unknown axis %q in limits", axis),
			}
		}
	}

	out := make(map[Axis]Range, len(axes))
	for _, axis := range axes {
		r, ok := ranges[axis]
		if !ok {
			return Limits{}, &Error{
				Kind:    KindConfiguration,
				Field:   axis,
				Message: fmt.Sprintf("limits for %s are missing", axis),
			}
		}
		if math.IsNaN(r.Min) || math.IsInf(r.Min, 0) || math.IsNaN(r.Max) || math.IsInf(r.Max, 0) {
			return Limits{}, &Error{
				Kind:    KindConfiguration,
				Field:   axis,
				Message: fmt.Sprintf("limits for %s must be finite", axis),
			}
		}
		if r.Min > r.Max {
			return Limits{}, &Error{
				Kind:    KindConfiguration,
				Field:   axis,
				Message: fmt.Sprintf("limits for %s have min %.2f greater than max %.2f", axis, r.Min, r.Max),
			}
		}
		out[axis] = r
	}

	return Limits{ranges: out}, nil
}

// DefaultLimits returns the built-in conservative envelope.
func DefaultLimits() Limits {
	return Limits{ranges: map[Axis]Range{
		AxisX:     {Min: -80, Max: 80},
		AxisY:     {Min: -80, Max: 80},
		AxisZ:     {Min: 0, Max: 90},
		AxisRoll:  {Min: -180, Max: 180},
		AxisPitch: {Min: -180, Max: 180},
		AxisYaw:   {Min: -180, Max: 180},
		AxisGrip:  {Min: 0, Max: 100},
	}}
}

// WithOverride returns the envelope effective for a single call. A non-nil
// override replaces base entirely; ranges are never merged per axis.
func WithOverride(base Limits, override *Limits) Limits {
	if override == nil || override.IsZero() {
		return base
	}
	return *override
}

// IsZero reports whether l is the zero value (never produced by a constructor).
func (l Limits) IsZero() bool {
	return l.ranges == nil
}

// Range returns the inclusive range configured for axis.
func (l Limits) Range(axis Axis) (Range, bool) {
	r, ok := l.ranges[axis]
	return r, ok
}

// Ranges returns a copy of the axis → range mapping.
func (l Limits) Ranges() map[Axis]Range {
	out := make(map[Axis]Range, len(l.ranges))
	for k, v := range l.ranges {
		out[k] = v
	}
	return out
}

// Equal reports whether both envelopes have identical ranges.
func (l Limits) Equal(other Limits) bool {
	if len(l.ranges) != len(other.ranges) {
		return false
	}
	for axis, r := range l.ranges {
		if other.ranges[axis] != r {
			return false
		}
	}
	return true
}

// LimitsFromNames is NewLimits for decoded input keyed by wire names such as
// "x_cm".
func LimitsFromNames(ranges map[string]Range) (Limits, error) {
	byAxis := make(map[Axis]Range, len(ranges))
	for name, r := range ranges {
		byAxis[Axis(name)] = r
	}
	return NewLimits(byAxis)
}
