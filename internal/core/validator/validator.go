// Package validator checks commanded poses against a safety envelope before
// anything is sent to the controller. It performs no I/O.
package validator

import (
	"fmt"
	"math"

	"github.com/vietddude/armctl/internal/core/domain"
)

// Validate returns pose unchanged when every field is finite and inside the
// inclusive ranges of limits. The first failure wins: all fields are checked
// for finiteness (in canonical axis order) before any range is checked.
// Out-of-range values are rejected, never clamped.
func Validate(pose domain.Pose, limits domain.Limits) (domain.Pose, error) {
	for _, axis := range domain.Axes() {
		v, _ := pose.Get(axis)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Pose{}, &domain.Error{
				Kind:    domain.KindInvalidInput,
				Field:   axis,
				Value:   v,
				Message: fmt.Sprintf("%s must be a finite number, got %v", axis, v),
			}
		}
	}

	for _, axis := range domain.Axes() {
		v, _ := pose.Get(axis)
		r, ok := limits.Range(axis)
		if !ok {
			return domain.Pose{}, &domain.Error{
				Kind:    domain.KindConfiguration,
				Field:   axis,
				Message: fmt.Sprintf("no limits configured for %s", axis),
			}
		}
		if v < r.Min {
			return domain.Pose{}, outOfEnvelope(axis, v, "min", r)
		}
		if v > r.Max {
			return domain.Pose{}, outOfEnvelope(axis, v, "max", r)
		}
	}

	return pose, nil
}

// ValidatePartial completes a pose read from loose input and validates it.
func ValidatePartial(p domain.PartialPose, limits domain.Limits) (domain.Pose, error) {
	pose, err := p.Complete()
	if err != nil {
		return domain.Pose{}, err
	}
	return Validate(pose, limits)
}

func outOfEnvelope(axis domain.Axis, v float64, bound string, r domain.Range) *domain.Error {
	limit := r.Min
	if bound == "max" {
		limit = r.Max
	}
	return &domain.Error{
		Kind:  domain.KindOutOfEnvelope,
		Field: axis,
		Value: v,
		Bound: bound,
		Limit: limit,
		Message: fmt.Sprintf(
			"%s=%.2f is outside the safe range [%.2f, %.2f]; adjust the command or the configured limits",
			axis, v, r.Min, r.Max,
		),
	}
}
