package domain

import (
	"fmt"
	"math"
)

// Axis names one commandable degree of freedom. The string value is the
// field name the controller expects on the wire.
type Axis string

const (
	AxisX     Axis = "x_cm"
	AxisY     Axis = "y_cm"
	AxisZ     Axis = "z_cm"
	AxisRoll  Axis = "roll_deg"
	AxisPitch Axis = "pitch_deg"
	AxisYaw   Axis = "yaw_deg"
	AxisGrip  Axis = "grip"
)

var axes = [...]Axis{AxisX, AxisY, AxisZ, AxisRoll, AxisPitch, AxisYaw, AxisGrip}

// Axes returns every axis in canonical order (x, y, z, roll, pitch, yaw, grip).
func Axes() []Axis {
	out := make([]Axis, len(axes))
	copy(out, axes[:])
	return out
}

// Valid reports whether a is one of the seven known axes.
func (a Axis) Valid() bool {
	for _, known := range axes {
		if a == known {
			return true
		}
	}
	return false
}

// Unit returns the physical unit of the axis.
func (a Axis) Unit() string {
	switch a {
	case AxisX, AxisY, AxisZ:
		return "cm"
	case AxisRoll, AxisPitch, AxisYaw:
		return "deg"
	case AxisGrip:
		return "%"
	default:
		return ""
	}
}

// Pose is an absolute tool-centre-point target plus gripper opening.
// Lengths are centimetres, angles degrees, grip a percentage.
type Pose struct {
	X     float64 `json:"x_cm"`
	Y     float64 `json:"y_cm"`
	Z     float64 `json:"z_cm"`
	Roll  float64 `json:"roll_deg"`
	Pitch float64 `json:"pitch_deg"`
	Yaw   float64 `json:"yaw_deg"`
	Grip  float64 `json:"grip"`
}

// Get returns the value of the given axis. Unknown axes return 0, false.
func (p Pose) Get(a Axis) (float64, bool) {
	switch a {
	case AxisX:
		return p.X, true
	case AxisY:
		return p.Y, true
	case AxisZ:
		return p.Z, true
	case AxisRoll:
		return p.Roll, true
	case AxisPitch:
		return p.Pitch, true
	case AxisYaw:
		return p.Yaw, true
	case AxisGrip:
		return p.Grip, true
	default:
		return 0, false
	}
}

// Finite reports whether every field is a finite number.
func (p Pose) Finite() bool {
	for _, a := range axes {
		v, _ := p.Get(a)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// String renders the pose the way operators read it in logs.
func (p Pose) String() string {
	return fmt.Sprintf(
		"x=%.2fcm, y=%.2fcm, z=%.2fcm, roll=%.2fdeg, pitch=%.2fdeg, yaw=%.2fdeg, grip=%g%%",
		p.X, p.Y, p.Z, p.Roll, p.Pitch, p.Yaw, p.Grip,
	)
}

// PartialPose is a pose as read from loosely structured input, where any
// field may be absent.
type PartialPose struct {
	X     *float64 `json:"x_cm"      yaml:"x_cm"      mapstructure:"x_cm"`
	Y     *float64 `json:"y_cm"      yaml:"y_cm"      mapstructure:"y_cm"`
	Z     *float64 `json:"z_cm"      yaml:"z_cm"      mapstructure:"z_cm"`
	Roll  *float64 `json:"roll_deg"  yaml:"roll_deg"  mapstructure:"roll_deg"`
	Pitch *float64 `json:"pitch_deg" yaml:"pitch_deg" mapstructure:"pitch_deg"`
	Yaw   *float64 `json:"yaw_deg"   yaml:"yaw_deg"   mapstructure:"yaw_deg"`
	Grip  *float64 `json:"grip"      yaml:"grip"      mapstructure:"grip"`
}

// Complete returns the full pose, or an InvalidInput error naming the first
// missing axis. There are no implicit defaults.
func (p PartialPose) Complete() (Pose, error) {
	fields := []struct {
		axis Axis
		v    *float64
	}{
		{AxisX, p.X}, {AxisY, p.Y}, {AxisZ, p.Z},
		{AxisRoll, p.Roll}, {AxisPitch, p.Pitch}, {AxisYaw, p.Yaw},
		{AxisGrip, p.Grip},
	}
	for _, f := range fields {
		if f.v == nil {
			return Pose{}, &Error{
				Kind:    KindInvalidInput,
				Field:   f.axis,
				Message: fmt.Sprintf("%s is required", f.axis),
			}
		}
	}
	return Pose{
		X:     *p.X,
		Y:     *p.Y,
		Z:     *p.Z,
		Roll:  *p.Roll,
		Pitch: *p.Pitch,
		Yaw:   *p.Yaw,
		Grip:  *p.Grip,
	}, nil
}
