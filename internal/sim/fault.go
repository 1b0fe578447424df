package sim

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FaultKind names an injected misbehaviour.
type FaultKind string

const (
	// FaultReset drops the TCP connection without answering.
	FaultReset FaultKind = "reset"
	// FaultStatus answers with a fixed non-2xx status.
	FaultStatus FaultKind = "status"
	// FaultGarbage answers 200 with a body that is not JSON.
	FaultGarbage FaultKind = "garbage"
	// FaultArray answers 200 with a JSON array instead of an object.
	FaultArray FaultKind = "array"
	// FaultSlow delays the normal answer.
	FaultSlow FaultKind = "slow"
)

// Fault is one injected failure, applied to a single request.
type Fault struct {
	Kind   FaultKind
	Status int
	Delay  time.Duration
}

func (f Fault) String() string {
	switch f.Kind {
	case FaultStatus:
		return fmt.Sprintf("status:%d", f.Status)
	case FaultSlow:
		return fmt.Sprintf("slow:%s", f.Delay)
	default:
		return string(f.Kind)
	}
}

// ParseFault reads the textual form used on the armsim command line:
// reset, garbage, array, status:<code> or slow:<duration>.
func ParseFault(s string) (Fault, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(s), ":")

	switch FaultKind(kind) {
	case FaultReset, FaultGarbage, FaultArray:
		if arg != "" {
			return Fault{}, fmt.Errorf("fault %q takes no argument", kind)
		}
		return Fault{Kind: FaultKind(kind)}, nil
	case FaultStatus:
		code, err := strconv.Atoi(arg)
		if err != nil || code < 100 || code > 599 {
			return Fault{}, fmt.Errorf("invalid status fault %q", s)
		}
		return Fault{Kind: FaultStatus, Status: code}, nil
	case FaultSlow:
		d, err := time.ParseDuration(arg)
		if err != nil || d < 0 {
			return Fault{}, fmt.Errorf("invalid slow fault %q", s)
		}
		return Fault{Kind: FaultSlow, Delay: d}, nil
	default:
		return Fault{}, fmt.Errorf("unknown fault %q", s)
	}
}
