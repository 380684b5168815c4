package devices

import (
	"errors"
	"fmt"
)

// ErrDeviceFault marks hardware-reported failures. Match with errors.Is.
var ErrDeviceFault = errors.New("device fault")

// Fault reports a device failure with enough context to decide whether the
// run can continue: non-actuator faults cost one slide, actuator faults
// cost the run.
type Fault struct {
	Station Station
	Op      string
	Err     error
}

// NewFault wraps err as a device fault at the given station and operation.
func NewFault(station Station, op string, err error) *Fault {
	return &Fault{Station: station, Op: op, Err: err}
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("device fault: %s %s", f.Station, f.Op)
	}
	return fmt.Sprintf("device fault: %s %s: %v", f.Station, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func (f *Fault) Is(target error) bool { return target == ErrDeviceFault }

// Actuator reports whether the faulting station is the shared robot arm.
func (f *Fault) Actuator() bool { return f.Station == StationRobot }

// AsFault extracts a *Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault, true
	}
	return nil, false
}
