package timebase

import "time"

// countsPerSecond is the concentrator counter's tick rate (1 MHz).
const countsPerSecond = 1e6

// plus10ppm and minus10ppm bound the sane range for xtal_err: a crystal
// slope more than 10 parts-per-million away from 1.0 is rejected as an
// aberrant sync rather than committed to the reference.
const (
	plus10ppm  = 1.00001
	minus10ppm = 0.99999
)

// GPSEpoch is the origin of GPS time (1980-01-06T00:00:00Z).
var GPSEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// Ref is the calibrated correspondence between the concentrator counter,
// UTC and GPS time at the instant of the last accepted sync.
//
// SysTime is the host wall-clock time of that sync; the zero Time means
// the reference is uninitialized. XtalErr is the dimensionless ratio of
// counter ticks to UTC seconds, expected in (0.99999, 1.00001).
type Ref struct {
	SysTime time.Time
	CountUS uint32
	UTC     time.Time
	GPS     time.Time
	XtalErr float64
}

// Estimator owns exactly one reference tuple plus the private two-sync
// aberration history used to decide when to re-anchor the reference.
// It is not safe for concurrent use: the caller serializes Sync and the
// conversion methods the same way it serializes the frame decoder.
type Estimator struct {
	ref Ref

	// aberrant history: N-1 and N-2 are reset only by constructing a
	// new Estimator (equivalent to a process restart in the source).
	aberMinus1 bool
	aberMinus2 bool
}

// New returns an Estimator with an uninitialized reference.
func New() *Estimator {
	return &Estimator{}
}

// Ref returns a copy of the current reference tuple.
func (e *Estimator) Ref() Ref {
	return e.ref
}

func xtalErrInRange(v float64) bool {
	return v > minus10ppm && v < plus10ppm
}
