package timebase

import (
	"errors"
	"time"
)

// ErrAberrantRejected is returned by Sync when a sample is aberrant and
// the aberration history does not yet justify re-anchoring the
// reference (i.e. fewer than three successive aberrant syncs).
var ErrAberrantRejected = errors.New("timebase: aberrant sync rejected")

// Sync folds a new GNSS fix into the reference tuple.
//
// countUS is the concentrator counter sample taken at the same instant
// as utc/gps. The implied crystal slope (counter ticks per UTC second)
// is checked against a +/-10ppm sanity window:
//
//   - a sane slope commits every field of the reference, including
//     XtalErr, and records this sync as non-aberrant in the history;
//   - an aberrant slope is rejected (Sync returns ErrAberrantRejected
//     and the reference is untouched) unless the previous two syncs
//     were also aberrant, in which case the reference re-anchors on
//     every field except XtalErr, which is reset to 1.0 only if the
//     currently stored XtalErr is itself out of range.
//
// The aberration history is always advanced, whether or not the
// reference was committed.
func (e *Estimator) Sync(countUS uint32, utc, gps time.Time) error {
	cntDiff := float64(countUS-e.ref.CountUS) / countsPerSecond
	utcDiff := utc.Sub(e.ref.UTC).Seconds()

	// The very first sync on a fresh Estimator bypasses the sanity
	// window: there is no prior reference to measure a meaningful
	// slope against, so the computed value (or 1.0, if utc_diff would
	// divide by zero) is accepted unconditionally. See DESIGN.md.
	if e.ref.SysTime.IsZero() {
		slope := 1.0
		if utcDiff != 0 {
			slope = cntDiff / utcDiff
		}
		e.ref = Ref{SysTime: time.Now(), CountUS: countUS, UTC: utc, GPS: gps, XtalErr: slope}
		e.aberMinus2 = e.aberMinus1
		e.aberMinus1 = false
		return nil
	}

	var aberrant bool
	var slope float64
	if utcDiff == 0 {
		aberrant = true
	} else {
		slope = cntDiff / utcDiff
		aberrant = slope > plus10ppm || slope < minus10ppm
	}

	defer func() {
		e.aberMinus2 = e.aberMinus1
		e.aberMinus1 = aberrant
	}()

	if !aberrant {
		e.ref = Ref{
			SysTime: time.Now(),
			CountUS: countUS,
			UTC:     utc,
			GPS:     gps,
			XtalErr: slope,
		}
		return nil
	}

	if e.aberMinus1 && e.aberMinus2 {
		xtalErr := e.ref.XtalErr
		if !xtalErrInRange(xtalErr) {
			xtalErr = 1.0
		}
		e.ref = Ref{
			SysTime: time.Now(),
			CountUS: countUS,
			UTC:     utc,
			GPS:     gps,
			XtalErr: xtalErr,
		}
		return nil
	}

	return ErrAberrantRejected
}
