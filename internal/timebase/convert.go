package timebase

import (
	"errors"
	"math"
	"time"
)

// ErrUncalibrated is returned by every conversion when the reference
// has never been synced, or its crystal error has drifted outside the
// +/-10ppm sanity window.
var ErrUncalibrated = errors.New("timebase: reference uncalibrated")

func (e *Estimator) checkCalibrated() error {
	if e.ref.SysTime.IsZero() || !xtalErrInRange(e.ref.XtalErr) {
		return ErrUncalibrated
	}
	return nil
}

// CntToUTC converts a concentrator counter sample to UTC using the
// current reference. Counter arithmetic wraps modulo 2^32; callers more
// than ~35 minutes from the reference get numerically meaningless
// results.
func (e *Estimator) CntToUTC(countUS uint32) (time.Time, error) {
	if err := e.checkCalibrated(); err != nil {
		return time.Time{}, err
	}
	return cntToTime(countUS, e.ref.CountUS, e.ref.UTC, e.ref.XtalErr), nil
}

// UTCToCnt converts a UTC instant to the equivalent concentrator
// counter value using the current reference.
func (e *Estimator) UTCToCnt(utc time.Time) (uint32, error) {
	if err := e.checkCalibrated(); err != nil {
		return 0, err
	}
	return timeToCnt(utc, e.ref.UTC, e.ref.CountUS, e.ref.XtalErr), nil
}

// CntToGPS converts a concentrator counter sample to GPS time using the
// current reference.
func (e *Estimator) CntToGPS(countUS uint32) (time.Time, error) {
	if err := e.checkCalibrated(); err != nil {
		return time.Time{}, err
	}
	return cntToTime(countUS, e.ref.CountUS, e.ref.GPS, e.ref.XtalErr), nil
}

// GPSToCnt converts a GPS instant to the equivalent concentrator
// counter value using the current reference.
func (e *Estimator) GPSToCnt(gps time.Time) (uint32, error) {
	if err := e.checkCalibrated(); err != nil {
		return 0, err
	}
	return timeToCnt(gps, e.ref.GPS, e.ref.CountUS, e.ref.XtalErr), nil
}

// cntToTime implements lgw_cnt2utc/lgw_cnt2gps: the unsigned counter
// delta (wrapping modulo 2^32) is always non-negative, so the carry
// only ever needs to handle a nanosecond overflow, never underflow.
func cntToTime(countUS, refCountUS uint32, refTime time.Time, xtalErr float64) time.Time {
	deltaSec := float64(countUS-refCountUS) / (countsPerSecond * xtalErr)

	intPart, fracPart := math.Modf(deltaSec)
	nsec := refTime.Nanosecond() + int(fracPart*1e9)
	sec := refTime.Unix() + int64(intPart)
	if nsec >= int(1e9) {
		sec++
		nsec -= int(1e9)
	}
	return time.Unix(sec, int64(nsec)).UTC()
}

// timeToCnt implements lgw_utc2cnt/lgw_gps2cnt: the signed time delta
// is converted to ticks and added to the reference counter with
// unsigned 32-bit wraparound.
func timeToCnt(t, refTime time.Time, refCountUS uint32, xtalErr float64) uint32 {
	deltaSec := t.Sub(refTime).Seconds()
	ticks := int64(math.Round(deltaSec * countsPerSecond * xtalErr))
	return uint32(int64(refCountUS) + ticks)
}
