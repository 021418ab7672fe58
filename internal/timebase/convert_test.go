package timebase

import (
	"testing"
	"time"
)

func calibratedEstimator(t *testing.T) (*Estimator, Ref) {
	t.Helper()
	e := New()
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	if err := e.Sync(0, base, GPSEpoch.Add(1_400_000_000*time.Second)); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	if err := e.Sync(5_000_000, base.Add(5*time.Second), GPSEpoch.Add(1_400_000_005*time.Second)); err != nil {
		t.Fatalf("calibrating sync: %v", err)
	}
	return e, e.Ref()
}

func TestConvert_UncalibratedRefused(t *testing.T) {
	e := New()
	if _, err := e.CntToUTC(0); err != ErrUncalibrated {
		t.Fatalf("CntToUTC error = %v, want ErrUncalibrated", err)
	}
	if _, err := e.UTCToCnt(time.Now()); err != ErrUncalibrated {
		t.Fatalf("UTCToCnt error = %v, want ErrUncalibrated", err)
	}
	if _, err := e.CntToGPS(0); err != ErrUncalibrated {
		t.Fatalf("CntToGPS error = %v, want ErrUncalibrated", err)
	}
	if _, err := e.GPSToCnt(time.Now()); err != ErrUncalibrated {
		t.Fatalf("GPSToCnt error = %v, want ErrUncalibrated", err)
	}
}

func TestConvert_Inversion_UTC(t *testing.T) {
	e, ref := calibratedEstimator(t)

	for _, offset := range []int{-1800, -13, 0, 1, 900, 1799} {
		c := ref.CountUS + uint32(int64(offset)*1_000_000)
		utc, err := e.CntToUTC(c)
		if err != nil {
			t.Fatalf("CntToUTC(%d): %v", offset, err)
		}
		back, err := e.UTCToCnt(utc)
		if err != nil {
			t.Fatalf("UTCToCnt: %v", err)
		}
		if diff := int64(back) - int64(c); diff != 0 {
			t.Fatalf("offset=%d: round-trip drift %d counter ticks, want 0", offset, diff)
		}
	}
}

func TestConvert_Inversion_GPS(t *testing.T) {
	e, ref := calibratedEstimator(t)

	for _, offset := range []int{-1800, -1, 0, 42, 1800} {
		c := ref.CountUS + uint32(int64(offset)*1_000_000)
		gps, err := e.CntToGPS(c)
		if err != nil {
			t.Fatalf("CntToGPS(%d): %v", offset, err)
		}
		back, err := e.GPSToCnt(gps)
		if err != nil {
			t.Fatalf("GPSToCnt: %v", err)
		}
		if diff := int64(back) - int64(c); diff != 0 {
			t.Fatalf("offset=%d: round-trip drift %d counter ticks, want 0", offset, diff)
		}
	}
}

func TestConvert_CntToUTCCarriesNanoseconds(t *testing.T) {
	e := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 900_000_000, time.UTC)
	if err := e.Sync(0, base, GPSEpoch); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := e.Sync(1_000_000, base.Add(time.Second), GPSEpoch.Add(time.Second)); err != nil {
		t.Fatalf("calibrate: %v", err)
	}

	// 200ms beyond the reference should carry into the next second.
	utc, err := e.CntToUTC(uint32(1_000_000 + 200_000))
	if err != nil {
		t.Fatalf("CntToUTC: %v", err)
	}
	want := base.Add(1*time.Second + 200*time.Millisecond)
	if diff := utc.Sub(want); diff > time.Microsecond || diff < -time.Microsecond {
		t.Fatalf("CntToUTC = %v, want ~%v", utc, want)
	}
}
