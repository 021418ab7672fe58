package timebase

import (
	"testing"
	"time"
)

func TestSync_FirstSyncCommitsComputedSlope(t *testing.T) {
	e := New()
	utc := time.Date(2024, 1, 1, 0, 1, 40, 0, time.UTC) // measured against the zero time.Time reference
	gps := GPSEpoch.Add(200 * time.Second)

	if err := e.Sync(1_000_000, utc, gps); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	ref := e.Ref()
	if ref.SysTime.IsZero() {
		t.Fatalf("expected SysTime to be set")
	}
	if ref.CountUS != 1_000_000 {
		t.Fatalf("CountUS = %d, want 1000000", ref.CountUS)
	}
	if !ref.UTC.Equal(utc) {
		t.Fatalf("UTC = %v, want %v", ref.UTC, utc)
	}
	wantSlope := 1.0 / utc.Sub(time.Time{}).Seconds()
	if ref.XtalErr != wantSlope {
		t.Fatalf("XtalErr = %v, want computed slope %v", ref.XtalErr, wantSlope)
	}
}

func TestSync_SlopeRejection(t *testing.T) {
	e := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := e.Sync(0, base, GPSEpoch); err != nil {
		t.Fatalf("initial sync: %v", err)
	}

	// slope = 1.0002, well outside the +/-10ppm window.
	countUS := uint32(1_000_200)
	utc := base.Add(1 * time.Second)
	gps := GPSEpoch.Add(1 * time.Second)

	if err := e.Sync(countUS, utc, gps); err != ErrAberrantRejected {
		t.Fatalf("Sync() error = %v, want ErrAberrantRejected", err)
	}
	if e.Ref().CountUS != 0 {
		t.Fatalf("reference should not advance on a single aberrant sync")
	}

	// A second aberrant sync is still rejected.
	if err := e.Sync(countUS, utc, gps); err != ErrAberrantRejected {
		t.Fatalf("Sync() error = %v, want ErrAberrantRejected", err)
	}

	// The third successive aberrant sync forces a re-anchor.
	if err := e.Sync(countUS, utc, gps); err != nil {
		t.Fatalf("third aberrant sync should re-anchor, got error: %v", err)
	}
	if e.Ref().CountUS != countUS {
		t.Fatalf("CountUS = %d, want %d after forced re-anchor", e.Ref().CountUS, countUS)
	}
}

func TestSync_ReanchorResetsOnlyOutOfRangeXtalErr(t *testing.T) {
	e := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Seed the reference, then commit a sane xtal_err of 1.0 with a
	// non-aberrant 1s/1,000,000-tick sync.
	if err := e.Sync(0, base, GPSEpoch); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	if err := e.Sync(1_000_000, base.Add(time.Second), GPSEpoch.Add(time.Second)); err != nil {
		t.Fatalf("calibrating sync: %v", err)
	}
	if got := e.Ref().XtalErr; got != 1.0 {
		t.Fatalf("XtalErr = %v, want 1.0", got)
	}

	// Three aberrant syncs in a row: xtal_err was in range, so it must
	// be preserved rather than reset to 1.0.
	bad := base.Add(2 * time.Second)
	for i := 0; i < 3; i++ {
		_ = e.Sync(2_000_200, bad, GPSEpoch.Add(2*time.Second))
	}
	if got := e.Ref().XtalErr; got != 1.0 {
		t.Fatalf("XtalErr after re-anchor = %v, want preserved 1.0", got)
	}
}

func TestSync_CounterWrapYieldsNonAberrantSlope(t *testing.T) {
	e := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Reference counter near the top of the uint32 range.
	refCount := uint32(4294967200) // 2^32 - 96
	if err := e.Sync(refCount, base, GPSEpoch); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	// 200us later in counter ticks, wrapped past 2^32; small positive
	// unsigned delta once wraparound is taken into account.
	nextCount := uint32(104) // wraps: (104 - 4294967200) mod 2^32 = 200
	utc := base.Add(200 * time.Microsecond)
	if err := e.Sync(nextCount, utc, GPSEpoch.Add(200*time.Microsecond)); err != nil {
		t.Fatalf("wrap sync should be non-aberrant, got error: %v", err)
	}
	if e.Ref().CountUS != nextCount {
		t.Fatalf("CountUS = %d, want %d", e.Ref().CountUS, nextCount)
	}
}

func TestSync_UTCDiffZeroIsAberrant(t *testing.T) {
	e := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := e.Sync(0, base, GPSEpoch); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	if err := e.Sync(1_000_000, base, GPSEpoch); err != ErrAberrantRejected {
		t.Fatalf("Sync() error = %v, want ErrAberrantRejected for zero utc_diff", err)
	}
}
