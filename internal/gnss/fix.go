package gnss

import (
	"errors"
	"log"
	"time"
)

// ErrUnavailable is returned by Get when the caller asks for a value
// whose validity flag is currently false.
var ErrUnavailable = errors.New("gnss: requested value is not currently valid")

// Fix holds the most recently parsed GNSS state: civil date/time, native
// GPS time, and position. It is updated only by ParseNMEA/ParseUBX;
// Get assembles UTC/GPS/position values from it, and callers may also
// read its fields directly. The package performs no internal locking, so
// concurrent callers must serialize access themselves.
type Fix struct {
	// Year, Month, Day, Hour, Minute, Second, FracSec hold the civil
	// broken-down time parsed from an RMC sentence. Year may be a
	// 2-digit (RMC) or 4-digit value; Second may be 60 for a leap
	// second. These fields may retain stale content when TimeValid is
	// false and must not be consulted in that case.
	Year, Month, Day    int
	Hour, Minute, Second int
	FracSec              float64

	// GPSWeek, GPSITOWMs, GPSFTOWNs hold native (non-leap-corrected)
	// GPS time as reported by a UBX NAV-TIMEGPS frame.
	GPSWeek   int16
	GPSITOWMs uint32
	GPSFTOWNs int32

	// LatDeg/LatMin/LatHemi and LonDeg/LonMin/LonHemi hold the
	// unsigned degrees+minutes position parsed from a GGA sentence,
	// plus the hemisphere character ('N'/'S' or 'E'/'W'). Alt is
	// integer meters. NumSat and Mode are updated independently of
	// PosValid/TimeValid, mirroring the source's habit of keeping
	// diagnostic fields live even on a no-fix sentence.
	LatDeg  int
	LatMin  float64
	LatHemi byte
	LonDeg  int
	LonMin  float64
	LonHemi byte
	Alt     int

	Mode   byte // 'N' no fix, 'A' autonomous, 'D' differential
	NumSat int

	TimeValid bool
	PosValid  bool
}

// NewFix returns a Fix with Mode set to 'N' (no fix) and both validity
// flags cleared, matching the state after Enable.
func NewFix() *Fix {
	return &Fix{Mode: 'N'}
}

// Coord is a simple lat/lon/alt triple.
type Coord struct {
	Lat float64 // decimal degrees, positive north
	Lon float64 // decimal degrees, positive east
	Alt int     // meters
}

// Result is the subset of the fix requested from Get.
type Result struct {
	UTC time.Time
	GPS time.Time
	Loc Coord
	Err Coord // localization uncertainty; always zero, see spec Non-goals
}

// Get assembles the requested subset of the current fix. A request for
// a field whose validity flag is false returns ErrUnavailable, and no
// partial Result is populated for that call.
func (f *Fix) Get(wantUTC, wantGPS, wantPos, wantErr bool) (Result, error) {
	var out Result

	if wantUTC || wantGPS {
		if !f.TimeValid {
			return Result{}, ErrUnavailable
		}
	}
	if wantPos && !f.PosValid {
		return Result{}, ErrUnavailable
	}

	if wantUTC {
		out.UTC = f.utcTime()
	}
	if wantGPS {
		out.GPS = f.gpsTime()
	}
	if wantPos {
		out.Loc = f.coord()
	}
	if wantErr {
		log.Printf("gnss: localization uncertainty not implemented, reporting zero")
		out.Err = Coord{}
	}

	return out, nil
}

// utcTime assembles the broken-down RMC time as UTC. A 2-digit year is
// interpreted as 2000+yy; a 4-digit year is used verbatim. Go's
// time.Date takes an explicit location, so unlike the C source (which
// must subtract the host timezone after an implicitly-local mktime)
// there is no separate UTC correction step here.
func (f *Fix) utcTime() time.Time {
	year := f.Year
	if year < 100 {
		year += 2000
	}
	sec := f.Second
	nsec := int(f.FracSec * 1e9)
	if sec == 60 {
		// Leap second: fold into the next minute's first instant plus
		// the fractional remainder, since time.Date has no slot for
		// second 60.
		sec = 59
		nsec += int(time.Second)
	}
	return time.Date(year, time.Month(f.Month), f.Day, f.Hour, f.Minute, sec, nsec, time.UTC)
}

// gpsTime converts native GPS week + iTOW/fTOW to seconds since the GPS
// epoch (1980-01-06), per spec.md's GPS seconds-since-epoch formula.
func (f *Fix) gpsTime() time.Time {
	totalMs := int64(f.GPSITOWMs)
	sec := totalMs / 1000
	remMs := totalMs % 1000
	nsec := remMs*int64(time.Millisecond) + int64(f.GPSFTOWNs)
	weekSec := int64(f.GPSWeek) * 604800

	epoch := time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)
	return epoch.Add(time.Duration(weekSec+sec) * time.Second).Add(time.Duration(nsec))
}

func (f *Fix) coord() Coord {
	lat := float64(f.LatDeg) + f.LatMin/60.0
	if f.LatHemi == 'S' {
		lat = -lat
	}
	lon := float64(f.LonDeg) + f.LonMin/60.0
	if f.LonHemi == 'W' {
		lon = -lon
	}
	return Coord{Lat: lat, Lon: lon, Alt: f.Alt}
}
