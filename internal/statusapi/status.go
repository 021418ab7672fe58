package statusapi

import (
	"sync/atomic"
	"time"
)

// Status tracks the gateway's timing state for the HTTP status
// endpoint and the websocket stream, generalized from
// internal/web/status.go's atomic.Value snapshot pattern.
type Status struct {
	startUnixNano int64
	syncCount     uint64
	lastSyncNano  int64

	device  atomic.Value // string
	family  atomic.Value // string
	lastErr atomic.Value // string
	fix     atomic.Value // FixSnapshot
	ref     atomic.Value // RefSnapshot

	hub *hub // set by Handler; nil until the HTTP server is wired up
}

// FixSnapshot is the JSON-friendly view of the latest GNSS fix.
type FixSnapshot struct {
	TimeValid bool    `json:"time_valid"`
	PosValid  bool    `json:"pos_valid"`
	UTC       string  `json:"utc,omitempty"`
	LatDeg    float64 `json:"lat_deg,omitempty"`
	LonDeg    float64 `json:"lon_deg,omitempty"`
	AltM      int     `json:"alt_m,omitempty"`
	NumSat    int     `json:"num_sat"`
}

// RefSnapshot is the JSON-friendly view of the latest committed
// timebase reference.
type RefSnapshot struct {
	CountUS   uint32  `json:"count_us"`
	UTC       string  `json:"utc"`
	XtalErrPPM float64 `json:"xtal_err_ppm"`
}

func NewStatus(device, family string) *Status {
	s := &Status{}
	now := time.Now().UTC()
	atomic.StoreInt64(&s.startUnixNano, now.UnixNano())
	s.device.Store(device)
	s.family.Store(family)
	s.lastErr.Store("")
	s.fix.Store(FixSnapshot{})
	s.ref.Store(RefSnapshot{})
	return s
}

func (s *Status) SetFix(nowUTC time.Time, fix FixSnapshot) {
	if !nowUTC.IsZero() {
		fix.UTC = nowUTC.Format(time.RFC3339Nano)
	}
	s.fix.Store(fix)
}

func (s *Status) SetRef(ref RefSnapshot) {
	atomic.StoreInt64(&s.lastSyncNano, time.Now().UTC().UnixNano())
	atomic.AddUint64(&s.syncCount, 1)
	s.ref.Store(ref)
}

func (s *Status) SetError(msg string) {
	s.lastErr.Store(msg)
}

// LastSync returns the host wall-clock time of the most recently
// committed reference and true, or the zero Time and false if no
// sync has committed yet. Safe to call concurrently with SetRef.
func (s *Status) LastSync() (time.Time, bool) {
	nano := atomic.LoadInt64(&s.lastSyncNano)
	if nano == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nano).UTC(), true
}

// Snapshot is the JSON document served at GET /api/status and pushed
// to every connected websocket client.
type Snapshot struct {
	Service      string      `json:"service"`
	NowUTC       string      `json:"now_utc"`
	UptimeSec    int64       `json:"uptime_sec"`
	Device       string      `json:"device"`
	Family       string      `json:"family"`
	SyncCount    uint64      `json:"sync_count"`
	LastSyncUTC  string      `json:"last_sync_utc,omitempty"`
	Fix          FixSnapshot `json:"fix"`
	Ref          RefSnapshot `json:"ref"`
	LastError    string      `json:"last_error,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) Snapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastSync := atomic.LoadInt64(&s.lastSyncNano)

	snap := Snapshot{
		Service:   "gnssgwd",
		NowUTC:    nowUTC.Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Device:    s.device.Load().(string),
		Family:    s.family.Load().(string),
		SyncCount: atomic.LoadUint64(&s.syncCount),
		Fix:       s.fix.Load().(FixSnapshot),
		Ref:       s.ref.Load().(RefSnapshot),
		LastError: s.lastErr.Load().(string),
	}
	if lastSync != 0 {
		snap.LastSyncUTC = time.Unix(0, lastSync).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
