package timebase

// Package timebase maintains a rolling linear correspondence between the
// concentrator's free-running microsecond counter, civil UTC, and GPS
// time, so that a packet timestamped with the counter can be converted
// to either clock (and back) with sub-microsecond accuracy.
//
// Callers fold in a new GNSS fix with Sync and then ask for conversions
// with CntToUTC/UTCToCnt/CntToGPS/GPSToCnt. An Estimator holds exactly
// one reference tuple; it performs no internal locking and spawns no
// goroutines, matching the rest of this module's caller-driven model.
