// Package gnss decodes a mixed NMEA/UBX byte stream from a serial-attached
// GNSS receiver and holds the latest parsed fix.
//
// It recognizes ASCII NMEA RMC/GGA sentences and U-blox UBX NAV-TIMEGPS
// binary frames, verifies their checksums, and extracts UTC/GPS time and
// position into a Fix store. The parsers are pure functions of the
// caller-supplied buffer; only the Fix they are given is mutated, and
// the package spawns no goroutines of its own ((*Service).run and the
// short-lived waiter in (*Service).WaitBriefly are the exceptions; run
// mirrors how the original library left the serial read loop to its
// caller).
package gnss
