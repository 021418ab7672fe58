package gnss

import (
	"bufio"
	"fmt"
	"io"
	"log"
)

// Framer pulls individual NMEA sentences or UBX frames out of a mixed
// byte stream and decodes each into fix, mirroring how the packet
// forwarder's own read loop would have driven lgw_parse_nmea and
// lgw_parse_ubx against the same serial port. Unlike those two pure
// parsers, Framer owns a buffer and therefore must track how much of
// a UBX frame it has accumulated across reads.
type Framer struct {
	r       *bufio.Reader
	fix     *Fix
	verbose bool
	logger  *log.Logger
}

// NewFramer wraps r, decoding frames into fix as they are pulled. When
// verbose is set, every decoded frame is hex/ascii-dumped through
// logger, standing in for lgw_parse_ubx's DEBUG_MSG hex dump gated
// behind a config flag instead of a compile-time macro.
func NewFramer(r io.Reader, fix *Fix, verbose bool, logger *log.Logger) *Framer {
	if logger == nil {
		logger = log.Default()
	}
	return &Framer{r: bufio.NewReaderSize(r, 4096), fix: fix, verbose: verbose, logger: logger}
}

// Next blocks until one complete frame has been read and decoded,
// returning its Kind. It returns io.EOF (wrapped) when the underlying
// reader is exhausted.
func (fr *Framer) Next() (Kind, error) {
	b, err := fr.r.Peek(1)
	if err != nil {
		return KindUnknown, fmt.Errorf("gnss: framer read: %w", err)
	}

	switch b[0] {
	case '$':
		return fr.nextNMEA()
	case ubxSync1:
		return fr.nextUBX()
	default:
		// Unrecognized lead byte: discard it and let the caller retry.
		_, _ = fr.r.Discard(1)
		return KindUnknown, nil
	}
}

func (fr *Framer) nextNMEA() (Kind, error) {
	line, err := fr.r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return KindUnknown, fmt.Errorf("gnss: framer read: %w", err)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	if len(line) == 0 {
		return KindUnknown, nil
	}
	if fr.verbose {
		fr.logger.Printf("gnss: nmea frame: %s", line)
	}
	return ParseNMEA(line, fr.fix), nil
}

func (fr *Framer) nextUBX() (Kind, error) {
	// Peek the 6-byte header to learn the total frame size.
	header, err := fr.r.Peek(6)
	if err != nil {
		_, _ = fr.r.Discard(1)
		return KindIncomplete, nil
	}
	payloadLen := int(header[4]) | int(header[5])<<8
	msgSize := 6 + payloadLen + 2

	buf := make([]byte, msgSize)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return KindUnknown, fmt.Errorf("gnss: framer read: %w", err)
	}
	if fr.verbose {
		fr.logger.Printf("gnss: ubx frame: % x", buf)
	}

	kind, consumed := ParseUBX(buf, fr.fix)
	if kind == KindIncomplete {
		// msgSize should have matched; a receiver that lies about its
		// own payload length can't be made complete by reading more of
		// the same declared size, so the already-consumed frame is
		// reported as invalid.
		_ = consumed
		return KindInvalid, nil
	}
	return kind, nil
}
