//go:build linux

package gnss

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const ubx7FamilyPrefix = "ubx7"

// Session is an open, configured serial line to a GNSS receiver. It is
// returned by Enable and released by Disable.
type Session struct {
	f       *os.File
	fd      int
	saved   unix.Termios
	fix     *Fix
	path    string
	verbose bool
}

// Enable opens path for read/write without making it the controlling
// terminal, snapshots the current line discipline, configures the
// line per the fixed raw-mode profile below, and enables NAV-TIMEGPS
// output on the receiver. baud is accepted but ignored: the line rate
// is always fixed at 115200, matching the source. verbose is recorded
// on the returned Session and read back by the Framer its caller
// drives, gating a per-frame hex/ascii dump.
//
// family is checked against the "ubx7" prefix; a mismatch (including
// an empty string) is logged through logger but does not fail Enable.
func Enable(path, family string, baud int, verbose bool, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	if !strings.HasPrefix(family, ubx7FamilyPrefix) {
		logger.Printf("gnss: device family %q does not match expected prefix %q, proceeding anyway", family, ubx7FamilyPrefix)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("gnss: open %s: %w", path, ErrSerial)
	}

	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("gnss: get termios %s: %w", path, ErrSerial)
	}

	t := *saved
	t.Cflag &^= unix.PARENB | unix.CSTOPB | unix.CSIZE
	t.Cflag |= unix.CLOCAL | unix.CREAD | unix.CS8
	t.Iflag &^= unix.ICRNL | unix.IGNCR | unix.IXON | unix.IXOFF
	t.Iflag |= unix.IGNPAR
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ICANON | unix.ISIG | unix.IEXTEN | unix.ECHO | unix.ECHONL

	// Block for at least one byte; no inter-byte timeout.
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	t.Cflag &^= unix.CBAUD
	t.Cflag |= unix.B115200
	t.Ispeed = unix.B115200
	t.Ospeed = unix.B115200

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &t); err != nil {
		return nil, fmt.Errorf("gnss: set termios %s: %w", path, ErrSerial)
	}

	f := os.NewFile(uintptr(fd), path)
	if f == nil {
		return nil, fmt.Errorf("gnss: os.NewFile %s: %w", path, ErrSerial)
	}

	n, err := f.Write(UBXEnableNavTimeGPS)
	if err != nil {
		return nil, fmt.Errorf("gnss: write NAV-TIMEGPS enable %s: %w", path, ErrSerial)
	}
	if n != len(UBXEnableNavTimeGPS) {
		logger.Printf("gnss: short write enabling NAV-TIMEGPS on %s: wrote %d of %d bytes", path, n, len(UBXEnableNavTimeGPS))
	}

	ok = true
	return &Session{f: f, fd: fd, saved: *saved, fix: NewFix(), path: path, verbose: verbose}, nil
}

// Disable restores the line discipline snapshotted by Enable and
// closes the device.
func (s *Session) Disable() error {
	if s == nil {
		return nil
	}
	saved := s.saved
	if err := unix.IoctlSetTermios(s.fd, unix.TCSETS, &saved); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("gnss: restore termios %s: %w", s.path, ErrSerial)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("gnss: close %s: %w", s.path, ErrSerial)
	}
	return nil
}

// Fix returns the session's fix store, updated in place as frames
// are decoded from Reader.
func (s *Session) Fix() *Fix { return s.fix }

// Reader returns the underlying byte source for a Framer to read from.
func (s *Session) Reader() *os.File { return s.f }

// Verbose reports whether Enable was asked to log a dump of every
// decoded frame.
func (s *Session) Verbose() bool { return s.verbose }
