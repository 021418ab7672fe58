//go:build !linux

package gnss

import (
	"fmt"
	"log"
	"os"
)

// Session is the non-Linux stand-in; Enable always fails on this
// platform, matching the teacher's own split between a real termios
// implementation and a stub for everywhere else.
type Session struct{}

func Enable(path, family string, baud int, verbose bool, logger *log.Logger) (*Session, error) {
	return nil, fmt.Errorf("gnss: serial GNSS not supported on this platform: %w", ErrSerial)
}

func (s *Session) Disable() error { return nil }

func (s *Session) Fix() *Fix { return nil }

func (s *Session) Reader() *os.File { return nil }

func (s *Session) Verbose() bool { return false }
