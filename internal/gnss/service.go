package gnss

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// CounterSource supplies the concentrator's free-running microsecond
// counter reading that corresponds to "now", so that Service can pair
// each accepted fix with the counter value it should be synced
// against. In the original packet forwarder this is the radio HAL's
// own counter register; here it is injected so gnss has no dependency
// on any particular HAL.
type CounterSource interface {
	CounterUS() (uint32, error)
}

// Sink receives a Fix snapshot and the counter value it was read
// against whenever the Service's read loop decodes a frame that
// updated TimeValid or PosValid. Implementations must not block.
type Sink interface {
	Publish(countUS uint32, fix Fix)
}

// Service owns an enabled Session, drives a Framer over its serial
// reader in its own goroutine, and forwards updated fixes to an
// optional Sink. It mirrors internal/gps's prior Service/Start/Close
// shape, generalized to the UBX+NMEA Session this package now manages
// instead of bare NMEA-only os.File handling.
type Service struct {
	logger *log.Logger
	sink   Sink

	mu      sync.Mutex
	session *Session
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	errMu   sync.Mutex
	lastErr error
}

func (s *Service) setLastErr(err error) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

// NewService returns a Service that will forward decoded fixes to
// sink (which may be nil) and log diagnostics through logger (which
// may be nil, defaulting to log.Default()).
func NewService(sink Sink, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{sink: sink, logger: logger}
}

// Start opens the device, begins decoding, and returns once the line
// is configured. verbose enables a hex/ascii dump of every decoded
// frame through logger. It returns an error without starting the
// read loop if Enable fails.
func (s *Service) Start(ctx context.Context, path, family string, baud int, verbose bool, counter CounterSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return fmt.Errorf("gnss: service already started")
	}

	sess, err := Enable(path, family, baud, verbose, s.logger)
	if err != nil {
		return err
	}
	s.session = sess

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(childCtx, sess, path, counter)

	return nil
}

func (s *Service) run(ctx context.Context, sess *Session, path string, counter CounterSource) {
	defer s.wg.Done()
	s.logger.Printf("gnss: session started on %s", path)
	if err := PumpFrames(ctx, sess.Reader(), sess.Fix(), counter, s.sink, sess.Verbose(), s.logger); err != nil {
		s.setLastErr(err)
		s.logger.Printf("gnss: frame read stopped: %v", err)
	}
}

// PumpFrames drives a Framer over r, decoding frames into fix, and
// calls sink.Publish (skipping if sink or counter is nil) whenever a
// decoded frame leaves the fix with at least one validity flag set.
// It runs until ctx is done or the Framer returns a non-nil error,
// which it then returns; a context cancellation returns nil. It is
// the loop Service.run drives against a live Session, broken out so
// it can be driven against any io.Reader (a test fixture, a replay
// file) without needing a real serial Session. verbose/logger are
// forwarded to the Framer unchanged.
func PumpFrames(ctx context.Context, r io.Reader, fix *Fix, counter CounterSource, sink Sink, verbose bool, logger *log.Logger) error {
	fr := NewFramer(r, fix, verbose, logger)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		kind, err := fr.Next()
		if err != nil {
			return err
		}

		if kind != KindNMEARMC && kind != KindNMEAGGA && kind != KindUBXNavTimeGPS {
			continue
		}
		if sink == nil || counter == nil {
			continue
		}
		if !fix.TimeValid && !fix.PosValid {
			continue
		}

		countUS, err := counter.CounterUS()
		if err != nil {
			continue
		}
		sink.Publish(countUS, *fix)
	}
}

// Close stops the read loop and disables the session, restoring the
// line discipline.
func (s *Service) Close() error {
	s.mu.Lock()
	sess := s.session
	cancel := s.cancel
	s.session = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	if sess == nil {
		return nil
	}
	return sess.Disable()
}

// LastError returns the most recent read-loop error, or nil.
func (s *Service) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// WaitBriefly blocks up to d for the read loop to exit on its own
// (e.g. EOF from a test fixture) without requiring Close.
func (s *Service) WaitBriefly(d time.Duration) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
	}
}
