package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/batuhanky/sx1302-hal/internal/config"
	"github.com/batuhanky/sx1302-hal/internal/gnss"
	"github.com/batuhanky/sx1302-hal/internal/statusapi"
	"github.com/batuhanky/sx1302-hal/internal/telemetry"
	"github.com/batuhanky/sx1302-hal/internal/timebase"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.Default()
	estimator := timebase.New()
	status := statusapi.NewStatus(cfg.GNSS.Device, cfg.GNSS.Family)

	var pub *telemetry.Publisher
	if cfg.Telemetry.Enable {
		pub, err = telemetry.NewPublisher(cfg.Telemetry.Broker, cfg.Telemetry.ClientID, cfg.Telemetry.TopicPrefix, logger)
		if err != nil {
			log.Fatalf("telemetry init failed: %v", err)
		}
		defer pub.Close()
	}

	if cfg.Status.Enable {
		srv := &http.Server{Addr: cfg.Status.Addr, Handler: statusapi.Handler(status, logger)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("status server stopped: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Printf("gnssgwd status api listening on %s", cfg.Status.Addr)
	}

	sink := &publishSink{estimator: estimator, status: status, telemetry: pub, logger: logger}
	counter := &monotonicCounter{start: time.Now()}

	svc := gnss.NewService(sink, logger)
	logger.Printf("gnssgwd starting device=%s family=%s", cfg.GNSS.Device, cfg.GNSS.Family)

	if err := svc.Start(ctx, cfg.GNSS.Device, cfg.GNSS.Family, cfg.GNSS.Baud, cfg.GNSS.Verbose, counter); err != nil {
		log.Fatalf("gnss session failed to start: %v", err)
	}
	defer svc.Close()

	go watchResync(ctx, status, cfg.GNSS.ResyncInterval, logger)

	<-ctx.Done()
	logger.Printf("gnssgwd stopping")
}

// watchResync wakes every interval and checks how long it has been
// since the estimator last committed a reference, read through
// status's atomically-updated LastSync rather than the Estimator
// itself (which is not safe to touch outside the gnss read loop that
// owns it). The counter's uint32 microsecond arithmetic only stays
// numerically meaningful for callers within ~35 minutes of the
// reference (spec.md's modular-wrap limitation), so a reference older
// than interval means the gateway is no longer resyncing often enough
// to honor that bound.
func watchResync(ctx context.Context, status *statusapi.Status, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last, ok := status.LastSync()
			if !ok {
				continue
			}
			if age := time.Since(last); age > interval {
				msg := fmt.Sprintf("reference is %s old, exceeding the %s resync interval", age.Round(time.Second), interval)
				logger.Printf("gnssgwd: %s", msg)
				status.SetError(msg)
			}
		}
	}
}

// monotonicCounter stands in for the radio HAL's free-running
// microsecond counter register when no HAL is wired in: it derives a
// wrapping uint32 microsecond count from the process's monotonic
// clock. A real concentrator deployment supplies its own
// gnss.CounterSource backed by the HAL's counter ioctl/mmap.
type monotonicCounter struct {
	start time.Time
}

func (m *monotonicCounter) CounterUS() (uint32, error) {
	return uint32(time.Since(m.start).Microseconds()), nil
}

// publishSink adapts a decoded gnss.Fix into a timebase.Estimator
// sync, an updated statusapi.Status, and an optional telemetry
// publish, implementing gnss.Sink.
type publishSink struct {
	estimator *timebase.Estimator
	status    *statusapi.Status
	telemetry *telemetry.Publisher
	logger    *log.Logger
}

func (s *publishSink) Publish(countUS uint32, fix gnss.Fix) {
	res, err := fix.Get(fix.TimeValid, fix.TimeValid, fix.PosValid, false)
	if err != nil {
		s.logger.Printf("gnssgwd: fix unavailable: %v", err)
		return
	}

	if fix.TimeValid {
		if err := s.estimator.Sync(countUS, res.UTC, res.GPS); err != nil {
			s.logger.Printf("gnssgwd: sync rejected: %v", err)
			s.status.SetError(err.Error())
		} else {
			ref := s.estimator.Ref()
			s.status.SetRef(statusapi.RefSnapshot{
				CountUS:    ref.CountUS,
				UTC:        ref.UTC.Format(time.RFC3339Nano),
				XtalErrPPM: (ref.XtalErr - 1.0) * 1e6,
			})
			if s.telemetry != nil {
				s.telemetry.PublishRef(telemetry.RefPayload{
					CountUS:    ref.CountUS,
					UTC:        ref.UTC.Format(time.RFC3339Nano),
					XtalErrPPM: (ref.XtalErr - 1.0) * 1e6,
				})
			}
		}
	}

	fixSnap := statusapi.FixSnapshot{
		TimeValid: fix.TimeValid,
		PosValid:  fix.PosValid,
		NumSat:    fix.NumSat,
	}
	if fix.PosValid {
		fixSnap.LatDeg = res.Loc.Lat
		fixSnap.LonDeg = res.Loc.Lon
		fixSnap.AltM = res.Loc.Alt
	}
	s.status.SetFix(time.Now().UTC(), fixSnap)
	s.status.PushUpdate()

	if s.telemetry != nil {
		s.telemetry.PublishFix(telemetry.FixPayload{
			TimeValid: fix.TimeValid,
			PosValid:  fix.PosValid,
			LatDeg:    fixSnap.LatDeg,
			LonDeg:    fixSnap.LonDeg,
			AltM:      fixSnap.AltM,
			NumSat:    fix.NumSat,
		})
	}
}
