package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openair-rf/openair/internal/export"
	"github.com/openair-rf/openair/internal/instrument"
	"github.com/openair-rf/openair/internal/spectrum"
)

var (
	// ErrAlreadyRunning is returned when a scan is started while one is
	// still active. At most one scan worker exists at a time.
	ErrAlreadyRunning = errors.New("scan already in progress")

	// ErrNoBands is returned when a scan is started with no bands selected.
	ErrNoBands = errors.New("no bands selected")
)

// Config enumerates every recognized scan option. It is immutable once a
// scan starts.
type Config struct {
	Name             string
	RBWHz            float64
	RefLevelDBm      float64
	FreqShiftHz      float64
	MaxSegmentSpanHz float64
	HighSensitivity  bool
	Preamp           bool

	// SegmentDir receives one CSV per completed segment as a crash-safety
	// net. Empty disables the side channel.
	SegmentDir string
}

// Marker is a spectral point of interest identified during a scan. Marker
// collection is reserved for a later subsystem; scans currently return an
// empty list.
type Marker struct {
	FrequencyHz float64
	PowerDBm    float64
	Label       string
}

// Result is what a scan run hands back, whether it completed normally or
// was stopped by the user. The caller distinguishes the two via the stop
// context, not the result shape.
type Result struct {
	// LastBandIndex is the index of the last fully completed band, -1 when
	// no band completed.
	LastBandIndex int

	// Records holds the accumulated per-segment samples with provenance, in
	// acquisition order.
	Records []spectrum.SegmentRecord

	Markers []Marker
}

// SweepDriver is the instrument-facing capability the scanner requires.
// *instrument.Driver satisfies it.
type SweepDriver interface {
	Configure(instrument.Settings) error
	Sweep() (freqsHz, powersDBm []float64, err error)
}

// WithLogger sets the logger for the scanner.
func WithLogger(logger *slog.Logger) func(*Scanner) {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithProgress sets the progress sink, invoked from the scan worker with a
// percentage in [0, 100], monotonically non-decreasing within one run. The
// sink must not block; the scanner fires and forgets.
func WithProgress(sink func(percent float64)) func(*Scanner) {
	return func(s *Scanner) {
		s.progress = sink
	}
}

// Scanner orchestrates a multi-band segment sweep on a worker goroutine:
// it plans segments per band, drives the instrument through the sweep
// driver, accumulates raw samples with provenance, and honours cooperative
// pause and stop between segments. Exactly one worker runs per scanner at a
// time; the worker is the only goroutine touching the instrument while a
// scan is active.
type Scanner struct {
	driver   SweepDriver
	config   Config
	logger   *slog.Logger
	progress func(percent float64)

	gate   *Gate
	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
	result Result
}

// NewScanner creates a scanner over the given driver with a discard logger.
func NewScanner(driver SweepDriver, config Config, options ...func(*Scanner)) *Scanner {
	s := Scanner{
		driver: driver,
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
		gate:   NewGate(),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Start validates preconditions and launches the scan worker. Fatal
// pre-flight conditions (no instrument, no bands, invalid band, scan
// already active) are reported before any goroutine is spawned or
// instrument I/O begins. Cancelling ctx requests a cooperative stop that
// takes effect at the next segment boundary.
func (s *Scanner) Start(ctx context.Context, bands []spectrum.Band) error {
	if s.driver == nil {
		return instrument.ErrNotConnected
	}
	if len(bands) == 0 {
		return ErrNoBands
	}
	for _, b := range bands {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("invalid band selection: %w", err)
		}
	}

	if !s.state.CompareAndSwap(int32(StateNotRunning), int32(StateRunning)) {
		return ErrAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.gate.Resume()
	s.result = Result{LastBandIndex: -1}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.state.Store(int32(StateNotRunning))

		s.logger.Info("starting band scan",
			slog.String("scan", s.config.Name),
			slog.Int("bands", len(bands)))

		s.result = s.sweep(ctx, bands)

		s.logger.Info("band scan finished",
			slog.Int("lastBandIndex", s.result.LastBandIndex),
			slog.Int("segments", len(s.result.Records)))
	}()

	return nil
}

// Stop requests a cooperative stop. The in-flight sweep is not interrupted;
// the worker exits at the next segment or band checkpoint, preserving all
// accumulated data.
func (s *Scanner) Stop() {
	for {
		st := s.State()
		if st != StateRunning && st != StatePaused {
			return
		}
		if s.state.CompareAndSwap(int32(st), int32(StateStopping)) {
			s.cancel()
			return
		}
	}
}

// Pause suspends the scan at the next segment boundary. No instrument time
// is consumed while paused.
func (s *Scanner) Pause() {
	if s.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		s.gate.Pause()
	}
}

// Resume releases a paused scan.
func (s *Scanner) Resume() {
	if s.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		s.gate.Resume()
	}
}

// State returns the current scan lifecycle state.
func (s *Scanner) State() State {
	return State(s.state.Load())
}

// Wait blocks until the scan worker exits and returns its result. Both
// normal completion and a user-requested stop yield the same result shape.
func (s *Scanner) Wait() Result {
	s.wg.Wait()
	return s.result
}

// sweep is the orchestrator loop, run on the worker goroutine. The named
// return preserves partial results if the loop panics: a worker fault is
// logged and treated as scan termination, never propagated.
func (s *Scanner) sweep(ctx context.Context, bands []spectrum.Band) (result Result) {
	result.LastBandIndex = -1

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Sprintf("scan worker fault: %v", r))
		}
	}()

	if len(bands) == 0 {
		return result
	}

	plans := make([][]spectrum.Segment, len(bands))
	var totalSegments int
	for i, band := range bands {
		plans[i] = PlanSegments(band.StartHz, band.StopHz, s.config.MaxSegmentSpanHz)
		totalSegments += len(plans[i])
	}
	if totalSegments == 0 {
		return result
	}

	s.report(0)

	var segmentsDone int
	for i, band := range bands {
		if ctx.Err() != nil {
			s.logger.Info("scan stopped during band iteration", slog.String("band", band.Name))
			return result
		}

		s.logger.Info("processing band",
			slog.String("band", band.Name),
			slog.Float64("startHz", band.StartHz),
			slog.Float64("stopHz", band.StopHz),
			slog.Int("segments", len(plans[i])))

		for n, segment := range plans[i] {
			if err := s.gate.Wait(ctx); err != nil {
				s.logger.Info("scan stopped while paused",
					slog.String("band", band.Name),
					slog.Int("segment", n+1))
				return result
			}
			if ctx.Err() != nil {
				s.logger.Info("scan stopped before segment",
					slog.String("band", band.Name),
					slog.Int("segment", n+1))
				return result
			}

			record, ok := s.sweepSegment(band, segment, n+1, len(plans[i]))
			if ok {
				result.Records = append(result.Records, record)
				s.writeSegmentFile(len(result.Records), record)
			}

			segmentsDone++
			s.report(float64(segmentsDone) / float64(totalSegments) * 100)
		}

		result.LastBandIndex = i
	}

	return result
}

// sweepSegment configures and sweeps one segment. Failures are logged and
// reported as a skip; a single bad segment must not lose the rest of the
// band.
func (s *Scanner) sweepSegment(band spectrum.Band, segment spectrum.Segment, n, total int) (spectrum.SegmentRecord, bool) {
	settings := instrument.Settings{
		CenterHz:        segment.CenterHz,
		SpanHz:          segment.SpanHz,
		RBWHz:           s.config.RBWHz,
		RefLevelDBm:     s.config.RefLevelDBm,
		FreqShiftHz:     s.config.FreqShiftHz,
		HighSensitivity: s.config.HighSensitivity,
		Preamp:          s.config.Preamp,
	}

	if err := s.driver.Configure(settings); err != nil {
		s.logger.Error(fmt.Sprintf("configuring segment %d/%d of band %s: %s", n, total, band.Name, err.Error()))
		return spectrum.SegmentRecord{}, false
	}

	freqs, powers, err := s.driver.Sweep()
	if err != nil {
		s.logger.Error(fmt.Sprintf("sweeping segment %d/%d of band %s: %s", n, total, band.Name, err.Error()))
		return spectrum.SegmentRecord{}, false
	}

	samples := make([]spectrum.RawSample, len(freqs))
	for i := range freqs {
		samples[i] = spectrum.RawSample{FrequencyHz: freqs[i], PowerDBm: powers[i]}
	}

	s.logger.Debug("segment sweep complete",
		slog.String("band", band.Name),
		slog.Int("segment", n),
		slog.Int("of", total),
		slog.Int("points", len(samples)))

	return spectrum.SegmentRecord{
		Band:      band.Name,
		Segment:   segment,
		Timestamp: time.Now().UTC(),
		Samples:   samples,
	}, true
}

// writeSegmentFile persists one completed segment as a crash-safety CSV.
// Failures here are logged and otherwise ignored: the safety net must never
// abort the scan.
func (s *Scanner) writeSegmentFile(seq int, record spectrum.SegmentRecord) {
	if s.config.SegmentDir == "" {
		return
	}

	path, err := export.WriteSegmentCSV(s.config.SegmentDir, seq, record)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("writing segment file: %s", err.Error()))
		return
	}
	s.logger.Debug("segment file written", slog.String("path", path))
}

func (s *Scanner) report(percent float64) {
	if s.progress != nil {
		s.progress(percent)
	}
}
