package instrument

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	defaultSettleDelay = 50 * time.Millisecond
	defaultSweepDelay  = 500 * time.Millisecond
)

// Settings holds every instrument parameter configured before one segment
// sweep.
type Settings struct {
	CenterHz        float64
	SpanHz          float64
	RBWHz           float64
	RefLevelDBm     float64
	FreqShiftHz     float64
	HighSensitivity bool
	Preamp          bool
}

// WithLogger sets the logger for the driver.
func WithLogger(logger *slog.Logger) func(*Driver) {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithSettleDelay overrides the pause inserted after configuration commands.
func WithSettleDelay(delay time.Duration) func(*Driver) {
	return func(d *Driver) {
		d.settleDelay = delay
	}
}

// WithSweepDelay overrides the pause inserted after sweep initiation, before
// trace data is queried.
func WithSweepDelay(delay time.Duration) func(*Driver) {
	return func(d *Driver) {
		d.sweepDelay = delay
	}
}

// Driver configures a spectrum analyzer and performs single blocking sweeps
// over a Handle. The driver is not safe for concurrent use; the scan
// orchestrator guarantees a single caller while a scan is active.
type Driver struct {
	handle Handle
	logger *slog.Logger

	settleDelay time.Duration
	sweepDelay  time.Duration
}

// NewDriver creates a sweep driver over the given handle with a discard
// logger.
func NewDriver(h Handle, options ...func(*Driver)) *Driver {
	d := Driver{
		handle:      h,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
		settleDelay: defaultSettleDelay,
		sweepDelay:  defaultSweepDelay,
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// Configure issues the fixed configuration sequence for one segment: reset,
// single-sweep averaging, point count, then center, span, RBW, reference
// level, frequency shift, sensitivity and preamp. Every command is attempted
// even after an earlier failure; the returned error joins all failures so
// the caller can decide whether to skip the segment or abort the scan.
func (d *Driver) Configure(s Settings) error {
	if d.handle == nil {
		return ErrNotConnected
	}

	var errs []error
	write := func(cmd string) {
		if err := d.write(cmd); err != nil {
			errs = append(errs, err)
		}
	}

	write(cmdReset)
	time.Sleep(2 * d.settleDelay)
	write(cmdAverageCount)
	write(cmdSweepPoints)

	write(cmdCenterFreq(s.CenterHz))
	time.Sleep(d.settleDelay)
	write(cmdSpan(s.SpanHz))
	time.Sleep(d.settleDelay)
	write(cmdResolutionBW(s.RBWHz))
	time.Sleep(d.settleDelay)
	write(cmdRefLevel(s.RefLevelDBm))
	time.Sleep(d.settleDelay)
	write(cmdFreqShift(s.FreqShiftHz))
	time.Sleep(d.settleDelay)

	if s.HighSensitivity {
		write(cmdHSensOn)
	} else {
		write(cmdHSensOff)
	}
	time.Sleep(d.settleDelay)

	if s.Preamp {
		write(cmdPreampOn)
	} else {
		write(cmdPreampOff)
	}
	time.Sleep(d.settleDelay)

	return errors.Join(errs...)
}

// Sweep switches the instrument out of continuous mode, triggers one
// blocking acquisition and retrieves the frequency axis and power trace as
// two separately queried arrays. A length mismatch between the two is a
// failure with no partial data.
func (d *Driver) Sweep() (freqsHz, powersDBm []float64, err error) {
	if d.handle == nil {
		return nil, nil, ErrNotConnected
	}

	if err = d.write(cmdContinuousOff); err != nil {
		return nil, nil, err
	}
	if err = d.write(cmdInitiateWait); err != nil {
		return nil, nil, err
	}
	time.Sleep(d.sweepDelay)

	freqResp, err := d.query(queryTraceX)
	if err != nil {
		return nil, nil, fmt.Errorf("querying frequency axis: %w", err)
	}
	if freqsHz, err = parseFloatList(freqResp); err != nil {
		return nil, nil, fmt.Errorf("parsing frequency axis: %w", err)
	}

	traceResp, err := d.query(queryTraceData)
	if err != nil {
		return nil, nil, fmt.Errorf("querying trace data: %w", err)
	}
	if powersDBm, err = parseFloatList(stripBlockHeader(traceResp)); err != nil {
		return nil, nil, fmt.Errorf("parsing trace data: %w", err)
	}

	if len(freqsHz) != len(powersDBm) {
		return nil, nil, fmt.Errorf("%w: %d frequencies, %d powers", ErrLengthMismatch, len(freqsHz), len(powersDBm))
	}

	d.logger.Debug("single sweep complete", slog.Int("points", len(freqsHz)))
	return freqsHz, powersDBm, nil
}

func (d *Driver) write(cmd string) error {
	if err := d.handle.Write(cmd); err != nil {
		d.logger.Error(fmt.Sprintf("error writing command %q: %s", cmd, err.Error()))
		return fmt.Errorf("writing %q: %w", cmd, err)
	}

	d.logger.Debug("VISA command sent", slog.String("command", cmd))
	return nil
}

func (d *Driver) query(cmd string) (string, error) {
	resp, err := d.handle.Query(cmd)
	if err != nil {
		d.logger.Error(fmt.Sprintf("error querying command %q: %s", cmd, err.Error()))
		return "", fmt.Errorf("querying %q: %w", cmd, err)
	}

	d.logger.Debug("VISA query answered", slog.String("command", cmd), slog.Int("responseLen", len(resp)))
	return resp, nil
}
