package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openair-rf/openair/internal/instrument"
	"github.com/openair-rf/openair/internal/spectrum"
)

// fakeDriver scripts instrument behavior per call. Sweeps synthesize three
// points spanning the most recently configured segment.
type fakeDriver struct {
	configured []instrument.Settings
	sweeps     int

	configureErr func(call int) error
	sweepPanic   func(call int)
	afterSweep   func(call int)
}

func (d *fakeDriver) Configure(s instrument.Settings) error {
	d.configured = append(d.configured, s)
	if d.configureErr != nil {
		return d.configureErr(len(d.configured))
	}
	return nil
}

func (d *fakeDriver) Sweep() ([]float64, []float64, error) {
	d.sweeps++
	if d.sweepPanic != nil {
		d.sweepPanic(d.sweeps)
	}

	s := d.configured[len(d.configured)-1]
	start, stop := s.CenterHz-s.SpanHz/2, s.CenterHz+s.SpanHz/2
	freqs := []float64{start, s.CenterHz, stop}
	powers := []float64{-50, -60, -55}

	if d.afterSweep != nil {
		d.afterSweep(d.sweeps)
	}
	return freqs, powers, nil
}

func threeBands() []spectrum.Band {
	return []spectrum.Band{
		{Name: "band-a", StartHz: 100e6, StopHz: 110e6},
		{Name: "band-b", StartHz: 200e6, StopHz: 210e6},
		{Name: "band-c", StartHz: 300e6, StopHz: 310e6},
	}
}

func TestScanner_CompletesAllBands(t *testing.T) {
	driver := &fakeDriver{}

	var progress []float64
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 5e6},
		WithProgress(func(p float64) { progress = append(progress, p) }))

	result := s.sweep(context.Background(), threeBands())

	if result.LastBandIndex != 2 {
		t.Errorf("expected last band index 2, got %d", result.LastBandIndex)
	}
	if len(result.Records) != 6 { // 3 bands x 2 segments of 5 MHz
		t.Errorf("expected 6 segment records, got %d", len(result.Records))
	}
	if len(result.Markers) != 0 {
		t.Errorf("expected no markers, got %d", len(result.Markers))
	}

	if len(progress) == 0 {
		t.Fatal("expected progress reports")
	}
	if progress[0] != 0 {
		t.Errorf("expected first progress report 0, got %f", progress[0])
	}
	if last := progress[len(progress)-1]; last != 100 {
		t.Errorf("expected final progress 100, got %f", last)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress not monotonic: %f after %f", progress[i], progress[i-1])
		}
	}
}

func TestScanner_RecordsCarryProvenance(t *testing.T) {
	driver := &fakeDriver{}
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	before := time.Now().UTC()
	result := s.sweep(context.Background(), threeBands()[:1])

	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}

	r := result.Records[0]
	if r.Band != "band-a" {
		t.Errorf("expected band name band-a, got %s", r.Band)
	}
	if r.Segment.CenterHz != 105e6 || r.Segment.SpanHz != 10e6 {
		t.Errorf("unexpected segment bounds: center %f, span %f", r.Segment.CenterHz, r.Segment.SpanHz)
	}
	if r.Timestamp.Before(before) || r.Timestamp.After(time.Now().UTC()) {
		t.Errorf("acquisition timestamp %v outside expected window", r.Timestamp)
	}
	if len(r.Samples) != 3 {
		t.Errorf("expected 3 samples, got %d", len(r.Samples))
	}
}

func TestScanner_StopBetweenBands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stop after the first band's only segment completes, before band 2
	driver := &fakeDriver{
		afterSweep: func(call int) {
			if call == 1 {
				cancel()
			}
		},
	}
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	result := s.sweep(ctx, threeBands())

	if result.LastBandIndex != 0 {
		t.Errorf("expected last band index 0, got %d", result.LastBandIndex)
	}
	if len(result.Records) != 1 {
		t.Errorf("expected only band 1's segment, got %d records", len(result.Records))
	}
	for _, r := range result.Records {
		if r.Band != "band-a" {
			t.Errorf("unexpected record from band %s after stop", r.Band)
		}
	}
	if driver.sweeps != 1 {
		t.Errorf("expected instrument untouched after stop, got %d sweeps", driver.sweeps)
	}
}

func TestScanner_EmptySelectionReturnsImmediately(t *testing.T) {
	driver := &fakeDriver{}
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	result := s.sweep(context.Background(), nil)

	if result.LastBandIndex != -1 {
		t.Errorf("expected last band index -1, got %d", result.LastBandIndex)
	}
	if len(result.Records) != 0 {
		t.Errorf("expected no records, got %d", len(result.Records))
	}
	if len(driver.configured) != 0 || driver.sweeps != 0 {
		t.Error("instrument must not be touched for an empty selection")
	}
}

func TestScanner_ConfigureFailureSkipsSegment(t *testing.T) {
	driver := &fakeDriver{
		configureErr: func(call int) error {
			if call == 2 {
				return errors.New("command rejected")
			}
			return nil
		},
	}
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	result := s.sweep(context.Background(), threeBands())

	// one bad segment must not lose the rest of the scan
	if result.LastBandIndex != 2 {
		t.Errorf("expected scan to finish all bands, last index %d", result.LastBandIndex)
	}
	if len(result.Records) != 2 {
		t.Errorf("expected 2 records after one skip, got %d", len(result.Records))
	}
}

func TestScanner_WorkerPanicKeepsPartialData(t *testing.T) {
	driver := &fakeDriver{
		sweepPanic: func(call int) {
			if call == 2 {
				panic("instrument handle corrupted")
			}
		},
	}
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	if err := s.Start(context.Background(), threeBands()); err != nil {
		t.Fatalf("failed to start scan: %v", err)
	}

	result := s.Wait()
	if len(result.Records) != 1 {
		t.Errorf("expected partial data from before the fault, got %d records", len(result.Records))
	}
	if state := s.State(); state != StateNotRunning {
		t.Errorf("expected state not-running after fault, got %s", state)
	}
}

func TestScanner_StartPreflight(t *testing.T) {
	bands := threeBands()

	s := NewScanner(nil, Config{})
	if err := s.Start(context.Background(), bands); !errors.Is(err, instrument.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected for nil driver, got %v", err)
	}

	s = NewScanner(&fakeDriver{}, Config{})
	if err := s.Start(context.Background(), nil); !errors.Is(err, ErrNoBands) {
		t.Errorf("expected ErrNoBands for empty selection, got %v", err)
	}

	invalid := []spectrum.Band{{Name: "broken", StartHz: 110e6, StopHz: 100e6}}
	if err := s.Start(context.Background(), invalid); err == nil {
		t.Error("expected error for invalid band range")
	}
}

func TestScanner_RejectsConcurrentScan(t *testing.T) {
	release := make(chan struct{})
	driver := &fakeDriver{
		afterSweep: func(call int) {
			if call == 1 {
				<-release
			}
		},
	}
	s := NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	if err := s.Start(context.Background(), threeBands()); err != nil {
		t.Fatalf("failed to start scan: %v", err)
	}
	if err := s.Start(context.Background(), threeBands()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	close(release)
	s.Wait()

	// a finished scanner accepts a new scan
	if err := s.Start(context.Background(), threeBands()); err != nil {
		t.Errorf("expected restart after completion, got %v", err)
	}
	s.Wait()
}

func TestScanner_PauseResumeStop(t *testing.T) {
	paused := make(chan struct{})
	var s *Scanner

	driver := &fakeDriver{}
	driver.afterSweep = func(call int) {
		if call == 1 {
			s.Pause()
			close(paused)
		}
	}

	s = NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	if err := s.Start(context.Background(), threeBands()); err != nil {
		t.Fatalf("failed to start scan: %v", err)
	}

	<-paused
	if state := s.State(); state != StatePaused {
		t.Errorf("expected state paused, got %s", state)
	}

	s.Resume()
	result := s.Wait()

	if result.LastBandIndex != 2 {
		t.Errorf("expected completion after resume, last index %d", result.LastBandIndex)
	}
	if state := s.State(); state != StateNotRunning {
		t.Errorf("expected state not-running after completion, got %s", state)
	}
}

func TestScanner_StopWhilePaused(t *testing.T) {
	paused := make(chan struct{})
	var s *Scanner

	driver := &fakeDriver{}
	driver.afterSweep = func(call int) {
		if call == 1 {
			s.Pause()
			close(paused)
		}
	}

	s = NewScanner(driver, Config{RBWHz: 10e3, MaxSegmentSpanHz: 20e6})

	if err := s.Start(context.Background(), threeBands()); err != nil {
		t.Fatalf("failed to start scan: %v", err)
	}

	<-paused
	s.Stop()
	result := s.Wait()

	if len(result.Records) != 1 {
		t.Errorf("expected partial data preserved on stop, got %d records", len(result.Records))
	}
	if state := s.State(); state != StateNotRunning {
		t.Errorf("expected state not-running after stop, got %s", state)
	}
}
