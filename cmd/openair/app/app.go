package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/openair-rf/openair/internal/export"
	"github.com/openair-rf/openair/internal/instrument"
	"github.com/openair-rf/openair/internal/scan"
	"github.com/openair-rf/openair/internal/spectrum"
	"github.com/openair-rf/openair/internal/stitch"
	"github.com/openair-rf/openair/internal/storage"
)

const (
	storageDir = "data"
	dbFileName = "openair.sqlite"
)

// Run executes one full scan: connect, sweep all selected bands, stitch,
// persist and export. Cancelling ctx requests a cooperative stop; partial
// data accumulated up to the stop is still stitched and saved.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	bands := config.Scan.SelectedBands()
	if len(bands) == 0 {
		return scan.ErrNoBands
	}

	handle, err := openHandle(&config.Instrument)
	if err != nil {
		return fmt.Errorf("connecting to instrument: %w", err)
	}
	defer handle.Close()

	model, err := instrument.Identify(handle)
	if err != nil {
		return fmt.Errorf("identifying instrument: %w", err)
	}
	logger.Info("instrument connected", slog.String("model", model))

	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	defer store.Close()

	driver := instrument.NewDriver(handle, instrument.WithLogger(logger))
	scanner := scan.NewScanner(driver, scanConfigOf(config),
		scan.WithLogger(logger),
		scan.WithProgress(func(percent float64) {
			logger.Info("scan progress", slog.String("percent", fmt.Sprintf("%.1f%%", percent)))
		}))

	if err = scanner.Start(ctx, bands); err != nil {
		return fmt.Errorf("starting scan: %w", err)
	}

	result := scanner.Wait()
	if ctx.Err() != nil {
		logger.Info("scan stopped by user, keeping partial data",
			slog.Int("segments", len(result.Records)))
	}

	if len(result.Records) == 0 {
		logger.Warn("no data collected, nothing to stitch")
		return nil
	}

	overallStartHz, overallStopHz := spectrum.OverallRange(bands)
	trace := stitch.StitchRecords(result.Records, overallStartHz, overallStopHz)

	// persistence must survive a user-requested stop
	sctx := context.WithoutCancel(ctx)

	sessionID, err := store.CreateSession(sctx, model, config.Scan.Name, overallStartHz, overallStopHz, config.Scan)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	for _, record := range result.Records {
		if err = store.StoreSegment(sctx, sessionID, record); err != nil {
			return fmt.Errorf("storing segment: %w", err)
		}
	}
	if err = store.StoreTrace(sctx, sessionID, trace); err != nil {
		return fmt.Errorf("storing trace: %w", err)
	}

	csvPath := tracePath(&config.Export, config.Scan.Name)
	if err = export.WriteTraceCSV(csvPath, trace); err != nil {
		return fmt.Errorf("exporting trace: %w", err)
	}

	summary := spectrum.Summarize(trace)
	logger.Info("scan complete",
		slog.Int64("session", sessionID),
		slog.String("points", humanize.Comma(int64(summary.Points))),
		slog.String("range", fmt.Sprintf("%.3f-%.3f MHz", summary.StartMHz, summary.StopMHz)),
		slog.String("mean", fmt.Sprintf("%.1f dBm", summary.MeanDBm)),
		slog.String("median", fmt.Sprintf("%.1f dBm", summary.MedianDBm)),
		slog.String("peak", fmt.Sprintf("%.1f dBm @ %.3f MHz", summary.PeakDBm, summary.PeakFreqMHz)),
		slog.String("csv", csvPath))

	return nil
}

// ListSessions prints all persisted scan sessions to w.
func ListSessions(ctx context.Context, config *Config, w io.Writer) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	defer store.Close()

	sessions, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions recorded")
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintf(w, "%4d  %s  %-10s  %s  (%s)\n",
			s.ID,
			s.StartTime.Local().Format("2006-01-02 15:04:05"),
			s.InstrumentModel,
			s.ScanName,
			humanize.Time(s.StartTime))
	}
	return nil
}

// ExportSession re-exports the stitched trace of a stored session to a CSV
// file. An empty outPath derives one from the session name.
func ExportSession(ctx context.Context, config *Config, sessionID int64, outPath string, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	defer store.Close()

	session, err := store.Session(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session %d: %w", sessionID, err)
	}

	trace, err := store.Trace(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading trace for session %d: %w", sessionID, err)
	}
	if len(trace.Points) == 0 {
		return fmt.Errorf("session %d has no stitched trace", sessionID)
	}

	if outPath == "" {
		outPath = tracePath(&config.Export, session.ScanName)
	}
	if err = export.WriteTraceCSV(outPath, trace); err != nil {
		return fmt.Errorf("exporting trace: %w", err)
	}

	logger.Info("session exported",
		slog.Int64("session", sessionID),
		slog.String("points", humanize.Comma(int64(len(trace.Points)))),
		slog.String("csv", outPath))
	return nil
}

func openHandle(config *InstrumentConfig) (instrument.Handle, error) {
	switch config.Transport {
	case TransportSerial:
		return instrument.OpenSerial(config.Port, config.BaudRate, config.Timeout())
	case TransportTCP:
		return instrument.DialTCP(config.Address, config.Timeout())
	default:
		return nil, fmt.Errorf("unknown transport '%s'", config.Transport)
	}
}

func scanConfigOf(config *Config) scan.Config {
	return scan.Config{
		Name:             config.Scan.Name,
		RBWHz:            config.Scan.RBWHz,
		RefLevelDBm:      config.Scan.RefLevelDBm,
		FreqShiftHz:      config.Scan.FreqShiftHz,
		MaxSegmentSpanHz: config.Scan.MaxSegmentSpanMHz * spectrum.MHzToHz,
		HighSensitivity:  config.Scan.HighSensitivity,
		Preamp:           config.Scan.Preamp,
		SegmentDir:       config.Export.SegmentDirectory,
	}
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	var options []func(*storage.Store)
	if config.MaxBatchSize > 0 {
		options = append(options, storage.WithMaxBatchSize(config.MaxBatchSize))
	}

	return storage.New(filepath.Join(dir, dbFileName), options...), nil
}

func tracePath(config *ExportConfig, scanName string) string {
	dir := config.OutputDirectory
	if dir == "" {
		dir = "."
	}
	if scanName == "" {
		scanName = "scan"
	}
	name := fmt.Sprintf("%s_%s.csv", scanName, time.Now().UTC().Format("20060102_150405"))
	return filepath.Join(dir, name)
}
