// Package export writes scan output in the two-column tabular shape
// consumed by downstream plotting tools: stitched traces in MHz and
// per-segment crash-safety files in Hz.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openair-rf/openair/internal/spectrum"
)

// WriteTraceCSV writes a stitched trace to path, creating parent
// directories as needed.
func WriteTraceCSV(path string, trace spectrum.Trace) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	defer closeWithError(f, &err)

	w := csv.NewWriter(f)
	if err = w.Write([]string{"Frequency (MHz)", "Power (dBm)"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range trace.Points {
		if err = w.Write([]string{formatFloat(p.FrequencyMHz), formatFloat(p.PowerDBm)}); err != nil {
			return fmt.Errorf("writing trace row: %w", err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("flushing trace file: %w", err)
	}
	return nil
}

// WriteSegmentCSV writes one completed segment's raw samples to its own
// file under dir and returns the file path. One file per segment keeps a
// crash mid-scan from losing everything acquired so far.
func WriteSegmentCSV(dir string, seq int, record spectrum.SegmentRecord) (path string, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}

	name := fmt.Sprintf("segment_%04d_%s_%s.csv", seq, sanitizeName(record.Band), record.Timestamp.Format("20060102T150405Z"))
	path = filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating segment file: %w", err)
	}
	defer closeWithError(f, &err)

	w := csv.NewWriter(f)
	if err = w.Write([]string{"Frequency (Hz)", "Power (dBm)"}); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	for _, s := range record.Samples {
		if err = w.Write([]string{formatFloat(s.FrequencyHz), formatFloat(s.PowerDBm)}); err != nil {
			return "", fmt.Errorf("writing sample row: %w", err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return "", fmt.Errorf("flushing segment file: %w", err)
	}
	return path, nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
