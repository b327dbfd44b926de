package instrument

import (
	"fmt"
	"strconv"
	"strings"
)

// SCPI command strings for the N9340B family of spectrum analyzers. These
// are a compatibility surface with real hardware and must stay verbatim.
const (
	cmdReset         = "*RST"
	cmdAverageCount  = ":SENSe:AVERage:COUNt 1"
	cmdSweepPoints   = ":SENSe:SWEep:POINts 1001"
	cmdContinuousOff = ":INITiate:CONTinuous OFF"
	cmdInitiateWait  = ":INITiate:IMMediate; *WAI"
	cmdHSensOn       = ":SENSe:POWer:RF:HSENs ON"
	cmdHSensOff      = ":SENSe:POWer:RF:HSENs OFF"
	cmdPreampOn      = ":SENSe:POWer:RF:GAIN ON"
	cmdPreampOff     = ":SENSe:POWer:RF:GAIN OFF"

	queryIdentify  = "*IDN?"
	queryTraceX    = ":TRACe:X:VALues?"
	queryTraceData = ":TRACe:DATA? TRACE1"
)

func cmdCenterFreq(hz float64) string {
	return ":SENSe:FREQuency:CENTer " + formatHz(hz)
}

func cmdSpan(hz float64) string {
	return ":SENSe:FREQuency:SPAN " + formatHz(hz)
}

func cmdResolutionBW(hz float64) string {
	return ":SENSe:BANDwidth:RESolution " + formatHz(hz)
}

func cmdRefLevel(dbm float64) string {
	return fmt.Sprintf(":DISPlay:WINDow:TRACe:Y:RLEVel %sDBM", strconv.FormatFloat(dbm, 'f', -1, 64))
}

func cmdFreqShift(hz float64) string {
	return ":SENSe:FREQuency:RFShift " + formatHz(hz)
}

func formatHz(hz float64) string {
	return strconv.FormatFloat(hz, 'f', -1, 64)
}

// parseFloatList parses a comma-separated list of floats as returned by
// trace queries. Empty fields are skipped.
func parseFloatList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// stripBlockHeader removes an IEEE 488.2 definite-length block header
// ("#<n><len>") if the response carries one; some firmware revisions prefix
// trace data with it, some return bare ASCII.
func stripBlockHeader(s string) string {
	if len(s) < 2 || s[0] != '#' {
		return s
	}

	n := int(s[1] - '0')
	if n < 1 || n > 9 || len(s) < 2+n {
		return s
	}
	for _, c := range s[2 : 2+n] {
		if c < '0' || c > '9' {
			return s
		}
	}
	return s[2+n:]
}
