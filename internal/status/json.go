package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Sensor SensorJSON `json:"sensor"`
}

// SensorJSON contains the status details of one sensor.
type SensorJSON struct {
	Name          string     `json:"name"`
	Ready         bool       `json:"ready"`
	Category      string     `json:"category"`
	Code          int        `json:"code"`
	Message       string     `json:"message"`
	Raw           int        `json:"raw"`
	Voltage       int        `json:"voltage"`
	Baseline      int        `json:"baseline"`
	Slope         int        `json:"slope"`
	Deviation     int        `json:"deviation"`
	Cycles        int        `json:"cycles"`
	Window        WindowJSON `json:"baseline_window"`
	ReadErrors    int        `json:"read_errors"`
	LastError     string     `json:"last_error,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	Config        ConfigJSON `json:"config"`
}

// WindowJSON describes the baseline accumulator.
type WindowJSON struct {
	Samples   int    `json:"samples"`
	Sum       uint32 `json:"sum"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source   string `json:"source"`
	SampleMs int64  `json:"sample_ms"`
	ReportMs int64  `json:"report_ms"`
	WarmUpMs int64  `json:"warm_up_ms"`
}

func buildSensor(snap Snapshot) SensorJSON {
	s := snap.Sensor
	out := SensorJSON{
		Name:          snap.Name,
		Ready:         s.Ready,
		Category:      s.Category.String(),
		Code:          s.Category.Code(),
		Message:       snap.Message(),
		Raw:           s.RawValue,
		Voltage:       s.CurrentVoltage,
		Baseline:      s.Baseline,
		Slope:         s.Slope(),
		Deviation:     s.Deviation(),
		Cycles:        s.Cycles,
		Window:        WindowJSON{Samples: s.SampleCount, Sum: s.VoltageSum},
		ReadErrors:    snap.ReadErrors,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			Source:   snap.Config.Source,
			SampleMs: snap.Config.SampleMs,
			ReportMs: snap.Config.ReportMs,
			WarmUpMs: snap.Config.WarmUpMs,
		},
	}
	if !s.BaselineAt.IsZero() {
		out.Window.UpdatedAt = s.BaselineAt.UTC().Format(time.RFC3339)
	}
	return out
}

// FormatJSON returns the status of one sensor as a single-line JSON object.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Sensor: buildSensor(snap)})
	return data
}

// FormatLine returns the human-readable report for one sensor: elapsed
// milliseconds, category code, raw value and message, followed by the
// baseline and its age.
func FormatLine(snap Snapshot) string {
	s := snap.Sensor
	line := fmt.Sprintf("[%s] Time : %d\tSlope : %d\tRaw Value : %d\n%s",
		snap.Name, snap.Uptime().Milliseconds(), s.Category.Code(), s.RawValue, snap.Message())
	if !s.Ready {
		return line
	}
	return fmt.Sprintf("%s (baseline %d, updated %s, %s samples in window)",
		line, s.Baseline,
		humanize.RelTime(s.BaselineAt, snap.Now, "ago", "from now"),
		humanize.Comma(int64(s.SampleCount)))
}
