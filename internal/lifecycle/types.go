package lifecycle

// Status values reported in UnitResult.
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusInProgress = "in-progress"
)

// UnitResult is the outcome of one run of the startup persistence unit.
type UnitResult struct {
	Unit       string `json:"unit"`
	Status     string `json:"status"` // "ok", "error", "in-progress"
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// ProbeResult is returned by RunDeepHealth for each dependency.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}
