package notifier

import (
	"log/slog"
)

type Status string

const (
	StatusSent           Status = "sent"
	StatusSkippedNoEmail Status = "skipped_no_email"
	StatusFailed         Status = "failed"
)

// Stage names the step of a per-user notification that produced a failure.
type Stage string

const (
	StageLoadUser Stage = "load_user"
	StageRender   Stage = "render"
	StageSend     Stage = "send"
	StagePanic    Stage = "panic"
)

// Result is the outcome of notifying one newly granted user.
type Result struct {
	User   string `json:"user"`
	Email  string `json:"email,omitempty"`
	Status Status `json:"status"`
	Stage  Stage  `json:"stage,omitempty"`
	Error  string `json:"error,omitempty"`
	Err    error  `json:"-"`
}

func (r *Result) fail(stage Stage, err error) {
	r.Status = StatusFailed
	r.Stage = stage
	r.Err = err
	r.Error = err.Error()
}

// Summary aggregates the per-user results of one hook invocation.
type Summary struct {
	InvocationID string   `json:"invocation_id"`
	Ticket       string   `json:"ticket"`
	Space        string   `json:"space_name"`
	Subpath      string   `json:"subpath"`
	Results      []Result `json:"results"`
}

func (s *Summary) Count(status Status) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (s *Summary) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("ticket", s.Ticket),
		slog.Int("users", len(s.Results)),
		slog.Int("sent", s.Count(StatusSent)),
		slog.Int("skipped", s.Count(StatusSkippedNoEmail)),
		slog.Int("failed", s.Count(StatusFailed)),
	)
}
