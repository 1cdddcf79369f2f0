package deck

import "time"

// Status is a point-in-time view of a deck, safe to read from any goroutine.
type Status struct {
	Project       string    `json:"project"`
	Name          string    `json:"name"`
	State         string    `json:"state"`
	Phase         string    `json:"phase"`
	Diagnostic    string    `json:"diagnostic,omitempty"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	DisplayWidth  int       `json:"display_width"`
	DisplayHeight int       `json:"display_height"`
	Orientation   string    `json:"orientation"`
	Webserver     bool      `json:"webserver"`
	Assets        int       `json:"assets"`
	Loaded        int       `json:"loaded"`
	Cascades      int       `json:"cascades"`
	Failures      int       `json:"failures"`
	LastCascade   *Summary  `json:"last_cascade,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summary is the JSON form of a Cascade.
type Summary struct {
	ID         string  `json:"id"`
	Outcome    string  `json:"outcome"`
	Trace      string  `json:"trace"`
	DurationMS float64 `json:"duration_ms"`
	FullReset  bool    `json:"full_reset"`
	Reloaded   int     `json:"reloaded"`
	Error      string  `json:"error,omitempty"`
}

func summarize(c Cascade) *Summary {
	return &Summary{
		ID:         c.ID.String(),
		Outcome:    c.Outcome(),
		Trace:      c.TraceString(),
		DurationMS: float64(c.Duration.Microseconds()) / 1000,
		FullReset:  c.FullReset,
		Reloaded:   c.Reloaded,
		Error:      c.ErrorText(),
	}
}
