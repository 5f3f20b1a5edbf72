package polling

import "time"

// Summary describes one reconciliation run.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      int       `json:"pages"`
	Checked    int       `json:"checked"`
	Corrected  int       `json:"corrected"`
	Unmatched  int       `json:"unmatched"`
	Failed     int       `json:"failed"`
	Skipped    bool      `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// remoteCustomer is the part of a listed Paystack customer the poller reads.
type remoteCustomer struct {
	Code       string
	ID         string
	RiskAction string
}

func (c remoteCustomer) candidates() []string {
	var out []string
	if c.Code != "" {
		out = append(out, c.Code)
	}
	if c.ID != "" && c.ID != c.Code {
		out = append(out, c.ID)
	}
	return out
}
