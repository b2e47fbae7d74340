package repository

import "time"

// Session is one run of the wizard, from Start to Restart or quit.
type Session struct {
	ID         string     `json:"id" yaml:"id"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Outcome    string     `json:"outcome" yaml:"outcome"`
	EntryCount int        `json:"entries" yaml:"entries"`
}

// Session outcomes.
const (
	OutcomeInProgress = "in_progress"
	OutcomeReleased   = "released"
	OutcomeRejected   = "rejected"
	OutcomeAbandoned  = "abandoned"
)

// Entry is one successful wizard step. CPFs only appear as keyed digests.
type Entry struct {
	ID           string    `json:"id" yaml:"id"`
	SessionID    string    `json:"session_id" yaml:"session_id"`
	Step         string    `json:"step" yaml:"step"`
	CustomerID   *int64    `json:"customer_id,omitempty" yaml:"customer_id,omitempty"`
	LoanID       *int64    `json:"loan_id,omitempty" yaml:"loan_id,omitempty"`
	CPFDigest    string    `json:"cpf_digest,omitempty" yaml:"cpf_digest,omitempty"`
	AmountCents  int64     `json:"amount_cents,omitempty" yaml:"amount_cents,omitempty"`
	Installments int       `json:"installments,omitempty" yaml:"installments,omitempty"`
	Rate         float64   `json:"rate,omitempty" yaml:"rate,omitempty"`
	Status       string    `json:"status,omitempty" yaml:"status,omitempty"`
	Note         string    `json:"note,omitempty" yaml:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Journal steps.
const (
	StepRegistered = "registered"
	StepAnalysed   = "analysed"
	StepRejected   = "rejected"
	StepRequested  = "requested"
	StepSigned     = "signed"
	StepReleased   = "released"
)
