package domain

type RowState string

func (s RowState) String() string {
	return string(s)
}

const (
	RowStateIdle              RowState = "idle"
	RowStateModalDismissed    RowState = "modal_dismissed"
	RowStateFieldsFilled      RowState = "fields_filled"
	RowStateSubmitted         RowState = "submitted"
	RowStateRetryingError     RowState = "retrying_error"
	RowStateConfirmed         RowState = "confirmed"
	RowStateArtifactGenerated RowState = "artifact_generated"
	RowStateAbandoned         RowState = "abandoned" // soft-terminal, the batch keeps going
	RowStateFailed            RowState = "failed"
	RowStateSkipped           RowState = "skipped" // already completed in an earlier run
)

// Terminal reports whether no further transition is expected for the row.
func (s RowState) Terminal() bool {
	switch s {
	case RowStateArtifactGenerated, RowStateAbandoned, RowStateFailed, RowStateSkipped:
		return true
	default:
		return false
	}
}

type FieldOutcome string

const (
	FieldApplied FieldOutcome = "applied"
	FieldSkipped FieldOutcome = "skipped"
	FieldFailed  FieldOutcome = "failed"
)

// FieldResult is the outcome of applying one form field from a row
type FieldResult struct {
	Column  string       `json:"column"`
	Outcome FieldOutcome `json:"outcome"`
	Err     error        `json:"-"`
}

type AttemptOutcome string

const (
	AttemptResolved  AttemptOutcome = "resolved"
	AttemptExhausted AttemptOutcome = "exhausted"
)

// SubmissionAttempt is the transient state of one submit-like action and its retries
type SubmissionAttempt struct {
	Selector string         `json:"selector"`
	Retries  int            `json:"retries"`
	Outcome  AttemptOutcome `json:"outcome"`
}

// RowReport summarises the processing of one order row
type RowReport struct {
	Index        int                `json:"index"`
	OrderNumber  string             `json:"order_number"`
	State        RowState           `json:"state"`
	Fields       []FieldResult      `json:"fields"`
	Submit       *SubmissionAttempt `json:"submit,omitempty"`
	OrderAnother *SubmissionAttempt `json:"order_another,omitempty"`
	Artifact     *OrderArtifact     `json:"artifact,omitempty"`
	Err          error              `json:"-"`
}

// Retries returns the retry clicks spent on the row
func (r *RowReport) Retries() int {
	total := 0
	if r.Submit != nil {
		total += r.Submit.Retries
	}
	if r.OrderAnother != nil {
		total += r.OrderAnother.Retries
	}
	return total
}

// FailedFields returns the columns whose value could not be applied
func (r *RowReport) FailedFields() []string {
	var failed []string
	for _, f := range r.Fields {
		if f.Outcome == FieldFailed {
			failed = append(failed, f.Column)
		}
	}
	return failed
}

// BatchReport aggregates the row reports of one run
type BatchReport struct {
	RunID string       `json:"run_id"`
	Rows  []*RowReport `json:"rows"`
}

// Count returns how many rows ended in the given state
func (b *BatchReport) Count(state RowState) int {
	n := 0
	for _, r := range b.Rows {
		if r.State == state {
			n++
		}
	}
	return n
}
