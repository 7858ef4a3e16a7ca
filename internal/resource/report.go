package resource

import "sort"

// Action is what a row asked for.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Outcome is what happened to a row.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// RowResult records the outcome of one data row.
type RowResult struct {
	// Line is the 1-based line in the file; the header is line 1.
	Line    int     `json:"line"`
	Action  Action  `json:"action"`
	Outcome Outcome `json:"outcome"`
	ID      int64   `json:"id,omitempty"`
	Error   string  `json:"error,omitempty"`

	// Unmatched lists relation values that resolved to no record. They are
	// ignored and do not fail the row.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Report summarizes one import run.
type Report struct {
	RunID    string      `json:"run_id"`
	Resource string      `json:"resource"`
	Created  int         `json:"created"`
	Updated  int         `json:"updated"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Rows     []RowResult `json:"rows"`
}

func (rep *Report) add(res RowResult) {
	switch res.Outcome {
	case OutcomeCreated:
		rep.Created++
	case OutcomeUpdated:
		rep.Updated++
	case OutcomeSkipped:
		rep.Skipped++
	case OutcomeFailed:
		rep.Failed++
	}
	rep.Rows = append(rep.Rows, res)
}

// sortRows orders results by file line; rows are processed updates first.
func (rep *Report) sortRows() {
	sort.SliceStable(rep.Rows, func(i, j int) bool { return rep.Rows[i].Line < rep.Rows[j].Line })
}
