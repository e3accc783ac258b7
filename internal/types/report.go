package types

// RowError describes one row that did not reconcile cleanly. Index is the row's
// position in the submitted list.
type RowError struct {
	Index   int     `json:"index"`
	CaseKey *string `json:"caseKey"`
	Error   string  `json:"error"`
}

// ImportReport is the summary returned to the caller of a reconciliation run.
type ImportReport struct {
	TotalRows    int        `json:"totalRows"`
	SuccessCount int        `json:"successCount"`
	FailCount    int        `json:"failCount"`
	Errors       []RowError `json:"errors"`
	ImportLogID  *string    `json:"importLogId"`
	// Warnings lists side-channel failures (duplicate notes, import log) that did
	// not change the outcome of the run.
	Warnings []string `json:"warnings,omitempty"`
}
