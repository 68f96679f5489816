package ledger

import "sort"

// LabeledEdit pairs a history row with its display number.
type LabeledEdit struct {
	Number int
	Edit   ExpenseEdit
}

// NewestFirst orders history most recent first and numbers it "Edit #N",
// N counting down from len(history). The input is not modified.
func NewestFirst(history []ExpenseEdit) []LabeledEdit {
	sorted := make([]ExpenseEdit, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	out := make([]LabeledEdit, len(sorted))
	for i, e := range sorted {
		out[i] = LabeledEdit{Number: len(sorted) - i, Edit: e}
	}
	return out
}
