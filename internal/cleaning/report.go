package cleaning

import (
	"fmt"
	"strings"
)

// Operation names used in report entries.
const (
	OpRemoveDuplicates = "remove_duplicates"
	OpCleanNegatives   = "clean_negatives"
	OpFlagOutliers     = "flag_outliers"
	OpTreatOutliers    = "treat_outliers"
	OpImpute           = "impute"
)

// ReportEntry records one cleaning operation and how many cells or rows it
// touched. Entries are descriptive only; they never feed back into cleaning.
type ReportEntry struct {
	Op     string `json:"op"`
	Column string `json:"column,omitempty"`
	Count  int    `json:"count"`
	Detail string `json:"detail,omitempty"`
}

// Report accumulates the entries produced by a cleaning run.
type Report struct {
	Entries []ReportEntry `json:"entries"`
}

func (r *Report) add(e ReportEntry) {
	r.Entries = append(r.Entries, e)
}

// Count sums the touched counts across all entries for one operation.
func (r Report) Count(op string) int {
	n := 0
	for _, e := range r.Entries {
		if e.Op == op {
			n += e.Count
		}
	}
	return n
}

// String renders the report as a numbered human-readable log.
func (r Report) String() string {
	if len(r.Entries) == 0 {
		return "no cleaning operations performed"
	}
	var b strings.Builder
	b.WriteString("Data Cleaning Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	for i, e := range r.Entries {
		if e.Column != "" {
			fmt.Fprintf(&b, "%d. %s: %s: %d (%s)\n", i+1, e.Column, e.Op, e.Count, e.Detail)
		} else {
			fmt.Fprintf(&b, "%d. %s: %d (%s)\n", i+1, e.Op, e.Count, e.Detail)
		}
	}
	return b.String()
}
