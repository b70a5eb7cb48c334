// Package listing holds the job feed helpers used by the views: the counter
// and the category preview on each card.
package listing

import (
	"fmt"
)

// MaxCategoryPreview is how many categories a job card shows before "+N more".
const MaxCategoryPreview = 3

// CountLabel renders "1 job available" / "N jobs available".
func CountLabel(n int) string {
	if n == 1 {
		return "1 job available"
	}
	return fmt.Sprintf("%d jobs available", n)
}

// CategoryPreview returns the categories to show and how many were hidden.
func CategoryPreview(categories []string) ([]string, int) {
	if len(categories) <= MaxCategoryPreview {
		return categories, 0
	}
	return categories[:MaxCategoryPreview], len(categories) - MaxCategoryPreview
}
