package client

import (
	"sort"
	"strings"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
)

// FilterRequests keeps the rows in status (all when empty or "all") whose
// service id or summary contains text, case-insensitively. The input slice
// is not modified.
func FilterRequests[T models.ServiceRequest](rows []T, status, text string) []T {
	text = strings.ToLower(strings.TrimSpace(text))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		b := r.Base()
		if status != "" && status != "all" && string(b.Status) != status {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(b.ServiceID), text) &&
			!strings.Contains(strings.ToLower(r.Summary()), text) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByDate returns a copy of rows ordered by creation time, newest first
// unless asc.
func SortByDate[T models.ServiceRequest](rows []T, asc bool) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Base().CreatedAt, out[j].Base().CreatedAt
		if asc {
			return a.Before(b)
		}
		return a.After(b)
	})
	return out
}

// CanCancel reports whether the cancel action is offered for r.
func CanCancel(r models.ServiceRequest) bool {
	s := r.Base().Status
	if r.Domain() == lifecycle.DomainProposal {
		return lifecycle.CanCancelProposal(s)
	}
	return lifecycle.For(r.Domain()).CanResidentCancel(s)
}
