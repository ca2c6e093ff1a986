package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"barangay-portal/internal/lifecycle"
	"barangay-portal/internal/models"
)

// table is a header plus rows, rendered by outputResult in table mode.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cols ...string) { t.rows = append(t.rows, cols) }

// outputResult prints v as JSON, or tbl when the format is table. tbl may
// be nil for results with no tabular form.
func outputResult(w io.Writer, format string, v interface{}, tbl *table) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "table", "":
		if tbl == nil {
			return outputResult(w, "json", v, nil)
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(tbl.header, "\t"))
		for _, r := range tbl.rows {
			fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func requestTable(rows []models.ServiceRequest) *table {
	t := &table{header: []string{"SERVICE ID", "ID", "STATUS", "SUMMARY", "CREATED"}}
	for _, r := range rows {
		b := r.Base()
		t.add(b.ServiceID, b.ID, lifecycle.Display(r.Domain(), b.Status).Label, r.Summary(), formatTime(b.CreatedAt))
	}
	return t
}

func userTable(users []models.User) *table {
	t := &table{header: []string{"ID", "NAME", "EMAIL", "TYPE"}}
	for _, u := range users {
		t.add(u.ID, strings.TrimSpace(u.FirstName+" "+u.LastName), u.Email, string(u.Type))
	}
	return t
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseTime accepts RFC 3339 or a local date with optional minutes.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected e.g. 2026-10-20T08:00", s)
}
