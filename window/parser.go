package window

import (
	"strings"

	"golang.org/x/text/cases"
)

// Record is one visible window as reported by the window lister.
type Record struct {
	ProcessID string `json:"processId"`
	Title     string `json:"title"`
}

// ParseLine parses a single "<processId>;<title>" line.
// Returns false if the line is not a well-formed record.
func ParseLine(line string) (Record, bool) {
	line = strings.TrimSuffix(line, "\r")

	// Split on the first semicolon only; titles may contain more of them.
	processID, title, ok := strings.Cut(line, ";")
	if !ok || processID == "" || title == "" {
		return Record{}, false
	}

	return Record{ProcessID: processID, Title: title}, true
}

// Parse parses a blob of lister output into records, in source order.
// Malformed and blank lines are dropped.
func Parse(blob string) []Record {
	var records []Record
	for _, line := range strings.Split(blob, "\n") {
		if r, ok := ParseLine(line); ok {
			records = append(records, r)
		}
	}
	return records
}

// Find returns the first record whose title contains query, ignoring case.
func Find(records []Record, query string) (Record, bool) {
	fold := cases.Fold()
	q := fold.String(query)
	for _, r := range records {
		if strings.Contains(fold.String(r.Title), q) {
			return r, true
		}
	}
	return Record{}, false
}

// Filter returns the records whose title contains query, ignoring case.
func Filter(records []Record, query string) []Record {
	fold := cases.Fold()
	q := fold.String(query)
	matched := []Record{}
	for _, r := range records {
		if strings.Contains(fold.String(r.Title), q) {
			matched = append(matched, r)
		}
	}
	return matched
}
