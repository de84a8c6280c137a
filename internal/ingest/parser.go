package ingest

import (
	"strings"
)

// DefaultFooterMarkers are the line prefixes report exports append after the data.
var DefaultFooterMarkers = []string{"Totals", "Report Description"}

// RawRecord is one CSV data row keyed by the header row, in column order.
type RawRecord struct {
	Headers []string
	Values  []string
}

// Get returns the trimmed value under header h, or "" when the column is absent.
// Header lookup is exact; the first matching column wins.
func (r RawRecord) Get(h string) string {
	for i, k := range r.Headers {
		if k == h {
			return strings.TrimSpace(r.Values[i])
		}
	}
	return ""
}


// Parse splits CSV text into header-keyed records.
//
// Fields are split on every comma: quoted fields are not recognised, so a
// value holding a literal comma shifts the columns after it. Blank lines and
// lines starting with one of footerMarkers are skipped. Rows shorter than the
// header are padded with "", longer rows are cut at the header width.
// Input with no header line yields nil headers and no records.
func Parse(text string, footerMarkers []string) ([]string, []RawRecord) {
	text = strings.TrimPrefix(text, "\ufeff")
	var headers []string
	var out []RawRecord
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || isFooter(line, footerMarkers) {
			continue
		}
		cells := strings.Split(line, ",")
		if headers == nil {
			headers = make([]string, len(cells))
			for i, c := range cells {
				headers[i] = strings.TrimSpace(c)
			}
			continue
		}
		vals := make([]string, len(headers))
		copy(vals, cells)
		out = append(out, RawRecord{Headers: headers, Values: vals})
	}
	return headers, out
}

func isFooter(line string, markers []string) bool {
	l := strings.TrimSpace(line)
	for _, m := range markers {
		if m != "" && strings.HasPrefix(l, m) {
			return true
		}
	}
	return false
}
