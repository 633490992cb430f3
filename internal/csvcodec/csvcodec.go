// Package csvcodec implements the CSV wire contract shared with the external
// solver: comma separation, double-quote escaping, one trailing newline per
// row, and a lenient decoder that drops truncated data lines.
package csvcodec

import (
	"encoding/csv"
	"strings"
)

// Encode renders a header plus data rows as CSV text. Fields containing
// commas, quotes, or newlines are quoted per RFC 4180.
func Encode(header []string, rows [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Decode parses CSV text into one map per data row, keyed by the header.
// The first non-empty line is the header; blank lines are skipped; a data
// line whose column count differs from the header is silently dropped.
// Solver output occasionally arrives with a truncated last line, and callers
// rely on that line being ignored rather than failing the whole file.
func Decode(text string) []map[string]string {
	lines := strings.Split(text, "\n")

	var header []string
	var out []map[string]string
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := parseLine(line)
		if err != nil {
			continue
		}
		if header == nil {
			header = fields
			continue
		}
		if len(fields) != len(header) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = fields[i]
		}
		out = append(out, row)
	}
	return out
}

func parseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}
