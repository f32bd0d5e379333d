// Package entrycsv reads and writes the weight log CSV format:
//
//	Date, Weight, Units
//	2022-01-02, 150, lb
//	2022-01-03, 68.1, kg
package entrycsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/weightlog/weightlog/internal/server/models"
	"github.com/weightlog/weightlog/internal/server/units"
)

// Header holds the expected column names, in order.
var Header = []string{"Date", "Weight", "Units"}


// FormatError describes why an uploaded file was rejected. Its message is
// shown to the user as is.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return e.Msg }

func formatErr(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// Parse reads the header and every data line of data. Blank lines are
// skipped; errors name the offending line, counting the header as line 1.
// The returned entries have no ID or UserID.
func Parse(data string) ([]*models.Entry, error) {
	first, _, _ := strings.Cut(data, "\n")
	if strings.TrimSpace(first) == "" {
		return nil, formatErr("No column headers found.")
	}

	r := csv.NewReader(strings.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, formatErr("Unable to read column headers: %v", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var result []*models.Entry
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, formatErr("Unable to parse line %d.", pe.Line)
			}
			return nil, formatErr("Unable to parse file: %v", err)
		}

		line, _ := r.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		e, err := parseRecord(rec, line)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	return result, nil
}

func checkHeader(header []string) error {
	if len(header) != len(Header) {
		return formatErr("Expected %d columns but found %d.", len(Header), len(header))
	}
	for i, want := range Header {
		got := strings.TrimSpace(header[i])
		if got != want {
			return formatErr("Expected %q for column %d header but found %q.", want, i+1, got)
		}
	}
	return nil
}

func parseRecord(rec []string, line int) (*models.Entry, error) {
	if len(rec) != len(Header) {
		return nil, formatErr("Expected %d values on line %d but found %d.", len(Header), line, len(rec))
	}

	date, err := models.ParseDate(strings.TrimSpace(rec[0]))
	if err != nil {
		return nil, formatErr("Unable to parse date %q on line %d.", rec[0], line)
	}

	weight, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return nil, formatErr("Unable to parse weight %q on line %d.", rec[1], line)
	}

	u := strings.TrimSpace(rec[2])
	metric, err := units.Parse(u)
	if err != nil {
		return nil, formatErr("Unable to parse units %q on line %d.", u, line)
	}

	return &models.Entry{Date: date.Time, Weight: weight, Metric: metric}, nil
}

var printer = message.NewPrinter(language.English)

// FormatWeight renders w with thousands separators: one decimal for
// kilograms, none for pounds.
func FormatWeight(w float64, metric bool) string {
	if metric {
		return printer.Sprintf("%.1f", w)
	}
	return printer.Sprintf("%.0f", w)
}

// Format renders entries as CSV, header first. There is no trailing newline
// after the last entry.
func Format(entries []models.EntryDTO) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s, %s, %s", e.Date, FormatWeight(e.Weight, e.IsMetric), units.Name(e.IsMetric)))
	}
	return strings.Join(Header, ", ") + "\n" + strings.Join(lines, "\n")
}
