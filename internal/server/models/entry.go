package models

import (
	"fmt"
	"time"

	"github.com/weightlog/weightlog/internal/server/units"
)

// DateLayout is the ISO calendar date used on the wire, in CSV files and in
// URL paths.
const DateLayout = "2006-01-02"

// inputDateLayout also accepts single-digit months and days.
const inputDateLayout = "2006-1-2"

// Entry is a row of the entries table.
type Entry struct {
	ID     int64
	UserID int64
	Date   time.Time
	Weight float64
	Metric bool
}

func (e *Entry) String() string {
	return fmt.Sprintf("[%d, %d, %s, %g, %t]", e.ID, e.UserID, e.Date.Format(DateLayout), e.Weight, e.Metric)
}

// EntryDTO is the wire form of an entry.
type EntryDTO struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"user_id"`
	Date     Date    `json:"date"`
	Weight   float64 `json:"weight"`
	IsMetric bool    `json:"is_metric"`
}

// EntryToDTO expresses row in the caller's preferred unit.
func EntryToDTO(row *Entry, metric bool) EntryDTO {
	return EntryDTO{
		ID:       row.ID,
		UserID:   row.UserID,
		Date:     Date{Time: row.Date},
		Weight:   units.Convert(row.Weight, row.Metric, metric),
		IsMetric: metric,
	}
}

// ToRow converts the wire form to a row owned by userID. The user_id sent by
// the client is ignored.
func (d *EntryDTO) ToRow(userID int64) *Entry {
	return &Entry{
		ID:     d.ID,
		UserID: userID,
		Date:   d.Date.Time,
		Weight: d.Weight,
		Metric: d.IsMetric,
	}
}

// Date is a calendar date encoded as "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

// ParseDate reads an ISO date; month and day may omit the leading zero.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(inputDateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string, got %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
