package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

func TestUser_ToDTO_DropsPassword(t *testing.T) {
	u := &User{ID: 100, Username: "alice", Metric: false, GoalWeight: 150, Password: "$argon2id$..."}
	d := u.ToDTO()
	assert.Equal(t, UserDTO{ID: 100, Username: "alice", UnitsName: "lb", GoalWeight: 150}, d)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":100,"username":"alice","metric":false,"units_name":"lb","goal_weight":150,"password":""}`, string(b))
}

func TestEntryToDTO_ConvertsOnlyWhenUnitsDiffer(t *testing.T) {
	row := &Entry{ID: 101, UserID: 100, Date: day("2022-03-04"), Weight: 150, Metric: false}

	assert.Equal(t, 150.0, EntryToDTO(row, false).Weight)

	d := EntryToDTO(row, true)
	assert.Equal(t, 68.0, d.Weight)
	assert.True(t, d.IsMetric)
	assert.Equal(t, "2022-03-04", d.Date.String())
}

func TestEntryDTO_JSON(t *testing.T) {
	var d EntryDTO
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"user_id":999,"date":"2022-01-31","weight":80.55,"is_metric":true}`), &d))

	row := d.ToRow(100)
	assert.Equal(t, &Entry{ID: 5, UserID: 100, Date: day("2022-01-31"), Weight: 80.55, Metric: true}, row)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"date":"2022-01-31"`)
}

func TestDate_UnmarshalErrors(t *testing.T) {
	for _, in := range []string{`20220131`, `"2022-13-01"`, `"31/01/2022"`, `""`} {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(in), &d), in)
	}
}

func TestParseDate_AcceptsUnpaddedMonthAndDay(t *testing.T) {
	for _, in := range []string{"2022-01-05", "2022-1-5", "2022-01-5", "2022-1-05"} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2022-01-05", d.String(), in)
	}

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2022-2-7"`), &d))
	assert.Equal(t, `"2022-02-07"`, mustJSON(t, d))

	for _, in := range []string{"2022-001-05", "22-1-5", "2022-1-5x"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestEntry_String(t *testing.T) {
	e := &Entry{ID: 1, UserID: 100, Date: day("2022-01-02"), Weight: 70.5, Metric: true}
	assert.Equal(t, "[1, 100, 2022-01-02, 70.5, true]", e.String())
}
