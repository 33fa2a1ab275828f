package sheets

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestIdentityColumn(t *testing.T) {
	idx, err := IdentityColumn([]string{"Reg Number", "Student Name", "Math"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = IdentityColumn([]string{"Student Name", "Admission ID", "Math"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = IdentityColumn([]string{"Student Name", "Math", "English"})
	assert.ErrorIs(t, err, ErrIdentityColumnNotFound)
}

func TestParseWithoutIdentityColumnProducesNothing(t *testing.T) {
	s, err := Parse([][]string{
		{"Student Name", "Math"},
		{"X", "85"},
	})
	assert.ErrorIs(t, err, ErrIdentityColumnNotFound)
	assert.Nil(t, s)
}

func TestParseRolesAndRows(t *testing.T) {
	s, err := Parse([][]string{
		{" Reg Number ", "Student Name", "Class", "Math", "", "English"},
		{"A1", "X", "Form 1", "85", "ignored", "70"},
		{"", "", "", "", "", ""},
		{"A2", "Y"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Reg Number", s.Identity)
	assert.Equal(t, "Student Name", s.Name)
	assert.Equal(t, "Class", s.Class)
	assert.Equal(t, []string{"Math", "English"}, s.ValueColumns())
	require.Len(t, s.Rows, 2)
	assert.Equal(t, 2, s.Rows[0].Number)
	assert.Equal(t, "85", s.Rows[0].Get("Math"))
	assert.Equal(t, 4, s.Rows[1].Number)
	assert.Equal(t, "", s.Rows[1].Get("Math"))
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrEmptySheet)
	_, err = Parse([][]string{{"", " "}})
	assert.ErrorIs(t, err, ErrEmptySheet)
}

func TestIsBlank(t *testing.T) {
	for _, v := range []string{"", "  ", "-", "N/A", "n/a", " n/A "} {
		assert.True(t, IsBlank(v), "%q should be blank", v)
	}
	for _, v := range []string{"0", "NA", "--", "abc"} {
		assert.False(t, IsBlank(v), "%q should not be blank", v)
	}
}

func TestParseMark(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"85", 85, true},
		{"0", 0, true},
		{"100", 100, true},
		{" 42 ", 42, true},
		{"85.0", 85, true},
		{"105", 0, false},
		{"-5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"85.5", 0, false},
		{"1e2", 0, false},
		{"8.5e1", 0, false},
		{"0x55", 0, false},
		{"Inf", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseMark(c.in)
		assert.Equal(t, c.ok, ok, "ParseMark(%q)", c.in)
		assert.Equal(t, c.want, got, "ParseMark(%q)", c.in)
	}
}

func TestParseAmount(t *testing.T) {
	d, ok := ParseAmount("12,500.50")
	require.True(t, ok)
	assert.Equal(t, "12500.5", d.String())

	d, ok = ParseAmount("KES 3000")
	require.True(t, ok)
	assert.Equal(t, "3000", d.String())

	for _, v := range []string{"", "abc", "0", "-10"} {
		_, ok := ParseAmount(v)
		assert.False(t, ok, "%q", v)
	}
}

func TestCoerceDate(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "2023-01-01T00:00:00Z", CoerceDate("44927", now))
	assert.Equal(t, "2023-01-01T12:00:00Z", CoerceDate("44927.5", now))
	assert.Equal(t, "2023-01-01", CoerceDate("2023-01-01", now))
	assert.Equal(t, "05/01/2023", CoerceDate("05/01/2023", now))
	assert.Equal(t, now.Format(time.RFC3339), CoerceDate("", now))
	assert.Equal(t, now.Format(time.RFC3339), CoerceDate("-", now))
}

func TestCoerceDateLargeAndOutOfRangeSerials(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "9999-12-31T00:00:00Z", CoerceDate("2958465", now))
	assert.Equal(t, "2447-07-30T00:00:00Z", CoerceDate("200000", now))
	assert.Equal(t, "1900-01-01T00:00:00Z", CoerceDate("2", now))

	assert.Equal(t, "20230101", CoerceDate("20230101", now))
	assert.Equal(t, "2958466", CoerceDate("2958466", now))
	assert.Equal(t, "0", CoerceDate("0", now))
	assert.Equal(t, "-44927", CoerceDate("-44927", now))
}

func TestParseClassColumnIsExact(t *testing.T) {
	s, err := Parse([][]string{
		{"Reg Number", "Student Name", "Classical Studies", "Class", "Classics"},
		{"A1", "X", "70", "Form 1", "65"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Class", s.Class)
	assert.Equal(t, []string{"Classical Studies", "Classics"}, s.ValueColumns())

	s, err = Parse([][]string{
		{"Reg Number", "Student Name", "Classical Studies"},
		{"A1", "X", "70"},
	})
	require.NoError(t, err)
	assert.Equal(t, "", s.Class)
	assert.Equal(t, []string{"Classical Studies"}, s.ValueColumns())

	s, err = Parse([][]string{{"Reg Number", "Name", "class_label", "Math"}})
	require.NoError(t, err)
	assert.Equal(t, "class_label", s.Class)
	assert.Equal(t, "Name", s.Name)
}

func TestGradeCandidatesFanOutAndSkips(t *testing.T) {
	s, err := Parse([][]string{
		{"Reg Number", "Student Name", "Math", "English", "Kiswahili"},
		{"A1", "X", "85", "105", "-"},
		{"A2", "Y", "abc", "N/A", "40"},
		{"A3", "Z", "-5", "", "100"},
	})
	require.NoError(t, err)

	batch, err := GradeCandidates(s, "")
	require.NoError(t, err)

	require.Len(t, batch.Candidates, 3)
	assert.Equal(t, GradeCandidate{Row: 2, RegistrationNumber: "A1", Subject: "Math", Marks: 85}, batch.Candidates[0])
	assert.Equal(t, GradeCandidate{Row: 3, RegistrationNumber: "A2", Subject: "Kiswahili", Marks: 40}, batch.Candidates[1])
	assert.Equal(t, GradeCandidate{Row: 4, RegistrationNumber: "A3", Subject: "Kiswahili", Marks: 100}, batch.Candidates[2])

	reasons := map[SkipReason]int{}
	for _, sk := range batch.Skipped {
		reasons[sk.Reason]++
	}
	assert.Equal(t, 3, reasons[SkipBlank])
	assert.Equal(t, 2, reasons[SkipOutOfRange])
	assert.Equal(t, 1, reasons[SkipNotANumber])
}

func TestGradeCandidatesSingleSubject(t *testing.T) {
	s, err := Parse([][]string{
		{"Reg Number", "Student Name", "Class", "Mark"},
		{"A1", "X", "Form 1", "72"},
		{"A2", "Y", "Form 1", ""},
	})
	require.NoError(t, err)

	batch, err := GradeCandidates(s, "Biology")
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "Biology", batch.Candidates[0].Subject)
	assert.Equal(t, 72, batch.Candidates[0].Marks)
	assert.Len(t, batch.Skipped, 1)

	noMark, err := Parse([][]string{{"Reg Number", "Math"}, {"A1", "50"}})
	require.NoError(t, err)
	_, err = GradeCandidates(noMark, "Math")
	assert.ErrorIs(t, err, ErrMarkColumnNotFound)
}

func TestPaymentCandidates(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	s, err := Parse([][]string{
		{"Reg Number", "Student Name", "Amount", "Date", "Reference"},
		{"A1", "X", "1,500", "44927", "RCP-1"},
		{"A2", "Y", "N/A", "", ""},
		{"A3", "Z", "ten", "2023-02-01", ""},
		{"A4", "W", "250.75", "", "-"},
	})
	require.NoError(t, err)

	batch, err := PaymentCandidates(s, now)
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 2)

	first := batch.Candidates[0]
	assert.Equal(t, "A1", first.RegistrationNumber)
	assert.Equal(t, "1500", first.Amount.String())
	assert.Equal(t, "2023-01-01T00:00:00Z", first.PaidAt)
	assert.Equal(t, "RCP-1", first.Reference)

	second := batch.Candidates[1]
	assert.Equal(t, "A4", second.RegistrationNumber)
	assert.Equal(t, now.Format(time.RFC3339), second.PaidAt)
	assert.Empty(t, second.Reference)

	require.Len(t, batch.Skipped, 2)
	assert.Equal(t, SkipBlank, batch.Skipped[0].Reason)
	assert.Equal(t, SkipBadAmount, batch.Skipped[1].Reason)

	noAmount, err := Parse([][]string{{"Reg Number", "Paid"}, {"A1", "10"}})
	require.NoError(t, err)
	_, err = PaymentCandidates(noAmount, now)
	assert.ErrorIs(t, err, ErrAmountColumnNotFound)
}

func TestReadRowsXLSXFirstSheetOnlyKeepsSerials(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Reg Number", "Amount", "Date"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"A1", 1500, 44927}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]interface{}{"Ignored"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadRows(buf.Bytes(), "fees.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Reg Number", "Amount", "Date"}, rows[0])
	assert.Equal(t, []string{"A1", "1500", "44927"}, rows[1])
}

func TestReadRowsCSVAndSniffing(t *testing.T) {
	data := []byte("\xef\xbb\xbfReg Number,Student Name,Math\nA1,X,85\n")

	rows, err := ReadRows(data, "grades.csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Reg Number", "Student Name", "Math"}, {"A1", "X", "85"}}, rows)

	sniffed, err := ReadRows(data, "upload")
	require.NoError(t, err)
	assert.Equal(t, rows, sniffed)

	_, err = ReadRows(nil, "grades.xlsx")
	assert.ErrorIs(t, err, ErrEmptySheet)
}

func TestWriteWorkbookRoundTrip(t *testing.T) {
	content, err := WriteWorkbook("Form 1: Term/1", []string{"Reg Number", "Student Name", "Math"}, [][]string{
		{"A1", "X"},
		{"A2", "Y"},
	})
	require.NoError(t, err)

	rows, err := ReadRows(content, "template.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Reg Number", "Student Name", "Math"}, rows[0])
	assert.Equal(t, []string{"A1", "X"}, rows[1])

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Form 1_ Term_1", f.GetSheetName(0))
}
