package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	records []Record
}

func (l *recordingLogger) LogDiagnostic(record Record) {
	l.records = append(l.records, record)
}

func TestClassify(t *testing.T) {
	records := []Record{
		{Description: "SA001", Severity: SeverityHigh},
		{Description: "SA002", Severity: SeverityMedium},
		{Description: "SA003", Severity: SeverityLow},
		{Description: "XX004", Severity: SeverityHigh},
	}

	logger := &recordingLogger{}
	counts := Classify(records, "SA", logger)

	assert.Equal(t, Counts{Warnings: 1, Errors: 1}, counts)
	assert.Equal(t, []Record{records[0], records[1]}, logger.records)
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		prefix  string
		want    Counts
	}{
		{
			name: "empty input",
			want: Counts{},
		},
		{
			name: "only compiler diagnostics",
			records: []Record{
				{Description: "C0077: Unknown type", Severity: SeverityHigh},
				{Description: "Build started", Severity: SeverityLow},
			},
			prefix: "SA",
			want:   Counts{},
		},
		{
			name: "prefix is case sensitive",
			records: []Record{
				{Description: "sa0033: lower case tag", Severity: SeverityHigh},
			},
			prefix: "SA",
			want:   Counts{},
		},
		{
			name: "prefix must lead the description",
			records: []Record{
				{Description: "Warning SA0033", Severity: SeverityMedium},
			},
			prefix: "SA",
			want:   Counts{},
		},
		{
			name: "many findings",
			records: []Record{
				{Description: "SA0033: Unused variable 'x'", Severity: SeverityMedium, SourceFile: "MAIN.TcPOU"},
				{Description: "SA0033: Unused variable 'y'", Severity: SeverityMedium, SourceFile: "MAIN.TcPOU"},
				{Description: "SA0040: Possible division by zero", Severity: SeverityHigh},
				{Description: "SA0101: Names with invalid length", Severity: SeverityLow},
			},
			prefix: "SA",
			want:   Counts{Warnings: 2, Errors: 1},
		},
		{
			name: "custom prefix",
			records: []Record{
				{Description: "LINT12 naming", Severity: SeverityHigh},
				{Description: "SA0033", Severity: SeverityHigh},
			},
			prefix: "LINT",
			want:   Counts{Errors: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.records, tt.prefix, nil))
		})
	}
}

func TestClassifyOrderIndependentCounts(t *testing.T) {
	records := []Record{
		{Description: "SA1", Severity: SeverityHigh},
		{Description: "SA2", Severity: SeverityMedium},
		{Description: "SA3", Severity: SeverityMedium},
	}
	reversed := []Record{records[2], records[1], records[0]}

	assert.Equal(t, Classify(records, "SA", nil), Classify(reversed, "SA", nil))
}

func TestClassifyLogsInInputOrder(t *testing.T) {
	records := []Record{
		{Description: "SA3", Severity: SeverityMedium},
		{Description: "SA1", Severity: SeverityHigh},
		{Description: "SA2", Severity: SeverityLow},
		{Description: "SA0", Severity: SeverityMedium},
	}

	logger := &recordingLogger{}
	Classify(records, "SA", logger)

	var got []string
	for _, r := range logger.records {
		got = append(got, r.Description)
	}
	assert.Equal(t, []string{"SA3", "SA1", "SA0"}, got)
}

func TestFilter(t *testing.T) {
	records := []Record{
		{Description: "SA1", Severity: SeverityHigh},
		{Description: "XX", Severity: SeverityHigh},
		{Description: "SA2", Severity: SeverityLow},
	}
	assert.Equal(t, []Record{records[0]}, Filter(records, "SA"))
	assert.Nil(t, Filter(nil, "SA"))
}
