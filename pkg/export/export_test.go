package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Date", "Check-in", "Check-out"},
		Rows: []map[string]string{
			{"Date": "2026-03-20", "Check-in": "09:00:00", "Check-out": "17:00:00"},
			{"Date": "2026-03-21", "Check-in": "09:05:00", "Check-out": "-"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "Date,Check-in,Check-out")
	assert.Contains(t, out, "2026-03-20,09:00:00,17:00:00")
	assert.Contains(t, out, "2026-03-21,09:05:00,-")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	summary := []SummaryLine{
		{Label: "Name", Value: "Alice"},
		{Label: "Attendance", Value: "85.0%"},
	}
	data, err := NewPDFExporter().Render(sampleDataset(), "Attendance Report", summary)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "Report", nil)
	require.Error(t, err)
}
