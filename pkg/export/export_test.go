package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Title", "Subject", "Downloads"},
		Rows: []map[string]string{
			{"Title": "DBMS Final 2024", "Subject": "Database Management System", "Downloads": "12"},
			{"Title": "OS, Midterm", "Subject": "Operating Systems", "Downloads": "3"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Title,Subject,Downloads", lines[0])
	assert.Equal(t, `"OS, Midterm",Operating Systems,3`, lines[2])
}

func TestCSVExporterNeutralisesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Title", "Downloads"},
		Rows:    []map[string]string{{"Title": "=HYPERLINK(\"x\")", "Downloads": "-3"}},
	}
	out, err := NewCSVExporter(WithBOM()).Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("\xef\xbb\xbf")))
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"'=HYPERLINK(""x"")",'-3`, lines[1])
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x", "")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Past Papers", "Approved catalogue")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	empty := Dataset{Headers: []string{"A", "B", "C", "D", "E", "F"}}
	out, err = NewPDFExporter().Render(empty, "", "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
