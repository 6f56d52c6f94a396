package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"ACE360 ID", "Status", "Overall Grade"},
		Rows: []map[string]string{
			{"ACE360 ID": "7001", "Status": "EPA Passed", "Overall Grade": "Merit"},
			{"ACE360 ID": "7002", "Status": "Gateway Submitted"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	content, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ACE360 ID,Status,Overall Grade", lines[0])
	assert.Equal(t, "7001,EPA Passed,Merit", lines[1])
	assert.Equal(t, "7002,Gateway Submitted,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	content, err := NewXLSXExporter("Records").Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ACE360 ID", "Status", "Overall Grade"}, rows[0])
	assert.Equal(t, "7001", rows[1][0])
	assert.Equal(t, "Merit", rows[1][2])
}

func TestPDFExporterRender(t *testing.T) {
	content, err := NewPDFExporter().Render(sampleDataset(), "Apprentice Records")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
