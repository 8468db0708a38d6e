package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Course grades",
		Headers: []string{"Student", "Total", "Grade"},
		Rows: [][]string{
			{"Ana, B.", "7.90", "B"},
			{"Budi", "", ""},
		},
	}
}

func TestCSVExporterQuotesAndOrders(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Student,Total,Grade\n\"Ana, B.\",7.90,B\nBudi,,\n", string(out))
}

func TestCSVExporterOptions(t *testing.T) {
	out, err := NewCSVExporter(WithComma(';'), WithBOM()).Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "Student;Total;Grade\nAna, B.;7.90;B\nBudi;;\n", string(out[len(utf8BOM):]))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only one"})

	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)
	_, err = NewPDFExporter().Render(data)
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestAlignFor(t *testing.T) {
	assert.Equal(t, "R", alignFor("8.25"))
	assert.Equal(t, "L", alignFor("A+"))
	assert.Equal(t, "L", alignFor(""))
}
