package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/taxakollen/taxa-cli/internal/model"
)

func TestWriteXLSX_RoundTrip(t *testing.T) {
	amount := 1250.0
	reps := []model.FeeRecord{
		{
			Municipality:     "Stockholm",
			FeeName:          "Bygglov nybyggnad enbostadshus",
			Category:         "bygglov",
			AmountNumeric:    &amount,
			Currency:         "SEK",
			BillingModel:     "förskott",
			SourceURL:        "https://stockholm.se/taxor.pdf",
			ExtractionMethod: "pdf",
			QualityScore:     0.87,
		},
		{
			Municipality: "Umeå",
			FeeName:      "Serveringstillstånd",
			AmountRaw:    model.AmountSeePDF,
			QualityScore: 0.55,
		},
	}

	stats := model.NewRunStats()
	stats.TotalProcessed = 2
	stats.UniqueItems = 2
	stats.ByCategory["bygglov"] = 1

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, reps, stats))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	fees := f.Sheets[0]
	require.Len(t, fees.Rows, 3) // header + 2 records
	assert.Equal(t, "Kommun", fees.Rows[0].Cells[0].String())
	assert.Equal(t, "Stockholm", fees.Rows[1].Cells[0].String())
	assert.Equal(t, "Bygglov nybyggnad enbostadshus", fees.Rows[1].Cells[1].String())

	got, err := fees.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1250.0, got, 0.001)

	// unparseable amounts keep the raw text
	assert.Equal(t, model.AmountSeePDF, fees.Rows[2].Cells[3].String())

	assert.Equal(t, "Statistik", f.Sheets[1].Name)
}

func TestWriteXLSX_NoStatsSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, nil, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
}
