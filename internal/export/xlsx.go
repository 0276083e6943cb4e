package export

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/taxakollen/taxa-cli/internal/model"
)

var repHeader = []string{
	"Kommun", "Avgift", "Kategori", "Belopp", "Valuta", "Debitering",
	"Källa", "Metod", "Kvalitet", "Valideringsfel",
}

// WriteXLSX writes representatives and run statistics to an XLSX
// workbook. The first sheet holds one row per representative, the
// second the run summary.
func WriteXLSX(path string, reps []model.FeeRecord, stats *model.RunStats) error {
	f := xlsx.NewFile()

	if err := addRepresentativesSheet(f, reps); err != nil {
		return err
	}
	if stats != nil {
		if err := addStatsSheet(f, stats); err != nil {
			return err
		}
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}

func addRepresentativesSheet(f *xlsx.File, reps []model.FeeRecord) error {
	sheet, err := f.AddSheet("Avgifter")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range repHeader {
		header.AddCell().SetString(h)
	}

	for _, rec := range reps {
		row := sheet.AddRow()
		row.AddCell().SetString(rec.Municipality)
		row.AddCell().SetString(rec.FeeName)
		row.AddCell().SetString(rec.Category)

		amountCell := row.AddCell()
		if a, ok := rec.Amount(); ok {
			amountCell.SetFloat(a)
		} else {
			amountCell.SetString(rec.AmountRaw)
		}

		row.AddCell().SetString(rec.Currency)
		row.AddCell().SetString(rec.BillingModel)
		row.AddCell().SetString(rec.SourceURL)
		row.AddCell().SetString(rec.ExtractionMethod)
		row.AddCell().SetFloat(rec.QualityScore)
		row.AddCell().SetInt(len(rec.ValidationErrors))
	}
	return nil
}

func addStatsSheet(f *xlsx.File, stats *model.RunStats) error {
	sheet, err := f.AddSheet("Statistik")
	if err != nil {
		return eris.Wrap(err, "export: add stats sheet")
	}

	addKV := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case int:
			row.AddCell().SetInt(v)
		case float64:
			row.AddCell().SetFloat(v)
		default:
			row.AddCell().SetString(fmt.Sprint(v))
		}
	}

	addKV("Bearbetade poster", stats.TotalProcessed)
	addKV("Unika poster", stats.UniqueItems)
	addKV("Dubbletter", stats.DuplicateItems)
	addKV("Sammanslagna", stats.MergedItems)
	addKV("Ogiltiga poster", stats.InvalidItems)
	addKV("Dubblettandel", stats.DuplicateRate())
	addKV("Giltighetsandel", stats.ValidityRate())
	addKV("Konfidens hög", stats.ConfidenceHigh)
	addKV("Konfidens medel", stats.ConfidenceMedium)
	addKV("Konfidens låg", stats.ConfidenceLow)

	for _, k := range sortedKeys(stats.ByExtractionMethod) {
		addKV("Metod: "+k, stats.ByExtractionMethod[k])
	}
	for _, k := range sortedKeys(stats.ByCategory) {
		addKV("Kategori: "+k, stats.ByCategory[k])
	}
	for _, k := range sortedKeys(stats.ErrorsByCode) {
		addKV("Fel: "+k, stats.ErrorsByCode[k])
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
