package export

import "github.com/poravv/cuencly-backend/pkg/models"

// Summarize aggregates the monetary totals of one partition's rows.
func Summarize(partition string, rows []models.ExportRow) models.MonthlySummary {
	s := models.MonthlySummary{
		Partition: partition,
		Invoices:  len(rows),
	}
	for i := range rows {
		r := &rows[i]
		s.TaxedBase10 = s.TaxedBase10.Add(r.TaxedBase10)
		s.Tax10 = s.Tax10.Add(r.Tax10)
		s.TaxedBase5 = s.TaxedBase5.Add(r.TaxedBase5)
		s.Tax5 = s.Tax5.Add(r.Tax5)
		s.Exempt = s.Exempt.Add(r.Exempt)
		s.Total = s.Total.Add(r.Total)
		if r.HasValidCDC() {
			s.WithCDC++
		}
	}
	return s
}
