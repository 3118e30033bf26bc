package cleaning

import (
	"time"

	"agro-platform/internal/models"
)

// DropStats counts rows removed by each filter stage.
type DropStats struct {
	OutlierDropped int
	InvalidDropped int
}

// RemoveOutliers drops rows whose numeric column values fall outside
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Bounds are computed per column on the rows
// remaining when that column is processed, and columns are applied
// sequentially, so a row can be dropped by any column's bound. Batches of
// zero or one rows pass through untouched since the quantiles are
// undefined.
func RemoveOutliers(rows []Row) ([]Row, int) {
	if len(rows) <= 1 {
		return rows, 0
	}

	dropped := 0
	for _, col := range columnSet(rows) {
		values := numericColumn(rows, col)
		if values == nil {
			continue
		}

		q1 := Quantile(values, 0.25)
		q3 := Quantile(values, 0.75)
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr

		kept := rows[:0]
		for _, row := range rows {
			v, ok := row.Fields[col]
			if !ok || v == nil {
				kept = append(kept, row)
				continue
			}
			n, ok := Number(v)
			if !ok {
				kept = append(kept, row)
				continue
			}
			if n < lower || n > upper {
				dropped++
				continue
			}
			kept = append(kept, row)
		}
		rows = kept
	}

	return rows, dropped
}

// ValidateDomain drops rows that violate domain ranges: year outside
// [1960, current year], or negative production_tonnes / area_hectares when
// those fields are present.
func ValidateDomain(rows []Row) ([]Row, int) {
	currentYear := time.Now().Year()
	dropped := 0

	kept := rows[:0]
	for _, row := range rows {
		if year, ok := Number(row.Fields[models.FieldYear]); ok {
			if year < models.MinValidYear || year > float64(currentYear) {
				dropped++
				continue
			}
		}
		if production, ok := Number(row.Fields[models.FieldProduction]); ok && production < 0 {
			dropped++
			continue
		}
		if area, ok := Number(row.Fields[models.FieldArea]); ok && area < 0 {
			dropped++
			continue
		}
		kept = append(kept, row)
	}

	return kept, dropped
}

// Clean runs the full cleaning pass: normalize, remove outliers, validate.
// Only the filter stages may drop rows.
func Clean(batch []models.RawRecord) ([]Row, DropStats) {
	rows := Normalize(batch)
	rows, outliers := RemoveOutliers(rows)
	rows, invalid := ValidateDomain(rows)
	return rows, DropStats{OutlierDropped: outliers, InvalidDropped: invalid}
}

// numericColumn collects a column's non-missing values, returning nil when
// the column is not fully numeric (mixed or categorical columns are never
// outlier-filtered).
func numericColumn(rows []Row, col string) []float64 {
	var values []float64
	for _, row := range rows {
		v, ok := row.Fields[col]
		if !ok || v == nil {
			continue
		}
		n, ok := Number(v)
		if !ok {
			return nil
		}
		values = append(values, n)
	}
	return values
}
