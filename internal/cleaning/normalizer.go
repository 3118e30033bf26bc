package cleaning

import (
	"sort"

	"agro-platform/internal/models"
)

// Row pairs a normalized field mapping with the raw record it came from.
// The raw side is carried untouched through the pipeline for audit.
type Row struct {
	Fields map[string]interface{}
	Raw    models.RawRecord
}

// columnMapping renames the heterogeneous field names the data sources use
// to the canonical schema. Fields absent from the table pass through
// unchanged. Static configuration, never mutated at runtime.
var columnMapping = map[string]string{
	"County":     models.FieldCounty,
	"COUNTY":     models.FieldCounty,
	"Crop":       models.FieldCropName,
	"CROP":       models.FieldCropName,
	"Production": models.FieldProduction,
	"PRODUCTION": models.FieldProduction,
	"Area":       models.FieldArea,
	"AREA":       models.FieldArea,
	"Year":       models.FieldYear,
	"YEAR":       models.FieldYear,
	"Price":      models.FieldPrice,
	"PRICE":      models.FieldPrice,
	"Season":     models.FieldSeason,
	"SEASON":     models.FieldSeason,
}

// Normalize maps raw field names to the canonical schema and imputes
// missing values per column: numeric columns take the batch median,
// categorical columns the batch mode. Columns with no non-missing values
// are left as-is. Output row count always equals input row count;
// normalization never drops rows.
//
// Statistics are computed fresh for each batch; nothing carries across
// calls.
func Normalize(batch []models.RawRecord) []Row {
	rows := make([]Row, len(batch))
	for i, raw := range batch {
		fields := make(map[string]interface{}, len(raw))
		for field, value := range raw {
			if canonical, ok := columnMapping[field]; ok {
				field = canonical
			}
			fields[field] = value
		}
		rows[i] = Row{Fields: fields, Raw: raw}
	}

	imputeMissing(rows)
	return rows
}

// imputeMissing fills absent or nil column values in place. The column set
// is the union of keys across the batch; a row lacking a key counts as
// missing for that column.
func imputeMissing(rows []Row) {
	for _, col := range columnSet(rows) {
		var numbers []float64
		var strs []string
		present := 0

		for _, row := range rows {
			v, ok := row.Fields[col]
			if !ok || v == nil {
				continue
			}
			present++
			if n, ok := Number(v); ok {
				numbers = append(numbers, n)
			} else if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}

		if present == 0 {
			continue
		}

		var fill interface{}
		switch {
		case len(numbers) == present:
			fill = Median(numbers)
		case len(strs) > 0:
			mode, _ := Mode(strs)
			fill = mode
		default:
			continue
		}

		for _, row := range rows {
			if v, ok := row.Fields[col]; !ok || v == nil {
				row.Fields[col] = fill
			}
		}
	}
}

// columnSet returns the union of column names across rows, sorted so that
// column passes are deterministic.
func columnSet(rows []Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for col := range row.Fields {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
