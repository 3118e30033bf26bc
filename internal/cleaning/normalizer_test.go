package cleaning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agro-platform/internal/models"
)

func TestNormalize_MapsColumnNames(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{
			"County":     "Nakuru",
			"Crop":       "Maize",
			"Year":       2023,
			"Production": 1200.0,
			"Season":     "Long_Rains",
		},
		{
			"COUNTY": "Kiambu",
			"CROP":   "Beans",
			"YEAR":   2023,
			"PRICE":  85.0,
		},
	}

	rows := Normalize(batch)
	require.Len(t, rows, 2)

	assert.Equal(t, "Nakuru", rows[0].Fields[models.FieldCounty])
	assert.Equal(t, "Maize", rows[0].Fields[models.FieldCropName])
	assert.Equal(t, 2023, rows[0].Fields[models.FieldYear])
	assert.Equal(t, 1200.0, rows[0].Fields[models.FieldProduction])
	assert.Equal(t, "Long_Rains", rows[0].Fields[models.FieldSeason])

	assert.Equal(t, "Kiambu", rows[1].Fields[models.FieldCounty])
	assert.Equal(t, "Beans", rows[1].Fields[models.FieldCropName])
	assert.Equal(t, 85.0, rows[1].Fields[models.FieldPrice])

	// Original raw records are carried through untouched.
	assert.Equal(t, "Nakuru", rows[0].Raw["County"])
	_, hasCanonical := rows[0].Raw[models.FieldCounty]
	assert.False(t, hasCanonical)
}

func TestNormalize_CanonicalNamesPassThrough(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{"county": "Meru", "crop_name": "Tea", "value": 42.0, "custom_field": "x"},
	}

	rows := Normalize(batch)
	require.Len(t, rows, 1)
	assert.Equal(t, "Meru", rows[0].Fields["county"])
	assert.Equal(t, "Tea", rows[0].Fields["crop_name"])
	assert.Equal(t, "x", rows[0].Fields["custom_field"])
}

func TestNormalize_ImputesNumericMedian(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{"county": "Nakuru", "production_tonnes": 10.0},
		{"county": "Nakuru", "production_tonnes": 30.0},
		{"county": "Nakuru", "production_tonnes": nil},
	}

	rows := Normalize(batch)
	require.Len(t, rows, 3)
	assert.Equal(t, 20.0, rows[2].Fields["production_tonnes"])
}

func TestNormalize_ImputesCategoricalMode(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{"county": "Nakuru", "crop_name": "Maize"},
		{"county": "Kiambu", "crop_name": "Maize"},
		{"county": "Meru", "crop_name": "Beans"},
		{"county": "Machakos"},
	}

	rows := Normalize(batch)
	require.Len(t, rows, 4)
	assert.Equal(t, "Maize", rows[3].Fields["crop_name"])
}

func TestNormalize_EmptyColumnLeftAlone(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{"county": "Nakuru", "price_kes": nil},
		{"county": "Kiambu", "price_kes": nil},
	}

	rows := Normalize(batch)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].Fields["price_kes"])
	assert.Nil(t, rows[1].Fields["price_kes"])
}

func TestNormalize_NeverDropsRows(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{"County": "Nakuru", "Production": 100.0},
		{"County": "Kiambu"},
		{"Production": 300.0},
		{},
	}

	rows := Normalize(batch)
	assert.Len(t, rows, len(batch))
}

func TestRemoveOutliers_DropsBeyondIQRBounds(t *testing.T) {
	t.Parallel()

	rows := Normalize([]models.RawRecord{
		{"value": 10.0},
		{"value": 11.0},
		{"value": 12.0},
		{"value": 13.0},
		{"value": 1000.0},
	})

	kept, dropped := RemoveOutliers(rows)
	assert.Equal(t, 1, dropped)
	require.Len(t, kept, 4)
	for _, row := range kept {
		n, _ := Number(row.Fields["value"])
		assert.Less(t, n, 100.0)
	}
}

func TestRemoveOutliers_SkipsTinyBatches(t *testing.T) {
	t.Parallel()

	rows := Normalize([]models.RawRecord{{"value": 1e12}})
	kept, dropped := RemoveOutliers(rows)
	assert.Equal(t, 0, dropped)
	assert.Len(t, kept, 1)
}

func TestRemoveOutliers_IgnoresCategoricalColumns(t *testing.T) {
	t.Parallel()

	rows := Normalize([]models.RawRecord{
		{"county": "Nakuru"},
		{"county": "Nakuru"},
		{"county": "Kiambu"},
		{"county": "Weird-But-Not-An-Outlier"},
	})

	kept, dropped := RemoveOutliers(rows)
	assert.Equal(t, 0, dropped)
	assert.Len(t, kept, 4)
}

func TestValidateDomain(t *testing.T) {
	t.Parallel()

	currentYear := time.Now().Year()

	rows := []Row{
		{Fields: map[string]interface{}{"year": 2020, "production_tonnes": 100.0}},
		{Fields: map[string]interface{}{"year": 1959, "production_tonnes": 100.0}},
		{Fields: map[string]interface{}{"year": currentYear + 1, "production_tonnes": 100.0}},
		{Fields: map[string]interface{}{"year": 2020, "production_tonnes": -5.0}},
		{Fields: map[string]interface{}{"year": 2020, "area_hectares": -1.0}},
	}

	kept, dropped := ValidateDomain(rows)
	assert.Equal(t, 4, dropped)
	require.Len(t, kept, 1)
	assert.Equal(t, 2020, kept[0].Fields["year"])
}

func TestClean_EndToEnd(t *testing.T) {
	t.Parallel()

	batch := []models.RawRecord{
		{"County": "Nakuru", "Crop": "Maize", "Production": -5.0},
		{"County": "Kiambu", "Crop": "Maize", "Production": -4.0},
		{"County": "Meru", "Crop": "Maize", "Production": 0.0},
		{"County": "Machakos", "Crop": "Maize", "Production": 4.0},
		{"County": "Kisumu", "Crop": "Maize", "Production": 5.0},
		{"County": "Nyeri", "Crop": "Maize", "Production": 1000.0},
	}

	rows, stats := Clean(batch)

	// 1000 falls outside the IQR fences; the two negative productions
	// survive the fences but fail domain validation.
	assert.Equal(t, 1, stats.OutlierDropped)
	assert.Equal(t, 2, stats.InvalidDropped)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, "Maize", row.Fields[models.FieldCropName])
	}
}
