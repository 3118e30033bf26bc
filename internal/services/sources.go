package services

import (
	"context"
	"math/rand"
	"time"

	"agro-platform/internal/models"
)

// DataFetcher pulls raw records from one external data provider.
type DataFetcher interface {
	Name() models.DataSource
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// Direct API access to the KilimoSTAT and KNBS portals is not available,
// so both fetchers synthesize batches matching each portal's published
// data structure. Swapping in real HTTP clients only changes Fetch.

var kilimoCounties = []string{
	"Nakuru", "Kiambu", "Meru", "Machakos", "Kisumu", "Eldoret",
	"Nyeri", "Kakamega", "Bungoma", "Trans Nzoia",
}

var kilimoCrops = []string{
	"Maize", "Beans", "Tea", "Coffee", "Wheat", "Rice",
	"Sweet Potatoes", "Irish Potatoes", "Tomatoes", "Onions",
}

var knbsCounties = []string{
	"Nairobi", "Mombasa", "Kisumu", "Nakuru", "Eldoret",
	"Thika", "Malindi", "Kitale", "Garissa", "Meru",
}

var knbsCrops = []string{"Maize", "Wheat", "Rice", "Beans", "Tea", "Coffee"}

// Approximate Kenyan per-crop ranges: production in tonnes, prices in KES
// per kg (processed for tea and coffee).
var cropProductionRanges = map[string][2]float64{
	"Maize":          {1000, 50000},
	"Beans":          {500, 15000},
	"Tea":            {2000, 30000},
	"Coffee":         {800, 12000},
	"Wheat":          {1500, 25000},
	"Rice":           {800, 10000},
	"Sweet Potatoes": {3000, 40000},
	"Irish Potatoes": {2000, 35000},
	"Tomatoes":       {1000, 20000},
	"Onions":         {800, 15000},
}

var cropPriceRanges = map[string][2]float64{
	"Maize":          {30, 60},
	"Beans":          {80, 150},
	"Tea":            {200, 400},
	"Coffee":         {300, 600},
	"Wheat":          {40, 70},
	"Rice":           {90, 140},
	"Sweet Potatoes": {25, 50},
	"Irish Potatoes": {35, 70},
	"Tomatoes":       {40, 100},
	"Onions":         {30, 80},
}

// KilimoSTATFetcher produces crop production and market price records in
// the KilimoSTAT portal's structure.
type KilimoSTATFetcher struct {
	rng *rand.Rand
}

// NewKilimoSTATFetcher creates a KilimoSTAT fetcher.
func NewKilimoSTATFetcher(seed int64) *KilimoSTATFetcher {
	return &KilimoSTATFetcher{rng: rand.New(rand.NewSource(seed))}
}

func (f *KilimoSTATFetcher) Name() models.DataSource {
	return models.SourceKilimoSTAT
}

func (f *KilimoSTATFetcher) Fetch(_ context.Context) ([]models.RawRecord, error) {
	currentYear := time.Now().Year()
	var batch []models.RawRecord

	for _, county := range kilimoCounties {
		for _, crop := range kilimoCrops {
			batch = append(batch, models.RawRecord{
				"county":    county,
				"crop_name": crop,
				"data_type": string(models.DataTypeCropProduction),
				"year":      currentYear - 1,
				"value":     f.inRange(cropProductionRanges, crop, 500, 10000),
				"unit":      "tonnes",
				"season":    string(models.SeasonLongRains),
			})
			batch = append(batch, models.RawRecord{
				"county":    county,
				"crop_name": crop,
				"data_type": string(models.DataTypeMarketPrices),
				"year":      currentYear,
				"value":     f.inRange(cropPriceRanges, crop, 20, 100),
				"unit":      "KES_per_kg",
				"season":    string(models.SeasonCurrent),
			})
		}
	}

	return batch, nil
}

func (f *KilimoSTATFetcher) inRange(ranges map[string][2]float64, crop string, defLo, defHi float64) float64 {
	lo, hi := defLo, defHi
	if r, ok := ranges[crop]; ok {
		lo, hi = r[0], r[1]
	}
	return round2(lo + f.rng.Float64()*(hi-lo))
}

// KNBSFetcher produces area-cultivated records in the KNBS agricultural
// statistics structure. Field names differ from KilimoSTAT's on purpose;
// the normalizer maps both into the canonical schema.
type KNBSFetcher struct {
	rng *rand.Rand
}

// NewKNBSFetcher creates a KNBS fetcher.
func NewKNBSFetcher(seed int64) *KNBSFetcher {
	return &KNBSFetcher{rng: rand.New(rand.NewSource(seed))}
}

func (f *KNBSFetcher) Name() models.DataSource {
	return models.SourceKNBS
}

func (f *KNBSFetcher) Fetch(_ context.Context) ([]models.RawRecord, error) {
	currentYear := time.Now().Year()
	var batch []models.RawRecord

	for _, county := range knbsCounties {
		for _, crop := range knbsCrops {
			batch = append(batch, models.RawRecord{
				"County":    county,
				"Crop":      crop,
				"data_type": string(models.DataTypeAreaCultivated),
				"Year":      currentYear - 1,
				"value":     round2(100 + f.rng.Float64()*9900),
				"unit":      "hectares",
				"Season":    string(models.SeasonAnnual),
			})
		}
	}

	return batch, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
