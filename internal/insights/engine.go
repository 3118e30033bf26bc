package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"agro-platform/internal/cleaning"
	"agro-platform/internal/models"
	"agro-platform/pkg/logging"
)

// Status tags an insight outcome so callers can tell "no data" apart from
// an internal failure.
type Status int

const (
	// StatusOK means the insight was computed from county records.
	StatusOK Status = iota
	// StatusEmpty means no county records existed; the insight carries the
	// staple-crop fallback recommendation.
	StatusEmpty
	// StatusFailed means an internal error was recovered; the insight
	// carries empty collections and Reason explains what happened.
	StatusFailed
)

// String returns string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Outcome is the tagged result of insight generation. Generation never
// propagates errors to the caller; failures surface here.
type Outcome struct {
	Status  Status         `json:"status"`
	Insight models.Insight `json:"insight"`
	Reason  string         `json:"reason,omitempty"`
}

// FailedOutcome builds a failed outcome whose insight serializes with
// empty lists and mappings rather than JSON null.
func FailedOutcome(reason string) Outcome {
	return Outcome{
		Status: StatusFailed,
		Insight: models.Insight{
			CropRecommendations: []models.CropRecommendation{},
			MarketTrends:        map[string]models.MarketTrend{},
			ProductivityTips:    []string{},
		},
		Reason: reason,
	}
}

// Engine aggregates cleaned county records into per-farmer insights.
type Engine struct {
	logger *logging.StructuredLogger
}

// NewEngine creates a new insight engine.
func NewEngine(logger *logging.StructuredLogger) *Engine {
	return &Engine{logger: logger}
}

// Generate builds crop recommendations, market trends and productivity
// tips for a farmer from the county's persisted records. Any internal
// error is recovered and reported as a failed outcome; the caller's
// request must never crash here.
func (e *Engine) Generate(ctx context.Context, profile models.FarmerProfile, records []*models.AgriculturalRecord) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("insight generation panic: %v", r)
			e.logger.Error(ctx, "[INSIGHT_FAILED] Insight generation failed", logging.Fields{
				"county": profile.County,
			}, err)
			outcome = FailedOutcome(err.Error())
		}
	}()

	tips := productivityTips(profile)

	if len(records) == 0 {
		return Outcome{
			Status: StatusEmpty,
			Insight: models.Insight{
				CropRecommendations: []models.CropRecommendation{fallbackRecommendation()},
				MarketTrends:        map[string]models.MarketTrend{},
				ProductivityTips:    tips,
			},
		}
	}

	insight := models.Insight{
		CropRecommendations: recommendCrops(records, profile.County),
		MarketTrends:        marketTrends(records),
		ProductivityTips:    tips,
	}

	e.logger.Debug(ctx, "[INSIGHT_GENERATED] Insight generated", logging.Fields{
		"county":          profile.County,
		"record_count":    len(records),
		"recommendations": len(insight.CropRecommendations),
	})

	return Outcome{Status: StatusOK, Insight: insight}
}

// cropStats holds per-crop aggregates across all data types.
type cropStats struct {
	crop   string
	mean   float64
	stddev float64
}

// recommendCrops groups county records by crop, ranks descending by mean
// value and returns the top three. A crop's yield tier is High when its
// mean exceeds the median of all crops' means.
func recommendCrops(records []*models.AgriculturalRecord, county string) []models.CropRecommendation {
	byCrop := make(map[string][]float64)
	var order []string
	for _, record := range records {
		if record.CropName == "" || record.Value == 0 {
			continue
		}
		if _, seen := byCrop[record.CropName]; !seen {
			order = append(order, record.CropName)
		}
		byCrop[record.CropName] = append(byCrop[record.CropName], record.Value)
	}

	if len(byCrop) == 0 {
		return []models.CropRecommendation{fallbackRecommendation()}
	}

	stats := make([]cropStats, 0, len(byCrop))
	means := make([]float64, 0, len(byCrop))
	for _, crop := range order {
		values := byCrop[crop]
		m := cleaning.Mean(values)
		stats = append(stats, cropStats{crop: crop, mean: m, stddev: cleaning.StdDev(values)})
		means = append(means, m)
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].mean > stats[j].mean })
	medianMean := cleaning.Median(means)

	top := stats
	if len(top) > 3 {
		top = top[:3]
	}

	recommendations := make([]models.CropRecommendation, 0, len(top))
	for _, s := range top {
		tier := "Medium"
		if s.mean > medianMean {
			tier = "High"
		}
		recommendations = append(recommendations, models.CropRecommendation{
			Crop:           s.crop,
			Reason:         fmt.Sprintf("High average performance in %s county", county),
			PotentialYield: tier,
			AvgValue:       round2(s.mean),
		})
	}

	return recommendations
}

// marketTrends extracts the latest inserted price per crop from market
// price records. The trend tag is a constant "stable" placeholder; no
// time-series slope is computed and callers must not read direction into
// it.
func marketTrends(records []*models.AgriculturalRecord) map[string]models.MarketTrend {
	trends := make(map[string]models.MarketTrend)
	for _, record := range records {
		if record.DataType != models.DataTypeMarketPrices {
			continue
		}
		if record.CropName == "" || record.Value == 0 {
			continue
		}
		trends[record.CropName] = models.MarketTrend{
			CurrentPrice: record.Value,
			Trend:        "stable",
		}
	}
	return trends
}

// fallbackRecommendation is returned when a county has no usable records;
// recommendations are never empty.
func fallbackRecommendation() models.CropRecommendation {
	return models.CropRecommendation{
		Crop:           models.StapleCrop,
		Reason:         "Staple crop suitable for most Kenyan counties",
		PotentialYield: "Medium to High",
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
