package insights

import (
	"math"
	"math/rand"

	"agro-platform/internal/cleaning"
	"agro-platform/internal/models"
)

// minEstimationRows is the row count a batch must exceed before a fit is
// attempted.
const minEstimationRows = 10

// splitSeed fixes the train/test shuffle so estimates are reproducible.
const splitSeed = 42

// testFraction is the share of rows held out for accuracy reporting.
const testFraction = 0.2

// YieldEstimate reports a least-squares fit of production on area and
// year. A diagnostic estimate, not a forecasting system: no
// cross-validation, no confidence intervals.
type YieldEstimate struct {
	Accuracy       float64            `json:"model_accuracy"`
	Predictions    []float64          `json:"predictions"`
	FeatureEffects map[string]float64 `json:"feature_importance"`
}

// EstimateYield fits ordinary least squares of production_tonnes on
// [area_hectares, year] over the given cleaned rows. It requires more than
// ten rows carrying all three numeric fields; otherwise it returns
// (nil, false) meaning "not computable", which is not an error.
//
// Rows are split 80/20 with a fixed seed; accuracy is R-squared on the
// held-out 20% and may be negative for a poor fit.
func EstimateYield(rows []map[string]interface{}) (*YieldEstimate, bool) {
	var areas, years, productions []float64
	for _, row := range rows {
		area, okA := cleaning.Number(row[models.FieldArea])
		year, okY := cleaning.Number(row[models.FieldYear])
		production, okP := cleaning.Number(row[models.FieldProduction])
		if !okA || !okY || !okP {
			continue
		}
		areas = append(areas, area)
		years = append(years, year)
		productions = append(productions, production)
	}

	n := len(productions)
	if n <= minEstimationRows {
		return nil, false
	}

	// Held-out random split, fixed seed for reproducibility.
	indices := rand.New(rand.NewSource(splitSeed)).Perm(n)
	testSize := int(math.Ceil(float64(n) * testFraction))
	testIdx := indices[:testSize]
	trainIdx := indices[testSize:]

	intercept, areaCoef, yearCoef, ok := fitOLS(areas, years, productions, trainIdx)
	if !ok {
		return nil, false
	}

	predictions := make([]float64, len(testIdx))
	actuals := make([]float64, len(testIdx))
	for i, idx := range testIdx {
		predictions[i] = intercept + areaCoef*areas[idx] + yearCoef*years[idx]
		actuals[i] = productions[idx]
	}

	return &YieldEstimate{
		Accuracy:    rSquared(actuals, predictions),
		Predictions: predictions,
		FeatureEffects: map[string]float64{
			models.FieldArea: areaCoef,
			models.FieldYear: yearCoef,
		},
	}, true
}

// fitOLS solves the 3x3 normal equations for production on
// [1, area, year] over the training indices. Returns ok=false when the
// system is singular (e.g. a constant feature).
func fitOLS(areas, years, productions []float64, trainIdx []int) (intercept, areaCoef, yearCoef float64, ok bool) {
	// X^T X and X^T y accumulated directly.
	var m [3][4]float64
	for _, idx := range trainIdx {
		x := [3]float64{1, areas[idx], years[idx]}
		y := productions[idx]
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m[i][j] += x[i] * x[j]
			}
			m[i][3] += x[i] * y
		}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return 0, 0, 0, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := 0; row < 3; row++ {
			if row == col {
				continue
			}
			factor := m[row][col] / m[col][col]
			for j := col; j < 4; j++ {
				m[row][j] -= factor * m[col][j]
			}
		}
	}

	return m[0][3] / m[0][0], m[1][3] / m[1][1], m[2][3] / m[2][2], true
}

// rSquared computes the coefficient of determination on the held-out set.
func rSquared(actuals, predictions []float64) float64 {
	mean := cleaning.Mean(actuals)
	var ssRes, ssTot float64
	for i, actual := range actuals {
		d := actual - predictions[i]
		ssRes += d * d
		t := actual - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
