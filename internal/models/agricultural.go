package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// DataSource identifies the originating data provider.
type DataSource string

const (
	SourceKilimoSTAT DataSource = "KilimoSTAT"
	SourceKNBS       DataSource = "KNBS"
)

// DataType classifies what a record's value measures.
type DataType string

const (
	DataTypeCropProduction DataType = "crop_production"
	DataTypeMarketPrices   DataType = "market_prices"
	DataTypeAreaCultivated DataType = "area_cultivated"
)

// Season distinguishes agricultural cycles within a year.
type Season string

const (
	SeasonLongRains  Season = "Long_Rains"
	SeasonShortRains Season = "Short_Rains"
	SeasonAnnual     Season = "Annual"
	SeasonCurrent    Season = "Current"
)

// Canonical field names produced by the cleaning normalizer.
const (
	FieldCounty     = "county"
	FieldCropName   = "crop_name"
	FieldDataType   = "data_type"
	FieldSeason     = "season"
	FieldYear       = "year"
	FieldValue      = "value"
	FieldUnit       = "unit"
	FieldProduction = "production_tonnes"
	FieldArea       = "area_hectares"
	FieldPrice      = "price_kes"
)

// MinValidYear bounds the accepted year range; the upper bound is the
// current year at validation time.
const MinValidYear = 1960

// StapleCrop is the fallback recommendation when a county has no data.
const StapleCrop = "Maize"

// RawRecord is an untyped field->value mapping as received from a data
// source. Field names vary by origin; it exists only during ingestion.
type RawRecord map[string]interface{}

// AgriculturalRecord is the canonical persisted record. At most one row
// exists per (source, county, crop_name, data_type, year, season) tuple;
// re-ingestion with the same key updates value and processed payload.
type AgriculturalRecord struct {
	ID               int64          `json:"id" db:"id"`
	Source           DataSource     `json:"source" db:"source"`
	DataType         DataType       `json:"data_type" db:"data_type"`
	County           string         `json:"county" db:"county"`
	CropName         string         `json:"crop_name" db:"crop_name"`
	Season           Season         `json:"season" db:"season"`
	Year             int            `json:"year" db:"year"`
	Value            float64        `json:"value" db:"value"`
	Unit             string         `json:"unit" db:"unit"`
	RawPayload       types.JSONText `json:"raw_payload,omitempty" db:"raw_payload"`
	ProcessedPayload types.JSONText `json:"processed_payload,omitempty" db:"processed_payload"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// RecordFromFields builds a canonical record from a cleaned field mapping.
// The raw mapping is preserved alongside the processed one for audit.
func RecordFromFields(source DataSource, raw RawRecord, processed map[string]interface{}) (*AgriculturalRecord, error) {
	county, _ := processed[FieldCounty].(string)
	crop, _ := processed[FieldCropName].(string)
	dataType, _ := processed[FieldDataType].(string)
	season, _ := processed[FieldSeason].(string)
	unit, _ := processed[FieldUnit].(string)

	if dataType == "" {
		return nil, &ValidationError{Field: FieldDataType, Message: "missing data_type"}
	}

	year, ok := asInt(processed[FieldYear])
	if !ok {
		return nil, &ValidationError{
			Field:   FieldYear,
			Value:   fmt.Sprintf("%v", processed[FieldYear]),
			Message: "year is not an integer",
		}
	}

	value, ok := asFloat(processed[FieldValue])
	if !ok {
		return nil, &ValidationError{
			Field:   FieldValue,
			Value:   fmt.Sprintf("%v", processed[FieldValue]),
			Message: "value is not numeric",
		}
	}

	rawPayload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw payload: %w", err)
	}
	processedPayload, err := json.Marshal(processed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal processed payload: %w", err)
	}

	now := time.Now().UTC()
	return &AgriculturalRecord{
		Source:           source,
		DataType:         DataType(dataType),
		County:           county,
		CropName:         crop,
		Season:           Season(season),
		Year:             year,
		Value:            value,
		Unit:             unit,
		RawPayload:       rawPayload,
		ProcessedPayload: processedPayload,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FarmerProfile describes the farmer an insight request is for. Supplied by
// the caller; the pipeline reads it and never mutates it.
type FarmerProfile struct {
	Name            string   `json:"name"`
	County          string   `json:"county"`
	FarmSizeAcres   float64  `json:"farm_size_acres"`
	PrimaryCrops    []string `json:"primary_crops"`
	ExperienceYears int      `json:"experience_years"`
}

// ParseCropList decodes a stored JSON crop list. Malformed input is
// recovered as an empty list rather than surfaced as an error.
func ParseCropList(raw string) []string {
	if raw == "" {
		return nil
	}
	var crops []string
	if err := json.Unmarshal([]byte(raw), &crops); err != nil {
		return nil
	}
	return crops
}

// CropRecommendation ranks a crop for a farmer's county.
type CropRecommendation struct {
	Crop           string  `json:"crop"`
	Reason         string  `json:"reason"`
	PotentialYield string  `json:"potential_yield"`
	AvgValue       float64 `json:"avg_value,omitempty"`
}

// MarketTrend summarizes the latest market price for a crop.
type MarketTrend struct {
	CurrentPrice float64 `json:"current_price"`
	Trend        string  `json:"trend"`
}

// Insight is the derived, per-request analysis for a farmer. It is
// recomputed on every call and never persisted by the pipeline itself.
type Insight struct {
	CropRecommendations []CropRecommendation   `json:"crop_recommendations"`
	MarketTrends        map[string]MarketTrend `json:"market_trends"`
	ProductivityTips    []string               `json:"productivity_tips"`
}

// Report is the assembled textual report for a farmer.
type Report struct {
	Title    string  `json:"title"`
	Type     string  `json:"type"`
	Content  string  `json:"content"`
	Insights Insight `json:"insights"`
}

// AdvisorContext is the structured user context handed to the external
// AI-advice collaborator. The pipeline builds it but never formats prompts
// or calls AI services itself.
type AdvisorContext struct {
	Name       string   `json:"name"`
	County     string   `json:"county"`
	FarmSize   float64  `json:"farm_size"`
	Crops      []string `json:"crops"`
	Experience int      `json:"experience"`
}

// ValidationError represents a data validation error.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
