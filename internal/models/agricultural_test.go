package models

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestRecordFromFields tests canonical record construction
func TestRecordFromFields(t *testing.T) {
	tests := []struct {
		name        string
		source      DataSource
		raw         RawRecord
		processed   map[string]interface{}
		wantErr     bool
		checkValues func(*testing.T, *AgriculturalRecord)
	}{
		{
			name:   "valid production record",
			source: SourceKilimoSTAT,
			raw: RawRecord{
				"county": "Nakuru",
				"value":  1200.5,
			},
			processed: map[string]interface{}{
				FieldCounty:   "Nakuru",
				FieldCropName: "Maize",
				FieldDataType: string(DataTypeCropProduction),
				FieldSeason:   string(SeasonLongRains),
				FieldYear:     2023,
				FieldValue:    1200.5,
				FieldUnit:     "tonnes",
			},
			wantErr: false,
			checkValues: func(t *testing.T, rec *AgriculturalRecord) {
				if rec.Source != SourceKilimoSTAT {
					t.Errorf("Source = %v, want %v", rec.Source, SourceKilimoSTAT)
				}
				if rec.County != "Nakuru" {
					t.Errorf("County = %v, want Nakuru", rec.County)
				}
				if rec.CropName != "Maize" {
					t.Errorf("CropName = %v, want Maize", rec.CropName)
				}
				if rec.DataType != DataTypeCropProduction {
					t.Errorf("DataType = %v, want %v", rec.DataType, DataTypeCropProduction)
				}
				if rec.Year != 2023 {
					t.Errorf("Year = %v, want 2023", rec.Year)
				}
				if rec.Value != 1200.5 {
					t.Errorf("Value = %v, want 1200.5", rec.Value)
				}

				var raw map[string]interface{}
				if err := json.Unmarshal(rec.RawPayload, &raw); err != nil {
					t.Errorf("RawPayload is not valid JSON: %v", err)
				} else if raw["county"] != "Nakuru" {
					t.Errorf("RawPayload county = %v, want Nakuru", raw["county"])
				}
			},
		},
		{
			name:   "integer value coerced to float",
			source: SourceKNBS,
			raw:    RawRecord{},
			processed: map[string]interface{}{
				FieldDataType: string(DataTypeAreaCultivated),
				FieldYear:     2022,
				FieldValue:    500,
			},
			wantErr: false,
			checkValues: func(t *testing.T, rec *AgriculturalRecord) {
				if rec.Value != 500.0 {
					t.Errorf("Value = %v, want 500.0", rec.Value)
				}
			},
		},
		{
			name:   "float year truncated",
			source: SourceKilimoSTAT,
			raw:    RawRecord{},
			processed: map[string]interface{}{
				FieldDataType: string(DataTypeCropProduction),
				FieldYear:     2021.0,
				FieldValue:    10.0,
			},
			wantErr: false,
			checkValues: func(t *testing.T, rec *AgriculturalRecord) {
				if rec.Year != 2021 {
					t.Errorf("Year = %v, want 2021", rec.Year)
				}
			},
		},
		{
			name:   "missing data_type",
			source: SourceKilimoSTAT,
			raw:    RawRecord{},
			processed: map[string]interface{}{
				FieldYear:  2023,
				FieldValue: 10.0,
			},
			wantErr: true,
		},
		{
			name:   "non-integer year",
			source: SourceKilimoSTAT,
			raw:    RawRecord{},
			processed: map[string]interface{}{
				FieldDataType: string(DataTypeCropProduction),
				FieldYear:     "twenty-twenty",
				FieldValue:    10.0,
			},
			wantErr: true,
		},
		{
			name:   "non-numeric value",
			source: SourceKilimoSTAT,
			raw:    RawRecord{},
			processed: map[string]interface{}{
				FieldDataType: string(DataTypeCropProduction),
				FieldYear:     2023,
				FieldValue:    "lots",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := RecordFromFields(tt.source, tt.raw, tt.processed)

			if (err != nil) != tt.wantErr {
				t.Errorf("RecordFromFields() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error = %T, want *ValidationError", err)
				}
				return
			}

			if tt.checkValues != nil {
				tt.checkValues(t, rec)
			}
		})
	}
}

// TestParseCropList tests crop list decoding
func TestParseCropList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "valid list", raw: `["Maize","Beans"]`, want: []string{"Maize", "Beans"}},
		{name: "empty string", raw: "", want: nil},
		{name: "malformed JSON recovers as empty", raw: `["Maize",`, want: nil},
		{name: "wrong type recovers as empty", raw: `{"crop":"Maize"}`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCropList(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCropList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseCropList()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestValidationError tests error handling
func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "year",
		Value:   "invalid",
		Message: "year is not an integer",
	}

	if err.Error() != "year is not an integer" {
		t.Errorf("Error() = %v, want %v", err.Error(), "year is not an integer")
	}

	if err.IsTransient() {
		t.Error("ValidationError should not be transient")
	}
}

func TestIsKnownCounty(t *testing.T) {
	if !IsKnownCounty("Nakuru") {
		t.Error("Nakuru should be a known county")
	}
	if IsKnownCounty("Atlantis") {
		t.Error("Atlantis should not be a known county")
	}
}
