package plantid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRecordFullyPopulated(t *testing.T) {
	rec := DefaultRecord()

	assert.Equal(t, "Unknown Plant", rec.PlantName)
	assert.Equal(t, "Species unknown", rec.ScientificName)
	assert.Equal(t, 0, rec.Confidence)
	assert.NotEmpty(t, rec.Description)
	assert.NotEmpty(t, rec.CareInstructions.Light)
	assert.NotEmpty(t, rec.CareInstructions.CommonIssues)
	assert.NotEmpty(t, rec.Characteristics.Toxicity)
	assert.NotEmpty(t, rec.SeasonalCare.Winter)
	assert.NotEmpty(t, rec.Tips)
}

func TestNormalizeNilYieldsDefault(t *testing.T) {
	assert.Equal(t, DefaultRecord(), Normalize(nil))
}

func TestNormalizeMergesNestedObjectsOneLevel(t *testing.T) {
	raw := map[string]any{
		"plantName":      "Aloe Vera",
		"scientificName": "Aloe barbadensis miller",
		"confidence":     float64(92),
		"careInstructions": map[string]any{
			"light": "Bright direct sun",
			"water": "Every 3 weeks",
		},
	}

	rec := Normalize(raw)

	assert.Equal(t, "Aloe Vera", rec.PlantName)
	assert.Equal(t, "Aloe barbadensis miller", rec.ScientificName)
	assert.Equal(t, 92, rec.Confidence)

	// Provided nested keys replace defaults, missing ones keep them
	assert.Equal(t, "Bright direct sun", rec.CareInstructions.Light)
	assert.Equal(t, "Every 3 weeks", rec.CareInstructions.Water)
	assert.Equal(t, DefaultRecord().CareInstructions.Soil, rec.CareInstructions.Soil)
	assert.Equal(t, DefaultRecord().Characteristics, rec.Characteristics)
}

func TestNormalizeIgnoresNullAndEmptyValues(t *testing.T) {
	raw := map[string]any{
		"plantName":   "",
		"family":      nil,
		"description": "A succulent",
		"tips":        []any{},
	}

	rec := Normalize(raw)

	assert.Equal(t, "Unknown Plant", rec.PlantName)
	assert.Equal(t, "Family unknown", rec.Family)
	assert.Equal(t, "A succulent", rec.Description)
	assert.Equal(t, DefaultRecord().Tips, rec.Tips)
}

func TestNormalizeReplacesTipsWholesale(t *testing.T) {
	rec := Normalize(map[string]any{
		"tips": []any{"Rotate weekly", "Dust the leaves"},
	})

	assert.Equal(t, []string{"Rotate weekly", "Dust the leaves"}, rec.Tips)
}

func TestNormalizeClampsConfidence(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"negative", float64(-5), 0},
		{"zero", float64(0), 0},
		{"in_range", float64(87), 87},
		{"above_max", float64(250), 100},
		{"string_digits", "95", 95},
		{"string_garbage", "high", 0},
		{"wrong_type", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(map[string]any{"confidence": tt.value})
			assert.Equal(t, tt.want, rec.Confidence)
		})
	}
}

func TestResultRecord(t *testing.T) {
	data := &PlantRecord{PlantName: "Monstera"}

	ok := &Result{Success: true, Data: data}
	require.Same(t, data, ok.Record())

	failed := &Result{Success: false, Fallback: DefaultRecord()}
	assert.Equal(t, "Unknown Plant", failed.Record().PlantName)
}
