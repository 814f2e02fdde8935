// Package plantid provides the AI identification client: it submits plant
// photos to a multimodal chat-completion endpoint and normalizes the reply
// into a fixed PlantRecord shape.
package plantid

import "time"

// CareInstructions holds the per-concern care guidance for a plant.
type CareInstructions struct {
	Light        string `json:"light"`
	Water        string `json:"water"`
	Soil         string `json:"soil"`
	Temperature  string `json:"temperature"`
	Humidity     string `json:"humidity"`
	Fertilizer   string `json:"fertilizer"`
	Propagation  string `json:"propagation"`
	CommonIssues string `json:"commonIssues"`
}

// Characteristics holds descriptive plant attributes.
type Characteristics struct {
	Size       string `json:"size"`
	Growth     string `json:"growth"`
	Blooming   string `json:"blooming"`
	Toxicity   string `json:"toxicity"`
	Difficulty string `json:"difficulty"`
}

// SeasonalCare holds per-season care guidance.
type SeasonalCare struct {
	Spring string `json:"spring"`
	Summer string `json:"summer"`
	Fall   string `json:"fall"`
	Winter string `json:"winter"`
}

// PlantRecord is the normalized identification result. After Normalize
// every field is populated; missing AI output is filled from the static
// default record.
type PlantRecord struct {
	PlantName        string           `json:"plantName"`
	ScientificName   string           `json:"scientificName"`
	Family           string           `json:"family"`
	Confidence       int              `json:"confidence"`
	Description      string           `json:"description"`
	CareInstructions CareInstructions `json:"careInstructions"`
	Characteristics  Characteristics  `json:"characteristics"`
	SeasonalCare     SeasonalCare     `json:"seasonalCare"`
	Tips             []string         `json:"tips"`
}

// Result is the envelope returned by Identify. On failure Fallback carries
// the static default record so callers always have something displayable.
type Result struct {
	Success   bool         `json:"success"`
	Data      *PlantRecord `json:"data,omitempty"`
	Fallback  *PlantRecord `json:"fallback,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	ImageData string       `json:"imageData,omitempty"`
}

// Record returns the displayable record regardless of outcome.
func (r *Result) Record() *PlantRecord {
	if r.Success {
		return r.Data
	}
	return r.Fallback
}

// DefaultRecord returns the static fallback record. Every normalization
// starts from a fresh copy of it.
func DefaultRecord() *PlantRecord {
	return &PlantRecord{
		PlantName:      "Unknown Plant",
		ScientificName: "Species unknown",
		Family:         "Family unknown",
		Confidence:     0,
		Description:    "Unable to identify this plant. Try a clearer photo with good lighting.",
		CareInstructions: CareInstructions{
			Light:        "Provide bright, indirect light",
			Water:        "Water when the top inch of soil is dry",
			Soil:         "Use well-draining potting mix",
			Temperature:  "Keep between 18-24°C (65-75°F)",
			Humidity:     "Moderate humidity, 40-60%",
			Fertilizer:   "Feed monthly during the growing season",
			Propagation:  "Propagation method unknown",
			CommonIssues: "Watch for overwatering and pests",
		},
		Characteristics: Characteristics{
			Size:       "Size unknown",
			Growth:     "Growth habit unknown",
			Blooming:   "Blooming period unknown",
			Toxicity:   "Toxicity unknown, keep away from pets and children",
			Difficulty: "Care difficulty unknown",
		},
		SeasonalCare: SeasonalCare{
			Spring: "Resume regular watering and feeding",
			Summer: "Protect from harsh direct sun",
			Fall:   "Reduce watering as growth slows",
			Winter: "Water sparingly, keep away from cold drafts",
		},
		Tips: []string{
			"Observe the plant regularly for changes",
			"Adjust care with the seasons",
		},
	}
}

// Normalize deep-merges a parsed AI reply onto the default record. Nested
// objects merge one level deep, scalars and arrays replace wholesale when
// present and non-null, and confidence is clamped to [0,100].
func Normalize(raw map[string]any) *PlantRecord {
	rec := DefaultRecord()
	if raw == nil {
		return rec
	}

	setString(raw, "plantName", &rec.PlantName)
	setString(raw, "scientificName", &rec.ScientificName)
	setString(raw, "family", &rec.Family)
	setString(raw, "description", &rec.Description)

	if v, ok := raw["confidence"]; ok && v != nil {
		rec.Confidence = clampConfidence(v)
	}

	if care, ok := raw["careInstructions"].(map[string]any); ok {
		setString(care, "light", &rec.CareInstructions.Light)
		setString(care, "water", &rec.CareInstructions.Water)
		setString(care, "soil", &rec.CareInstructions.Soil)
		setString(care, "temperature", &rec.CareInstructions.Temperature)
		setString(care, "humidity", &rec.CareInstructions.Humidity)
		setString(care, "fertilizer", &rec.CareInstructions.Fertilizer)
		setString(care, "propagation", &rec.CareInstructions.Propagation)
		setString(care, "commonIssues", &rec.CareInstructions.CommonIssues)
	}

	if ch, ok := raw["characteristics"].(map[string]any); ok {
		setString(ch, "size", &rec.Characteristics.Size)
		setString(ch, "growth", &rec.Characteristics.Growth)
		setString(ch, "blooming", &rec.Characteristics.Blooming)
		setString(ch, "toxicity", &rec.Characteristics.Toxicity)
		setString(ch, "difficulty", &rec.Characteristics.Difficulty)
	}

	if sc, ok := raw["seasonalCare"].(map[string]any); ok {
		setString(sc, "spring", &rec.SeasonalCare.Spring)
		setString(sc, "summer", &rec.SeasonalCare.Summer)
		setString(sc, "fall", &rec.SeasonalCare.Fall)
		setString(sc, "winter", &rec.SeasonalCare.Winter)
	}

	if tips, ok := raw["tips"].([]any); ok && len(tips) > 0 {
		out := make([]string, 0, len(tips))
		for _, tip := range tips {
			if s, ok := tip.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			rec.Tips = out
		}
	}

	return rec
}

func setString(m map[string]any, key string, dst *string) {
	if s, ok := m[key].(string); ok && s != "" {
		*dst = s
	}
}

func clampConfidence(v any) int {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case int:
		n = t
	case string:
		// Regex fallback path delivers string digits
		for _, r := range t {
			if r < '0' || r > '9' {
				return 0
			}
		}
		for _, r := range t {
			n = n*10 + int(r-'0')
		}
	default:
		return 0
	}

	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	default:
		return n
	}
}
