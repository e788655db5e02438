package model

// VerifiedElement is a curated, human-verified corpus entry.
// Field names on the wire follow the corpus file format.
type VerifiedElement struct {
	Title            string   `json:"titulo"`
	Category         string   `json:"categoria"`          // Raw label as stored (e.g. "Gastronomía")
	Confidence       *float64 `json:"confianza,omitempty"` // nil when the corpus entry omits it
	Description      string   `json:"descripcion"`
	CulturalContext  string   `json:"contexto_cultural"`
	HistoricalPeriod string   `json:"periodo_historico"`
	Location         string   `json:"ubicacion"`
	Significance     string   `json:"significado"`
}

// DefaultElementConfidence is assumed for corpus entries without a confidence
const DefaultElementConfidence = 0.8

// ConfidenceOr returns the element confidence or fallback when absent
func (e VerifiedElement) ConfidenceOr(fallback float64) float64 {
	if e.Confidence == nil {
		return fallback
	}
	return *e.Confidence
}

// Float returns a pointer to v (corpus literals, tests)
func Float(v float64) *float64 {
	return &v
}
