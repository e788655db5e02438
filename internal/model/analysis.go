package model

import "slices"

// AnalysisResult is the validated output of one image analysis
type AnalysisResult struct {
	Title            string      `json:"titulo"`
	Category         Category    `json:"categoria"`
	Confidence       float64     `json:"confianza"`
	Description      string      `json:"descripcion"`
	CulturalContext  string      `json:"contexto_cultural"`
	HistoricalPeriod string      `json:"periodo_historico"`
	Location         string      `json:"ubicacion"`
	Significance     string      `json:"significado"`
	IsLocal          bool        `json:"es_de_huanuco"`
	Reasons          []string    `json:"razones"`
	Doubts           []string    `json:"dudas"`
	Validation       *Validation `json:"validacion,omitempty"` // Set only when a corpus match adjusted the result
	Metadata         Metadata    `json:"metadata"`
}

// Validation records how local knowledge adjusted the model output
type Validation struct {
	Method             string  `json:"metodo"`
	ReferenceElement   string  `json:"elemento_referencia"`
	Similarity         float64 `json:"similitud"`
	OriginalConfidence float64 `json:"confianza_original"`
	AdjustedConfidence float64 `json:"confianza_ajustada"`
}

// Metadata is the provenance attached to accepted results
type Metadata struct {
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`
	TokensUsed    int    `json:"tokens_used"`
	Cached        bool   `json:"cached"`
}

// Clone returns a deep copy of the result
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Reasons = slices.Clone(r.Reasons)
	c.Doubts = slices.Clone(r.Doubts)
	if r.Validation != nil {
		v := *r.Validation
		c.Validation = &v
	}
	return &c
}

// Element converts the result into a corpus entry
func (r *AnalysisResult) Element() VerifiedElement {
	return VerifiedElement{
		Title:            r.Title,
		Category:         r.Category.Label(),
		Confidence:       Float(r.Confidence),
		Description:      r.Description,
		CulturalContext:  r.CulturalContext,
		HistoricalPeriod: r.HistoricalPeriod,
		Location:         r.Location,
		Significance:     r.Significance,
	}
}
