package model

import "time"

// CulturalItem is a catalog entry persisted by the store
type CulturalItem struct {
	ID               string    `json:"id"`
	Title            string    `json:"titulo"`
	Category         Category  `json:"categoria"`
	CategoryLabel    string    `json:"categoria_display"`
	Confidence       float64   `json:"confianza"`
	Description      string    `json:"descripcion"`
	CulturalContext  string    `json:"contexto_cultural"`
	HistoricalPeriod string    `json:"periodo_historico"`
	Location         string    `json:"ubicacion"`
	Significance     string    `json:"significado"`
	ImagePath        string    `json:"imagen,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	Validated        bool      `json:"is_validated"`
	ValidatedBy      string    `json:"validated_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AnalysisLog records one model call for auditing
type AnalysisLog struct {
	ID                int64     `json:"id"`
	ItemID            string    `json:"item_id,omitempty"`
	ImageHash         string    `json:"image_hash"`
	RawResponse       string    `json:"raw_response"`
	ProcessingSeconds float64   `json:"processing_time"`
	TokensUsed        int       `json:"tokens_used"`
	CreatedAt         time.Time `json:"created_at"`
}
