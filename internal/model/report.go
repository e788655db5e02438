package model

import "time"

// Report is a user dispute of an analysis or a proposal for a new element
type Report struct {
	ID         string     `json:"id"`
	ReportedBy string     `json:"reported_by"`
	Type       ReportType `json:"report_type"`
	Reason     string     `json:"motivo"` // Why the user is reporting

	// Proposed element
	Title            string   `json:"titulo"`
	Category         Category `json:"categoria"`
	Description      string   `json:"descripcion"`
	CulturalContext  string   `json:"contexto_cultural"`
	HistoricalPeriod string   `json:"periodo_historico"`
	Location         string   `json:"ubicacion"`
	Significance     string   `json:"significado"`
	Confidence       float64  `json:"confianza"`
	ImagePath        string   `json:"imagen,omitempty"`

	Status        ReportStatus `json:"status"`
	ReviewedBy    string       `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time   `json:"reviewed_at,omitempty"`
	AdminNotes    string       `json:"admin_notes,omitempty"`
	CreatedItemID string       `json:"created_cultural_item,omitempty"` // Set when approval created an item

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportType classifies what the user is asking for
type ReportType string

const (
	ReportCorrection ReportType = "CORRECTION"  // Analysis was wrong
	ReportNewElement ReportType = "NEW_ELEMENT" // Element missing from the catalog
)

// ReportStatus tracks the review lifecycle
type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportApproved ReportStatus = "APPROVED"
	ReportRejected ReportStatus = "REJECTED"
)

// DefaultReportConfidence is suggested for reports that omit one
const DefaultReportConfidence = 0.85

// Element converts the proposed element into a corpus entry
func (r *Report) Element() VerifiedElement {
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
