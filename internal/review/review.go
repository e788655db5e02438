// Package review handles user reports against analyses and the admin workflow
// that turns approved reports into catalog items and corpus entries.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/parse"
	"github.com/ppiankov/cultura/internal/store"
)

// User is the caller identity supplied by the authentication layer
type User struct {
	ID    string
	Admin bool
}

// Repository persists reports and items
type Repository interface {
	CreateReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)
	ListReports(ctx context.Context, status model.ReportStatus) ([]*model.Report, error)
	ListReportsByUser(ctx context.Context, userID string) ([]*model.Report, error)
	UpdateReport(ctx context.Context, report *model.Report) error
	ApproveReport(ctx context.Context, report *model.Report, item *model.CulturalItem) error
	CreateItem(ctx context.Context, item *model.CulturalItem) error
}

// Corpus receives approved elements
type Corpus interface {
	Append(element model.VerifiedElement) (bool, error)
}

// ImageStore saves uploaded images
type ImageStore interface {
	Save(kind string, p *imagedata.Payload) (string, error)
}

var _ Repository = (*store.Store)(nil)

// Deps wires the service collaborators. Corpus and Images are optional.
type Deps struct {
	Repository Repository
	Corpus     Corpus
	Images     ImageStore
	Logger     *zap.Logger
}

// Service implements report submission and review
type Service struct {
	repo   Repository
	corpus Corpus
	images ImageStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs the review service
func NewService(deps Deps) *Service {
	return &Service{
		repo:   deps.Repository,
		corpus: deps.Corpus,
		images: deps.Images,
		logger: logging.OrNop(deps.Logger),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ElementInput is the user-supplied description of a cultural element
type ElementInput struct {
	Title            string   `json:"titulo"`
	Category         string   `json:"categoria"` // Identifier, label or alias
	Description      string   `json:"descripcion"`
	CulturalContext  string   `json:"contexto_cultural"`
	HistoricalPeriod string   `json:"periodo_historico"`
	Location         string   `json:"ubicacion"`
	Significance     string   `json:"significado"`
	Confidence       *float64 `json:"confianza,omitempty"`
	Image            string   `json:"imagen,omitempty"` // Optional base64 or data URL
}

// ReportInput is a report submission
type ReportInput struct {
	ElementInput
	Type   model.ReportType `json:"report_type"`
	Reason string           `json:"motivo"`
}

// Action is an admin decision on a report
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision is the admin verdict
type Decision struct {
	Action Action `json:"action"`
	Notes  string `json:"admin_notes"`
}

// Outcome is the result of a review
type Outcome struct {
	Report        *model.Report       `json:"report"`
	Item          *model.CulturalItem `json:"item,omitempty"`
	AddedToCorpus bool                `json:"added_to_corpus"`
}

// Submit validates input and stores a PENDING report authored by user.
func (s *Service) Submit(ctx context.Context, user User, input ReportInput) (*model.Report, error) {
	if user.ID == "" {
		return nil, ErrForbidden
	}

	fields := fieldErrors{}
	switch input.Type {
	case "":
		input.Type = model.ReportNewElement
	case model.ReportCorrection, model.ReportNewElement:
	default:
		fields.add("report_type", fmt.Sprintf("must be %s or %s", model.ReportCorrection, model.ReportNewElement))
	}
	confidence := validateElement(input.ElementInput, model.DefaultReportConfidence, fields)
	payload := validateImage(input.Image, fields)
	if err := fields.err(); err != nil {
		return nil, err
	}

	report := &model.Report{
		ReportedBy:       user.ID,
		Type:             input.Type,
		Reason:           strings.TrimSpace(input.Reason),
		Title:            strings.TrimSpace(input.Title),
		Category:         parse.NormalizeCategory(input.Category),
		Description:      strings.TrimSpace(input.Description),
		CulturalContext:  strings.TrimSpace(input.CulturalContext),
		HistoricalPeriod: strings.TrimSpace(input.HistoricalPeriod),
		Location:         strings.TrimSpace(input.Location),
		Significance:     strings.TrimSpace(input.Significance),
		Confidence:       confidence,
	}
	if payload != nil && s.images != nil {
		path, err := s.images.Save("reports", payload)
		if err != nil {
			return nil, fmt.Errorf("saving report image: %w", err)
		}
		report.ImagePath = path
	}

	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info("report submitted",
		zap.String("id", report.ID),
		zap.String("user", user.ID),
		zap.String("type", string(report.Type)),
		zap.String("title", report.Title))
	return report, nil
}

// Get returns the report when user is its author or an admin.
func (s *Service) Get(ctx context.Context, user User, id string) (*model.Report, error) {
	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Admin && report.ReportedBy != user.ID {
		return nil, ErrForbidden
	}
	return report, nil
}

// List returns reports filtered by status. Admin only.
func (s *Service) List(ctx context.Context, user User, status model.ReportStatus) ([]*model.Report, error) {
	if !user.Admin {
		return nil, ErrForbidden
	}
	return s.repo.ListReports(ctx, status)
}

// Mine returns the reports filed by user.
func (s *Service) Mine(ctx context.Context, user User) ([]*model.Report, error) {
	if user.ID == "" {
		return nil, ErrForbidden
	}
	return s.repo.ListReportsByUser(ctx, user.ID)
}

// Review applies an admin decision to a pending report. Approval creates a
// validated catalog item and appends the element to the corpus.
func (s *Service) Review(ctx context.Context, reviewer User, id string, decision Decision) (*Outcome, error) {
	if !reviewer.Admin {
		return nil, ErrForbidden
	}
	if decision.Action != ActionApprove && decision.Action != ActionReject {
		return nil, &ValidationError{Fields: map[string]string{"action": "must be approve or reject"}}
	}

	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != model.ReportPending {
		return nil, fmt.Errorf("report %s is %s: %w", id, report.Status, ErrAlreadyReviewed)
	}

	reviewedAt := s.now()
	report.ReviewedBy = reviewer.ID
	report.ReviewedAt = &reviewedAt
	report.AdminNotes = strings.TrimSpace(decision.Notes)

	if decision.Action == ActionReject {
		report.Status = model.ReportRejected
		if err := s.repo.UpdateReport(ctx, report); err != nil {
			return nil, reviewConflict(id, err)
		}
		s.logger.Info("report rejected", zap.String("id", id), zap.String("reviewer", reviewer.ID))
		return &Outcome{Report: report}, nil
	}

	item := &model.CulturalItem{
		Title:            report.Title,
		Category:         report.Category,
		Confidence:       report.Confidence,
		Description:      report.Description,
		CulturalContext:  report.CulturalContext,
		HistoricalPeriod: report.HistoricalPeriod,
		Location:         report.Location,
		Significance:     report.Significance,
		ImagePath:        report.ImagePath,
		CreatedBy:        report.ReportedBy,
		Validated:        true,
		ValidatedBy:      reviewer.ID,
	}
	if err := s.repo.ApproveReport(ctx, report, item); err != nil {
		return nil, reviewConflict(id, err)
	}

	outcome := &Outcome{Report: report, Item: item}
	if s.corpus != nil {
		added, err := s.corpus.Append(report.Element())
		if err != nil {
			// The approval stands; the corpus can be amended by hand.
			s.logger.Error("append approved element to corpus",
				zap.String("id", id), zap.String("title", report.Title), zap.Error(err))
		}
		outcome.AddedToCorpus = added
	}

	s.logger.Info("report approved",
		zap.String("id", id),
		zap.String("reviewer", reviewer.ID),
		zap.String("item", item.ID),
		zap.Bool("added_to_corpus", outcome.AddedToCorpus))
	return outcome, nil
}

// AddItem stores a catalog item created directly by user. Items created by
// admins are marked validated.
func (s *Service) AddItem(ctx context.Context, user User, input ElementInput) (*model.CulturalItem, error) {
	if user.ID == "" {
		return nil, ErrForbidden
	}

	fields := fieldErrors{}
	confidence := validateElement(input, 0, fields)
	payload := validateImage(input.Image, fields)
	if err := fields.err(); err != nil {
		return nil, err
	}

	item := &model.CulturalItem{
		Title:            strings.TrimSpace(input.Title),
		Category:         parse.NormalizeCategory(input.Category),
		Confidence:       confidence,
		Description:      strings.TrimSpace(input.Description),
		CulturalContext:  strings.TrimSpace(input.CulturalContext),
		HistoricalPeriod: strings.TrimSpace(input.HistoricalPeriod),
		Location:         strings.TrimSpace(input.Location),
		Significance:     strings.TrimSpace(input.Significance),
		CreatedBy:        user.ID,
		Validated:        user.Admin,
	}
	if user.Admin {
		item.ValidatedBy = user.ID
	}
	if payload != nil && s.images != nil {
		path, err := s.images.Save("items", payload)
		if err != nil {
			return nil, fmt.Errorf("saving item image: %w", err)
		}
		item.ImagePath = path
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("item created", zap.String("id", item.ID), zap.String("user", user.ID))
	return item, nil
}

func validateElement(input ElementInput, fallback float64, fields fieldErrors) float64 {
	if strings.TrimSpace(input.Title) == "" {
		fields.add("titulo", "required")
	}
	if strings.TrimSpace(input.Category) == "" {
		fields.add("categoria", "required")
	}
	if input.Confidence == nil {
		return fallback
	}
	c := *input.Confidence
	if c < 0 || c > 1 {
		fields.add("confianza", "must be between 0 and 1")
	}
	return c
}

func validateImage(raw string, fields fieldErrors) *imagedata.Payload {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	p, err := imagedata.Parse(raw)
	if err != nil {
		fields.add("imagen", err.Error())
		return nil
	}
	return p
}

// reviewConflict maps a lost review race onto ErrAlreadyReviewed
func reviewConflict(id string, err error) error {
	if errors.Is(err, store.ErrNotPending) {
		return fmt.Errorf("report %s: %w", id, ErrAlreadyReviewed)
	}
	return err
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
