package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/analysis"
	"github.com/ppiankov/cultura/internal/imagedata"
	"github.com/ppiankov/cultura/internal/model"
	"github.com/ppiankov/cultura/internal/parse"
	"github.com/ppiankov/cultura/internal/review"
)

// analyzeRequest is the body of POST /api/analyze
type analyzeRequest struct {
	Image    string `json:"image"`
	UseCache *bool  `json:"use_cache,omitempty"` // Defaults to true
}

const lowConfidenceMessage = "No se pudo identificar el elemento con suficiente confianza"

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		writeJSON(w, http.StatusBadRequest, envelope{
			Message: "invalid input",
			Errors:  map[string]string{"image": "required"},
		})
		return
	}
	useCache := req.UseCache == nil || *req.UseCache

	outcome, err := s.analyzer.Analyze(r.Context(), req.Image, useCache)
	if err != nil {
		if rejection, low := analysis.LowConfidence(err); low {
			writeJSON(w, http.StatusOK, envelope{
				Message: lowConfidenceMessage,
				Reason:  rejection.Reason,
			})
			return
		}
		if errors.Is(err, imagedata.ErrInvalid) {
			writeJSON(w, http.StatusBadRequest, envelope{
				Message: "invalid input",
				Errors:  map[string]string{"image": err.Error()},
			})
			return
		}
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.recorder != nil {
		if err := s.recorder.LogAnalysis(r.Context(), outcome, ""); err != nil {
			s.logger.Warn("analysis log not saved", zap.Error(err))
		}
	}
	ok(w, http.StatusOK, "", outcome.Result)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var category model.Category
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		category = parse.NormalizeCategory(raw)
	}
	items, err := s.catalog.ListItems(r.Context(), category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", nonNil(items))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", item)
}

func (s *Server) handleMyItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ListItemsByUser(r.Context(), userFrom(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", nonNil(items))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var input review.ElementInput
	if err := decode(w, r, &input); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := s.reviews.AddItem(r.Context(), userFrom(r), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Elemento cultural creado", item)
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var input review.ReportInput
	if err := decode(w, r, &input); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.reviews.Submit(r.Context(), userFrom(r), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Reporte enviado para revisión", report)
}

func (s *Server) handleMyReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reviews.Mine(r.Context(), userFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", nonNil(reports))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reviews.Get(r.Context(), userFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	status := model.ReportStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	reports, err := s.reviews.List(r.Context(), userFrom(r), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", nonNil(reports))
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var decision review.Decision
	if err := decode(w, r, &decision); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	decision.Action = review.Action(strings.ToLower(strings.TrimSpace(string(decision.Action))))

	outcome, err := s.reviews.Review(r.Context(), userFrom(r), r.PathValue("id"), decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	message := "Reporte rechazado"
	if outcome.Report.Status == model.ReportApproved {
		message = "Reporte aprobado"
	}
	ok(w, http.StatusOK, message, outcome)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
