// Package reconcile cross-checks model output against the verified corpus
// and adjusts confidence, locality and descriptive text on a match.
package reconcile

import (
	"math"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/logging"
	"github.com/ppiankov/cultura/internal/model"
)

const (
	// Method identifies this reconciliation in the validation block
	Method = "local_knowledge_base_v2"

	// MatchThreshold is the minimum similarity for a corpus match
	MatchThreshold = 0.60
	// LocalThreshold is the similarity above which the subject is confirmed local
	LocalThreshold = 0.75

	strongMatch   = 0.85
	moderateMatch = 0.70
	weakBoost     = 1.1
)

// AdjustConfidence combines the model confidence with the reference element's
// confidence according to how closely the titles matched.
func AdjustConfidence(original, reference, similarity float64) float64 {
	switch {
	case similarity > strongMatch:
		return math.Max(original, reference)
	case similarity > moderateMatch:
		return math.Max(original, (original+reference)/2)
	case similarity > MatchThreshold:
		return math.Min(original*weakBoost, 1.0)
	default:
		return original
	}
}

// Reconciler validates results against a corpus source
type Reconciler struct {
	source knowledge.Source
	logger *zap.Logger
}

// New creates a reconciler over source
func New(source knowledge.Source, logger *zap.Logger) *Reconciler {
	return &Reconciler{source: source, logger: logging.OrNop(logger)}
}

// Validate returns a copy of result adjusted by the best corpus match. The
// input is never modified. The copy equals the input unless a corpus element
// matches above MatchThreshold.
func (r *Reconciler) Validate(result *model.AnalysisResult) *model.AnalysisResult {
	if result == nil {
		return nil
	}
	out := result.Clone()
	if out.Title == "" || r.source == nil {
		return out
	}

	corpus := r.source.Elements()
	if len(corpus) == 0 {
		return out
	}

	ref, similarity := FindBestMatch(out.Title, corpus)
	if ref == nil || similarity <= MatchThreshold {
		r.logger.Debug("no corpus match",
			zap.String("title", out.Title), zap.Float64("best_similarity", similarity))
		return out
	}

	original := out.Confidence
	adjusted := AdjustConfidence(original, ref.ConfidenceOr(model.DefaultElementConfidence), similarity)

	out.Confidence = round3(adjusted)
	out.Validation = &model.Validation{
		Method:             Method,
		ReferenceElement:   ref.Title,
		Similarity:         round3(similarity),
		OriginalConfidence: original,
		AdjustedConfidence: adjusted,
	}
	if longer(ref.Description, out.Description) {
		out.Description = ref.Description
	}
	if similarity > LocalThreshold {
		out.IsLocal = true
	}
	if longer(ref.CulturalContext, out.CulturalContext) {
		out.CulturalContext = ref.CulturalContext
	}

	r.logger.Debug("corpus match",
		zap.String("title", out.Title),
		zap.String("reference", ref.Title),
		zap.Float64("similarity", similarity),
		zap.Float64("confidence", out.Confidence))
	return out
}

func longer(candidate, current string) bool {
	return utf8.RuneCountInString(candidate) > utf8.RuneCountInString(current)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
