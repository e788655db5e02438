package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cultura/internal/model"
)

type staticSource []model.VerifiedElement

func (s staticSource) Elements() []model.VerifiedElement { return s }

func draft(title string, confidence float64) *model.AnalysisResult {
	return &model.AnalysisResult{
		Title:           title,
		Category:        model.CategoryGastronomy,
		Confidence:      confidence,
		Description:     "Plato típico.",
		CulturalContext: "",
		Reasons:         []string{"piedras"},
		Doubts:          []string{},
	}
}

// --- FuzzyMatchScore ---

func TestFuzzyMatchScore_Reflexive(t *testing.T) {
	for _, s := range []string{"", "Kotosh", "Pachamanca Huanuqueña", "  Negritos  de Huánuco "} {
		assert.InDelta(t, 1.0, FuzzyMatchScore(s, s), 1e-9, "input %q", s)
	}
}

func TestFuzzyMatchScore_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Pachamanca Huanuqueña", "Pachamanca Huanuquena"},
		{"Kotosh", "Templo de Kotosh"},
		{"Huánuco Pampa", "Huanuco Pampa"},
		{"abcab", "bacba"},
		{"", "Sango"},
	}
	for _, p := range pairs {
		assert.Equal(t, FuzzyMatchScore(p[0], p[1]), FuzzyMatchScore(p[1], p[0]), "pair %q", p)
	}
}

func TestFuzzyMatchScore_Values(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		// 0.6 * 40/42 + 0.4 * 1/3
		{"Pachamanca Huanuqueña", "Pachamanca Huanuquena", 0.7047619},
		{"KOTOSH", "kotosh", 1.0},
		{"Huanuco Pampa", "Huánuco Pampa", 0.6871795},
		// empty word set falls back to the sequence ratio
		{"", "Sango", 0.0},
		{"   ", "Sango", 0.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, FuzzyMatchScore(tt.a, tt.b), 1e-6, "%q vs %q", tt.a, tt.b)
	}
}

// --- FindBestMatch ---

func TestFindBestMatch(t *testing.T) {
	corpus := []model.VerifiedElement{
		{Title: "Kotosh"},
		{Title: "Pachamanca Huanuqueña"},
		{Title: "Pachamanca Huanuqueña"},
	}

	best, score := FindBestMatch("pachamanca huanuqueña", corpus)
	require.NotNil(t, best)
	assert.Same(t, &corpus[1], best, "first element wins ties")
	assert.InDelta(t, 1.0, score, 1e-9)

	best, score = FindBestMatch("Kotosh", nil)
	assert.Nil(t, best)
	assert.Equal(t, 0.0, score)
}

// --- AdjustConfidence ---

func TestAdjustConfidence_StrongMatchTier(t *testing.T) {
	for _, ref := range []float64{0.0, 0.5, 1.0} {
		assert.Equal(t, maxf(0.6, ref), AdjustConfidence(0.6, ref, 0.9))
	}
}

func TestAdjustConfidence_Tiers(t *testing.T) {
	tests := []struct {
		name               string
		original, ref, sim float64
		want               float64
	}{
		{"strong keeps higher", 0.4, 0.95, 0.86, 0.95},
		{"boundary 0.85 is not strong", 0.4, 0.9, 0.85, 0.65},
		{"strong-ish averages", 0.65, 0.90, 0.7048, 0.775},
		{"average never lowers", 0.95, 0.5, 0.75, 0.95},
		{"boundary 0.70 is moderate", 0.5, 0.9, 0.70, 0.55},
		{"moderate boosts", 0.5, 0.9, 0.65, 0.55},
		{"moderate clamps", 0.95, 0.9, 0.65, 1.0},
		{"boundary 0.60 unchanged", 0.5, 0.9, 0.60, 0.5},
		{"weak unchanged", 0.5, 0.9, 0.2, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AdjustConfidence(tt.original, tt.ref, tt.sim), 1e-9)
		})
	}
}

func TestAdjustConfidence_StaysInRange(t *testing.T) {
	for _, o := range []float64{0, 0.3, 0.91, 1} {
		for _, r := range []float64{0, 0.5, 1} {
			for _, s := range []float64{0, 0.61, 0.71, 0.86, 1} {
				got := AdjustConfidence(o, r, s)
				assert.True(t, got >= 0 && got <= 1, "o=%v r=%v s=%v got %v", o, r, s, got)
			}
		}
	}
}

// --- Validate ---

func TestValidate_AccentVariantAveragesConfidence(t *testing.T) {
	corpus := staticSource{{
		Title:           "Pachamanca Huanuqueña",
		Confidence:      model.Float(0.90),
		Description:     "Técnica ancestral de cocción bajo tierra con piedras calientes.",
		CulturalContext: "Se prepara en fiestas patronales.",
	}}
	in := draft("Pachamanca Huanuquena", 0.65)

	out := New(corpus, nil).Validate(in)

	assert.Equal(t, 0.775, out.Confidence)
	require.NotNil(t, out.Validation)
	assert.Equal(t, Method, out.Validation.Method)
	assert.Equal(t, "Pachamanca Huanuqueña", out.Validation.ReferenceElement)
	assert.Equal(t, 0.705, out.Validation.Similarity)
	assert.Equal(t, 0.65, out.Validation.OriginalConfidence)
	assert.InDelta(t, 0.775, out.Validation.AdjustedConfidence, 1e-9)
	assert.False(t, out.IsLocal, "similarity below 0.75 leaves locality untouched")
	assert.Equal(t, corpus[0].Description, out.Description)
	assert.Equal(t, corpus[0].CulturalContext, out.CulturalContext)

	assert.Nil(t, in.Validation, "input not modified")
	assert.Equal(t, 0.65, in.Confidence)
}

func TestValidate_ExactMatchConfirmsLocal(t *testing.T) {
	corpus := staticSource{{Title: "Kotosh", Confidence: model.Float(0.95), Description: "corto"}}
	in := draft("kotosh", 0.7)
	in.Description = "Una descripción bastante más larga."

	out := New(corpus, nil).Validate(in)

	assert.Equal(t, 0.95, out.Confidence)
	assert.True(t, out.IsLocal)
	assert.Equal(t, in.Description, out.Description, "shorter reference description ignored")
	assert.Equal(t, 1.0, out.Validation.Similarity)
}

func TestValidate_ModerateMatchClamps(t *testing.T) {
	corpus := staticSource{{Title: "Huánuco Pampa"}}

	out := New(corpus, nil).Validate(draft("Huanuco Pampa", 0.95))

	assert.Equal(t, 1.0, out.Confidence)
	assert.Equal(t, 0.687, out.Validation.Similarity)
	assert.False(t, out.IsLocal)
}

func TestValidate_DefaultsReferenceConfidence(t *testing.T) {
	corpus := staticSource{{Title: "Sango"}}
	out := New(corpus, nil).Validate(draft("Sango", 0.5))
	assert.Equal(t, model.DefaultElementConfidence, out.Confidence)
}

func TestValidate_NoOp(t *testing.T) {
	tests := []struct {
		name   string
		source staticSource
		in     *model.AnalysisResult
	}{
		{"empty corpus", nil, draft("Kotosh", 0.5)},
		{"empty title", staticSource{{Title: "Kotosh"}}, draft("", 0.5)},
		{"below threshold", staticSource{{Title: "Kotosh"}}, draft("Machu Picchu", 0.2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := New(tt.source, nil).Validate(tt.in)
			assert.Equal(t, tt.in, out)
			assert.NotSame(t, tt.in, out)
		})
	}

	assert.Nil(t, New(nil, nil).Validate(nil))
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
