package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cultura/internal/knowledge"
	"github.com/ppiankov/cultura/internal/model"
)

type staticSource []model.VerifiedElement

func (s staticSource) Elements() []model.VerifiedElement { return s }

func TestBuild_EmptyCorpusEmbedsHardcodedExamples(t *testing.T) {
	out := NewBuilder(staticSource(nil), 0).Build()
	assert.Contains(t, out, knowledge.HardcodedExamples)

	assert.Equal(t, out, NewBuilder(nil, 0).Build(), "nil source behaves like an empty corpus")
}

func TestBuild_EmbedsCorpusExamples(t *testing.T) {
	src := staticSource{{
		Title:      "Negritos de Huánuco",
		Category:   "Danza",
		Confidence: model.Float(0.93),
	}}
	out := NewBuilder(src, 5).Build()

	assert.Contains(t, out, "  - Negritos de Huánuco (Confianza esperada: 0.93)")
	assert.NotContains(t, out, "Kotosh - Templo de las Manos Cruzadas (Confianza: 0.95)")
}

func TestBuild_Deterministic(t *testing.T) {
	src := staticSource{{Title: "Kotosh", Category: "Patrimonio Arqueológico"}}
	b := NewBuilder(src, 3)
	assert.Equal(t, b.Build(), b.Build())
}

func TestRender_ContainsRulesAndTaxonomy(t *testing.T) {
	out := Render("EJEMPLOS")

	assert.Contains(t, out, "EJEMPLOS")
	for _, c := range model.Categories {
		assert.Contains(t, out, "- "+c.Label())
	}
	for _, tier := range []string{"0.80–1.00", "0.60–0.79", "0.30–0.59", "0.00–0.29"} {
		assert.Contains(t, out, tier)
	}
	for step := 1; step <= 5; step++ {
		assert.Contains(t, out, "\n"+string(rune('0'+step))+") ")
	}
	assert.Contains(t, out, `"es_de_huanuco": false y "confianza" < 0.30`)
	assert.Contains(t, out, `"es_de_huanuco": true y "confianza" ≥ 0.70`)
	assert.NotContains(t, out, "%!", "no formatting artifacts")
}

func TestSchemaExample_IsValidJSONWithAllFields(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(SchemaExample()), &schema))

	assert.Len(t, schema, len(OutputFields))
	for _, field := range OutputFields {
		assert.Contains(t, schema, field)
	}
	assert.True(t, strings.Contains(Render(""), SchemaExample()))
}
