// Package parse turns raw model output into a validated AnalysisResult.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/cultura/internal/llm"
	"github.com/ppiankov/cultura/internal/model"
)

// RequiredFields must be present in every model answer, in reporting order
var RequiredFields = []string{
	"titulo",
	"categoria",
	"confianza",
	"descripcion",
	"contexto_cultural",
	"periodo_historico",
	"ubicacion",
	"significado",
}

// ExtractJSON strips markdown fences and returns the span from the first '{'
// to the last '}'.
func ExtractJSON(text string) (string, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return "", &Error{Kind: KindMalformed, Err: errors.New("no JSON object in response")}
	}
	return cleaned[start : end+1], nil
}

// ParseResponse validates the first choice of resp and converts it into a
// result with a canonical category. Validation and Metadata are left empty.
func ParseResponse(resp *llm.RawResponse) (*model.AnalysisResult, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindEmpty, Err: errors.New("model returned no choices")}
	}
	content := resp.Choices[0]
	if strings.TrimSpace(content) == "" {
		return nil, &Error{Kind: KindEmpty, Err: errors.New("model returned empty content")}
	}
	return ParseContent(content)
}

// ParseContent validates a single model answer
func ParseContent(content string) (*model.AnalysisResult, error) {
	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("decode JSON: %w", err)}
	}

	var missing []string
	for _, name := range RequiredFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &Error{Kind: KindIncomplete, Missing: missing}
	}

	var confidence float64
	rawConfidence := fields["confianza"]
	if string(rawConfidence) == "null" || json.Unmarshal(rawConfidence, &confidence) != nil {
		return nil, &Error{Kind: KindInvalidConfidence,
			Err: fmt.Errorf("confianza is not a number: %s", rawConfidence)}
	}
	if confidence < 0 || confidence > 1 {
		return nil, &Error{Kind: KindInvalidConfidence,
			Err: fmt.Errorf("confianza %v outside [0,1]", confidence)}
	}

	return &model.AnalysisResult{
		Title:            text(fields["titulo"]),
		Category:         NormalizeCategory(text(fields["categoria"])),
		Confidence:       confidence,
		Description:      text(fields["descripcion"]),
		CulturalContext:  text(fields["contexto_cultural"]),
		HistoricalPeriod: text(fields["periodo_historico"]),
		Location:         text(fields["ubicacion"]),
		Significance:     text(fields["significado"]),
		IsLocal:          flag(fields["es_de_huanuco"]),
		Reasons:          list(fields["razones"]),
		Doubts:           list(fields["dudas"]),
	}, nil
}

// text reads a string field; other JSON values are kept in their literal form
func text(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

func flag(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch strings.ToLower(text(raw)) {
	case "true", "si", "sí", "yes":
		return true
	}
	return false
}

// list accepts an array of strings or a single string
func list(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 || string(raw) == "null" {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := text(raw); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range items {
		if s := text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
