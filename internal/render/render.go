// Package render formats analysis results for terminals and files.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/cultura/internal/model"
)

// JSON writes the result as indented JSON
func JSON(w io.Writer, result *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// Markdown writes a human-readable report of the result
func Markdown(w io.Writer, result *model.AnalysisResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", result.Title)
	fmt.Fprintf(&b, "| Campo | Valor |\n|---|---|\n")
	fmt.Fprintf(&b, "| Categoría | %s |\n", result.Category.Label())
	fmt.Fprintf(&b, "| Confianza | %.0f%% |\n", result.Confidence*100)
	fmt.Fprintf(&b, "| Periodo histórico | %s |\n", cell(result.HistoricalPeriod))
	fmt.Fprintf(&b, "| Ubicación | %s |\n", cell(result.Location))
	fmt.Fprintf(&b, "| Propio de Huánuco | %s |\n", yesNo(result.IsLocal))
	b.WriteString("\n")

	section(&b, "Descripción", result.Description)
	section(&b, "Contexto cultural", result.CulturalContext)
	section(&b, "Significado", result.Significance)
	list(&b, "Razones", result.Reasons)
	list(&b, "Dudas", result.Doubts)

	if v := result.Validation; v != nil {
		b.WriteString("## Validación local\n\n")
		fmt.Fprintf(&b, "- Elemento de referencia: %s\n", v.ReferenceElement)
		fmt.Fprintf(&b, "- Similitud: %.3f\n", v.Similarity)
		fmt.Fprintf(&b, "- Confianza original: %.2f\n", v.OriginalConfidence)
		fmt.Fprintf(&b, "- Confianza ajustada: %.2f\n", v.AdjustedConfidence)
		fmt.Fprintf(&b, "- Método: %s\n\n", v.Method)
	}

	m := result.Metadata
	fmt.Fprintf(&b, "---\n\n_Modelo: %s · Prompt: %s · Tokens: %d", m.Model, m.PromptVersion, m.TokensUsed)
	if m.Cached {
		b.WriteString(" · desde caché")
	}
	b.WriteString("_\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary returns a one-line description of the result
func Summary(result *model.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s [%s] confianza %.2f", result.Title, result.Category.Label(), result.Confidence)
	if result.Validation != nil {
		fmt.Fprintf(&b, " (ajustada por %q, similitud %.2f)", result.Validation.ReferenceElement, result.Validation.Similarity)
	}
	if result.Metadata.Cached {
		b.WriteString(" · caché")
	}
	return b.String()
}

// Rejection returns a one-line description of a low-confidence rejection
func Rejection(confidence float64, reason string) string {
	if reason == "" {
		return fmt.Sprintf("✗ Confianza insuficiente (%.2f)", confidence)
	}
	return fmt.Sprintf("✗ Confianza insuficiente (%.2f): %s", confidence, reason)
}

// ToFile renders into path, creating parent directories
func ToFile(path string, result *model.AnalysisResult, fn func(io.Writer, *model.AnalysisResult) error) error {
	var buf bytes.Buffer
	if err := fn(&buf, result); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func section(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, body)
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func cell(s string) string {
	if s == "" {
		return "—"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
