package knowledge

import (
	"fmt"
	"strings"

	"github.com/ppiankov/cultura/internal/model"
)

const (
	// DefaultMaxExamples caps exemplars embedded in the prompt
	DefaultMaxExamples = 12

	perCategoryLimit  = 3
	descriptionLength = 180
	defaultCategory   = "General"
	untitled          = "(sin título)"
)

// HardcodedExamples is used whenever the corpus yields no exemplars, so the
// prompt always carries at least two worked examples.
const HardcodedExamples = `
        GASTRONOMÍA:
        - Pachamanca Huanuqueña (Confianza: 0.90)
            Descripción: Técnica ancestral de cocción bajo tierra con piedras calientes...
            Ubicación: Toda la región de Huánuco
            Periodo: Preincaico hasta la actualidad

        PATRIMONIO ARQUEOLÓGICO:
        - Kotosh - Templo de las Manos Cruzadas (Confianza: 0.95)
            Descripción: Sitio arqueológico de 4000 años de antigüedad...
            Ubicación: Distrito de Kotosh, 5 km de Huánuco
            Periodo: Precerámico (2000–1500 a.C.)
        `

// FewShotExamples groups elements by category (first-seen order), keeps at
// most three per category and stops once maxCount exemplars were emitted.
func FewShotExamples(elements []model.VerifiedElement, maxCount int) string {
	if len(elements) == 0 || maxCount <= 0 {
		return HardcodedExamples
	}

	var order []string
	byCategory := make(map[string][]model.VerifiedElement)
	for _, e := range elements {
		cat := e.Category
		if cat == "" {
			cat = defaultCategory
		}
		if _, seen := byCategory[cat]; !seen {
			order = append(order, cat)
			byCategory[cat] = nil
		}
		if len(byCategory[cat]) < perCategoryLimit {
			byCategory[cat] = append(byCategory[cat], e)
		}
	}

	var blocks []string
	count := 0
	for _, cat := range order {
		if count >= maxCount {
			break
		}
		blocks = append(blocks, "\n"+cat+":")
		for _, e := range byCategory[cat] {
			if count >= maxCount {
				break
			}
			blocks = append(blocks, formatExample(e))
			count++
		}
	}

	if len(blocks) == 0 {
		return HardcodedExamples
	}
	return strings.Join(blocks, "\n")
}

func formatExample(e model.VerifiedElement) string {
	title := e.Title
	if title == "" {
		title = untitled
	}
	return fmt.Sprintf("  - %s (Confianza esperada: %.2f)\n    Descripción: %s...\n    Ubicación: %s\n    Periodo: %s",
		title,
		e.ConfidenceOr(model.DefaultElementConfidence),
		truncateRunes(e.Description, descriptionLength),
		e.Location,
		e.HistoricalPeriod,
	)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
