package parse

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/cultura/internal/model"
)

// categoryAliases is built once and never mutated
var categoryAliases = buildAliases()

func buildAliases() map[string]model.Category {
	spanish := map[string]model.Category{
		"gastronomia":             model.CategoryGastronomy,
		"comida":                  model.CategoryGastronomy,
		"patrimonio arqueologico": model.CategoryArchaeologicalHeritage,
		"patrimonio":              model.CategoryArchaeologicalHeritage,
		"arqueologico":            model.CategoryArchaeologicalHeritage,
		"arqueologia":             model.CategoryArchaeologicalHeritage,
		"flora medicinal":         model.CategoryMedicinalFlora,
		"flora":                   model.CategoryMedicinalFlora,
		"medicinal":               model.CategoryMedicinalFlora,
		"leyendas y tradiciones":  model.CategoryLegendsAndTraditions,
		"leyendas":                model.CategoryLegendsAndTraditions,
		"tradiciones":             model.CategoryLegendsAndTraditions,
		"festividades":            model.CategoryFestivities,
		"festividad":              model.CategoryFestivities,
		"fiesta":                  model.CategoryFestivities,
		"danza":                   model.CategoryDance,
		"danzas":                  model.CategoryDance,
		"baile":                   model.CategoryDance,
		"musica":                  model.CategoryMusic,
		"vestimenta":              model.CategoryAttire,
		"vestuario":               model.CategoryAttire,
		"traje":                   model.CategoryAttire,
		"arte popular":            model.CategoryFolkArt,
		"artesania":               model.CategoryFolkArt,
		"naturaleza/cultural":     model.CategoryCulturalNature,
		"naturaleza":              model.CategoryCulturalNature,
		"otro":                    model.CategoryOther,
		"otros":                   model.CategoryOther,
	}

	aliases := make(map[string]model.Category, len(spanish)+3*len(model.Categories))
	for k, v := range spanish {
		aliases[k] = v
	}
	for _, c := range model.Categories {
		id := string(c)
		aliases[foldKey(id)] = c
		aliases[foldKey(strings.ReplaceAll(id, "_", " "))] = c
		aliases[foldKey(c.Label())] = c
	}
	return aliases
}

// NormalizeCategory maps free text to the closed taxonomy. Lookup ignores
// case, accents and surrounding space. Unknown input maps to CategoryOther.
func NormalizeCategory(raw string) model.Category {
	if c, ok := categoryAliases[foldKey(raw)]; ok {
		return c
	}
	return model.CategoryOther
}

func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
