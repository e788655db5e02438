package model

// Category is the closed taxonomy an analysis is classified into
type Category string

const (
	CategoryGastronomy             Category = "GASTRONOMY"
	CategoryArchaeologicalHeritage Category = "ARCHAEOLOGICAL_HERITAGE"
	CategoryMedicinalFlora         Category = "MEDICINAL_FLORA"
	CategoryLegendsAndTraditions   Category = "LEGENDS_AND_TRADITIONS"
	CategoryFestivities            Category = "FESTIVITIES"
	CategoryDance                  Category = "DANCE"
	CategoryMusic                  Category = "MUSIC"
	CategoryAttire                 Category = "ATTIRE"
	CategoryFolkArt                Category = "FOLK_ART"
	CategoryCulturalNature         Category = "CULTURAL_NATURE"
	CategoryOther                  Category = "OTHER"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryGastronomy,
	CategoryArchaeologicalHeritage,
	CategoryMedicinalFlora,
	CategoryLegendsAndTraditions,
	CategoryFestivities,
	CategoryDance,
	CategoryMusic,
	CategoryAttire,
	CategoryFolkArt,
	CategoryCulturalNature,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryGastronomy:             "Gastronomía",
	CategoryArchaeologicalHeritage: "Patrimonio Arqueológico",
	CategoryMedicinalFlora:         "Flora Medicinal",
	CategoryLegendsAndTraditions:   "Leyendas y Tradiciones",
	CategoryFestivities:            "Festividades",
	CategoryDance:                  "Danza",
	CategoryMusic:                  "Música",
	CategoryAttire:                 "Vestimenta",
	CategoryFolkArt:                "Arte Popular",
	CategoryCulturalNature:         "Naturaleza/Cultural",
	CategoryOther:                  "Otro",
}

// Label returns the Spanish display label written to the corpus
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOther]
}

// Valid reports whether c is a member of the closed set
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}
