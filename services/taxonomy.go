package services

import (
	"imovel-importer/models"
	"imovel-importer/utils"
)

// ResolveTaxonomy returns the id of the first reference row whose label
// matches freeText after normalization (case- and diacritic-insensitive).
// It never guesses beyond exact normalized equality — fallback policy is the
// caller's, so every "best effort" match stays explicit at the call site.
func ResolveTaxonomy(rows []models.TaxonomyRow, freeText string) (int64, bool) {
	wanted := utils.NormalizeLabel(freeText)
	if wanted == "" {
		return 0, false
	}
	for _, row := range rows {
		if utils.NormalizeLabel(row.Label) == wanted {
			return row.ID, true
		}
	}
	return 0, false
}

// resolveWithFallback runs the import fallback chain: exact normalized match,
// then the default label, then the first reference row. Given a non-empty
// reference set the result is never zero — unresolved labels default rather
// than fail.
func resolveWithFallback(rows []models.TaxonomyRow, freeText, defaultLabel string) int64 {
	if id, ok := ResolveTaxonomy(rows, freeText); ok {
		return id
	}
	if defaultLabel != "" {
		if id, ok := ResolveTaxonomy(rows, defaultLabel); ok {
			return id
		}
	}
	if len(rows) > 0 {
		return rows[0].ID
	}
	return 0
}
