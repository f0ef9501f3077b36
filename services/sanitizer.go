package services

import (
	"context"
	"fmt"

	"imovel-importer/storage"
	"imovel-importer/utils"
)

// SanitizeResult summarizes one sanitization pass.
type SanitizeResult struct {
	Fixed  int
	Total  int
	Errors []string
}

// Sanitizer strips residual HTML from the free-text fields of draft records.
// Published records are never rewritten by this tool.
type Sanitizer struct {
	store  storage.ListingStore
	logger *utils.Logger
}

// NewSanitizer creates a Sanitizer backed by the given store.
func NewSanitizer(store storage.ListingStore, logger *utils.Logger) *Sanitizer {
	return &Sanitizer{store: store, logger: logger.Named("sanitizer")}
}

// SanitizeDrafts cleans title and description on every draft of the user.
// An update is issued only when the cleaned value actually differs from the
// stored one, so untouched records cost no writes.
func (s *Sanitizer) SanitizeDrafts(ctx context.Context, userID string) (result *SanitizeResult) {
	result = &SanitizeResult{}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Unexpected fault: %v", r)
			result.Errors = append(result.Errors, fmt.Sprintf("Erro inesperado na limpeza: %v", r))
		}
	}()

	drafts, err := s.store.DraftsByUser(ctx, userID, false)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao carregar rascunhos: "+err.Error())
		return result
	}
	result.Total = len(drafts)

	for _, l := range drafts {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "Operação cancelada.")
			return result
		}

		title := utils.StripHTML(l.Title)
		description := utils.StripHTML(l.Description)
		if title == l.Title && description == l.Description {
			continue
		}

		if err := s.store.UpdateTexts(ctx, l.ID, title, description); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Imóvel %s: %v", l.ExternalCode, err))
			continue
		}
		result.Fixed++
	}

	s.logger.Info("User %s: fixed %d of %d drafts", userID, result.Fixed, result.Total)
	return result
}
