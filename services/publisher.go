package services

import (
	"context"
	"fmt"

	"imovel-importer/storage"
	"imovel-importer/utils"
)

// PublishResult summarizes one bulk publish.
type PublishResult struct {
	Published int64
	Total     int64
	Errors    []string
}

// Publisher transitions draft listings to published in one statement. This
// is the pipeline's one bulk, irreversible operation: there is no per-record
// iteration and no undo.
type Publisher struct {
	store  storage.ListingStore
	logger *utils.Logger
}

// NewPublisher creates a Publisher backed by the given store.
func NewPublisher(store storage.ListingStore, logger *utils.Logger) *Publisher {
	return &Publisher{store: store, logger: logger.Named("publisher")}
}

// PublishDrafts publishes every draft in scope. The statement's affected-row
// count is the authoritative published figure; when the backend cannot
// report it, the pre-update draft count stands in.
func (p *Publisher) PublishDrafts(ctx context.Context, userID string, isAdmin bool) (result *PublishResult) {
	result = &PublishResult{}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Unexpected fault: %v", r)
			result.Errors = append(result.Errors, fmt.Sprintf("Erro inesperado na publicação: %v", r))
		}
	}()

	total, err := p.store.CountDrafts(ctx, userID, isAdmin)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao contar rascunhos: "+err.Error())
		return result
	}
	result.Total = total

	count, err := p.store.PublishDrafts(ctx, userID, isAdmin)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao publicar imóveis: "+err.Error())
		return result
	}
	if count < 0 {
		count = total
	}
	result.Published = count

	p.logger.Info("User scope %q (admin=%t): published %d of %d drafts",
		userID, isAdmin, result.Published, result.Total)
	return result
}
