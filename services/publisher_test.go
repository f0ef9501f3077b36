package services

import (
	"context"
	"testing"

	"imovel-importer/models"
	"imovel-importer/storage"
)

func newPublishStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore(testOperations, testTypes)
	seed := []*models.Listing{
		{UserID: "user-1", ExternalCode: "8001", Status: models.StatusDraft},
		{UserID: "user-1", ExternalCode: "8002", Status: models.StatusDraft},
		{UserID: "user-1", ExternalCode: "8003", Status: models.StatusPublished},
		{UserID: "user-2", ExternalCode: "8004", Status: models.StatusDraft},
	}
	if err := store.InsertBatch(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestPublishDraftsScopedToUser(t *testing.T) {
	store := newPublishStore(t)
	p := NewPublisher(store, testLogger())

	result := p.PublishDrafts(context.Background(), "user-1", false)

	if result.Published != 2 || result.Total != 2 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v; want 2 of 2 published", result)
	}
	for _, l := range store.Listings {
		switch l.ExternalCode {
		case "8001", "8002":
			if l.Status != models.StatusPublished {
				t.Errorf("listing %s status = %q; want published", l.ExternalCode, l.Status)
			}
		case "8004":
			if l.Status != models.StatusDraft {
				t.Errorf("other user's draft %s was published", l.ExternalCode)
			}
		}
	}

	// Idempotent: a second run finds nothing to publish.
	again := p.PublishDrafts(context.Background(), "user-1", false)
	if again.Published != 0 || again.Total != 0 {
		t.Errorf("second run = %+v; want 0 of 0", again)
	}
}

func TestPublishDraftsAdminScope(t *testing.T) {
	store := newPublishStore(t)
	p := NewPublisher(store, testLogger())

	result := p.PublishDrafts(context.Background(), "user-1", true)

	if result.Published != 3 || result.Total != 3 {
		t.Errorf("admin result = %+v; want all 3 drafts published", result)
	}
}

func TestPublishFallsBackToPreCount(t *testing.T) {
	store := newPublishStore(t)
	store.PublishCountUnavailable = true
	p := NewPublisher(store, testLogger())

	result := p.PublishDrafts(context.Background(), "user-1", false)

	// Backend cannot report affected rows: the pre-update count stands in.
	if result.Published != 2 || result.Total != 2 {
		t.Errorf("result = %+v; want the pre-count 2 reported as published", result)
	}
}
