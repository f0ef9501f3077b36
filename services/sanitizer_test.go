package services

import (
	"context"
	"testing"

	"imovel-importer/models"
	"imovel-importer/storage"
)

func TestSanitizeDrafts(t *testing.T) {
	store := storage.NewMemoryStore(testOperations, testTypes)
	seed := []*models.Listing{
		{UserID: "user-1", ExternalCode: "1", Status: models.StatusDraft,
			Title: "<b>Casa</b>", Description: "linha um<br>linha dois"},
		{UserID: "user-1", ExternalCode: "2", Status: models.StatusDraft,
			Title: "Já limpo", Description: "sem marcação"},
		{UserID: "user-1", ExternalCode: "3", Status: models.StatusPublished,
			Title: "<i>Publicado</i>", Description: "x"},
		{UserID: "user-2", ExternalCode: "4", Status: models.StatusDraft,
			Title: "<u>Outro usuário</u>", Description: "y"},
	}
	if err := store.InsertBatch(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result := NewSanitizer(store, testLogger()).SanitizeDrafts(context.Background(), "user-1")

	if result.Total != 2 {
		t.Errorf("Total = %d; want 2 (only user-1 drafts)", result.Total)
	}
	if result.Fixed != 1 {
		t.Errorf("Fixed = %d; want 1 (the already-clean draft is a no-op)", result.Fixed)
	}

	for _, l := range store.Listings {
		switch l.ExternalCode {
		case "1":
			if l.Title != "Casa" || l.Description != "linha um\nlinha dois" {
				t.Errorf("draft not cleaned: %q / %q", l.Title, l.Description)
			}
		case "3":
			if l.Title != "<i>Publicado</i>" {
				t.Errorf("published record was rewritten: %q", l.Title)
			}
		case "4":
			if l.Title != "<u>Outro usuário</u>" {
				t.Errorf("other user's record was rewritten: %q", l.Title)
			}
		}
	}
}
