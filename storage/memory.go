package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"imovel-importer/models"
)

// MemoryStore is an in-memory ListingStore used by tests and local dry runs.
// It mirrors the semantics of the Postgres store, including the
// (user, external code) uniqueness of the insert batch.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64

	Listings   []*models.Listing
	Operations []models.TaxonomyRow
	Types      []models.TaxonomyRow

	// InsertErr, when set, fails the next InsertBatch call (fatal-batch tests).
	InsertErr error
	// PublishCountUnavailable makes PublishDrafts return -1 like a backend
	// that cannot report affected rows.
	PublishCountUnavailable bool
}

// NewMemoryStore returns a MemoryStore seeded with the given reference rows.
func NewMemoryStore(operations, types []models.TaxonomyRow) *MemoryStore {
	return &MemoryStore{Operations: operations, Types: types}
}

func (m *MemoryStore) OperationTypes(context.Context) ([]models.TaxonomyRow, error) {
	return m.Operations, nil
}

func (m *MemoryStore) PropertyTypes(context.Context) ([]models.TaxonomyRow, error) {
	return m.Types, nil
}

func (m *MemoryStore) ExistingCodes(_ context.Context, userID string, codes []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	existing := make(map[string]bool)
	for _, l := range m.Listings {
		if l.UserID == userID && wanted[l.ExternalCode] {
			existing[l.ExternalCode] = true
		}
	}
	return existing, nil
}

func (m *MemoryStore) InsertBatch(_ context.Context, listings []*models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		err := m.InsertErr
		m.InsertErr = nil
		return err
	}
	for _, l := range listings {
		if m.hasCodeLocked(l.UserID, l.ExternalCode) {
			continue // conflict: do nothing, like the SQL batch
		}
		m.nextID++
		cp := *l
		cp.ID = m.nextID
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now()
		}
		m.Listings = append(m.Listings, &cp)
	}
	return nil
}

func (m *MemoryStore) hasCodeLocked(userID, code string) bool {
	for _, l := range m.Listings {
		if l.UserID == userID && l.ExternalCode == code {
			return true
		}
	}
	return false
}

func (m *MemoryStore) filter(userID string, allUsers bool, keep func(*models.Listing) bool) []*models.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Listing
	for _, l := range m.Listings {
		if !allUsers && l.UserID != userID {
			continue
		}
		if keep(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out
}

func (m *MemoryStore) DraftsByUser(_ context.Context, userID string, allUsers bool) ([]*models.Listing, error) {
	return m.filter(userID, allUsers, func(l *models.Listing) bool {
		return l.Status == models.StatusDraft
	}), nil
}

func (m *MemoryStore) DraftsMissingCoordinates(_ context.Context, userID string, allUsers bool) ([]*models.Listing, error) {
	return m.filter(userID, allUsers, func(l *models.Listing) bool {
		return l.Status == models.StatusDraft && l.Latitude == nil
	}), nil
}

func (m *MemoryStore) ListingsWithPhotos(_ context.Context, userID string, allUsers bool) ([]*models.Listing, error) {
	return m.filter(userID, allUsers, func(l *models.Listing) bool {
		return l.Photos != ""
	}), nil
}

func (m *MemoryStore) byID(id int64) (*models.Listing, error) {
	for _, l := range m.Listings {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("memory store: no listing with id %d", id)
}

func (m *MemoryStore) UpdateTexts(_ context.Context, id int64, title, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.byID(id)
	if err != nil {
		return err
	}
	l.Title, l.Description = title, description
	return nil
}

func (m *MemoryStore) UpdateCoordinates(_ context.Context, id int64, lat, lon float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.byID(id)
	if err != nil {
		return err
	}
	l.Latitude, l.Longitude = &lat, &lon
	return nil
}

func (m *MemoryStore) UpdatePhotos(_ context.Context, id int64, photos string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.byID(id)
	if err != nil {
		return err
	}
	l.Photos = photos
	return nil
}

func (m *MemoryStore) PublishDrafts(_ context.Context, userID string, allUsers bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, l := range m.Listings {
		if !allUsers && l.UserID != userID {
			continue
		}
		if l.Status == models.StatusDraft {
			l.Status = models.StatusPublished
			count++
		}
	}
	if m.PublishCountUnavailable {
		return -1, nil
	}
	return count, nil
}

func (m *MemoryStore) CountDrafts(_ context.Context, userID string, allUsers bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, l := range m.Listings {
		if !allUsers && l.UserID != userID {
			continue
		}
		if l.Status == models.StatusDraft {
			count++
		}
	}
	return count, nil
}
