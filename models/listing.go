package models

import (
	"strings"
	"time"
)

// Listing status values as stored in the database.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// ImportedListing holds one vendor-neutral record parsed from a feed,
// before taxonomy mapping and persistence.
type ImportedListing struct {
	ExternalCode   string
	CategoryLabel  string // vendor free text, e.g. "Apartamento"
	OperationLabel string // "venda" or "locacao" after the parser's collapse

	SalePrice float64
	RentPrice float64
	CondoFee  float64

	Street       string
	Number       string
	Neighborhood string
	City         string
	State        string
	PostalCode   string

	PrivateArea  float64
	TotalArea    float64
	Bedrooms     int
	Suites       int
	Bathrooms    int
	ParkingSpots int

	Title       string // HTML-free, at most 100 chars
	Description string // HTML-free

	CoverPhoto  string
	GalleryURLs []string // vendor order, cover excluded
	VideoURLs   []string

	Amenities    []string
	ReadyToLive  bool
}

// Listing is the platform's persisted record. The pipeline inserts new rows
// and patches a bounded set of fields on existing ones; it never deletes.
type Listing struct {
	ID     int64
	UserID string

	ExternalCode   string
	OperationID    int64
	PropertyTypeID int64

	SalePrice float64
	RentPrice float64
	CondoFee  float64

	Street       string
	Number       string
	Neighborhood string
	City         string
	State        string
	PostalCode   string

	PrivateArea  float64
	TotalArea    float64
	Bedrooms     int
	Suites       int
	Bathrooms    int
	ParkingSpots int

	Title       string
	Description string

	// Photos is the ordered, comma-joined photo URL list; the cover comes first.
	Photos    string
	Videos    string
	Amenities string
	Notes     string

	Status    string
	Latitude  *float64
	Longitude *float64

	CreatedAt time.Time
}

// PhotoList splits the stored photo field back into its ordered URL list.
func (l *Listing) PhotoList() []string {
	if strings.TrimSpace(l.Photos) == "" {
		return nil
	}
	parts := strings.Split(l.Photos, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// JoinPhotos is the inverse of PhotoList.
func JoinPhotos(urls []string) string {
	return strings.Join(urls, ",")
}

// TaxonomyRow is one row of the platform's reference relations
// (operation types and property types).
type TaxonomyRow struct {
	ID    int64
	Label string
}

// ImportResult summarizes one orchestrator run. Not persisted.
type ImportResult struct {
	Total      int
	Imported   int
	Duplicates int
	Errors     []string
}

// EnrichmentProgress is pushed to an optional callback after every unit of
// work in the geocoding and image-migration passes. Purely for UI feedback.
type EnrichmentProgress struct {
	Current int
	Total   int
	Success int
	Errors  int
}
