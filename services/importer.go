package services

import (
	"context"
	"fmt"
	"strings"

	"imovel-importer/feed"
	"imovel-importer/models"
	"imovel-importer/storage"
	"imovel-importer/utils"
)

// defaultOperationLabel is the operation the fallback chain lands on when a
// vendor operation label has no match in the reference set.
const defaultOperationLabel = "venda"

// Importer drives one feed import: detection, parsing, plan-limit
// truncation, duplicate filtering, taxonomy mapping and one batch insert.
type Importer struct {
	store  storage.ListingStore
	logger *utils.Logger
}

// NewImporter creates an Importer backed by the given store.
func NewImporter(store storage.ListingStore, logger *utils.Logger) *Importer {
	return &Importer{store: store, logger: logger.Named("importer")}
}

// ImportFeed ingests one raw feed document for a user and returns an
// aggregate summary. Expected failures surface as entries in the result's
// error list, never as a Go error or panic; a deferred recover converts any
// unexpected fault into a single fatal entry.
//
// Re-running the same feed for the same user is safe: already-imported
// external codes are counted as duplicates and skipped.
func (im *Importer) ImportFeed(ctx context.Context, raw, userID string, limit int) (result *models.ImportResult) {
	result = &models.ImportResult{}
	defer func() {
		if r := recover(); r != nil {
			im.logger.Error("Unexpected fault: %v", r)
			result.Errors = append(result.Errors, fmt.Sprintf("Erro inesperado na importação: %v", r))
		}
	}()

	listings, tag := feed.Parse(raw, im.logger)
	if tag == feed.FormatUnknown {
		result.Errors = append(result.Errors, "Formato de arquivo não suportado.")
		return result
	}
	if len(listings) == 0 {
		result.Errors = append(result.Errors, "Nenhum imóvel encontrado no arquivo.")
		return result
	}

	// Soft quota: a plan limit narrows the import to the first N items in
	// document order instead of rejecting the whole file.
	if limit > 0 && len(listings) > limit {
		im.logger.Warn("Feed has %d listings, truncating to plan limit %d", len(listings), limit)
		listings = listings[:limit]
	}
	result.Total = len(listings)

	operations, err := im.store.OperationTypes(ctx)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao carregar tipos de operação: "+err.Error())
		return result
	}
	types, err := im.store.PropertyTypes(ctx)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao carregar tipos de imóvel: "+err.Error())
		return result
	}

	codes := make([]string, 0, len(listings))
	for _, l := range listings {
		codes = append(codes, l.ExternalCode)
	}
	existing, err := im.store.ExistingCodes(ctx, userID, codes)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao verificar imóveis existentes: "+err.Error())
		return result
	}

	var staged []*models.Listing
	stagedCodes := make(map[string]bool, len(listings))
	for _, l := range listings {
		if l.SalePrice == 0 && l.RentPrice == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Imóvel %s: Sem valor definido.", l.ExternalCode))
			continue
		}
		// A code repeated inside the feed is a duplicate too; only the first
		// occurrence reaches the batch, matching what the insert's conflict
		// clause would keep anyway.
		if existing[l.ExternalCode] || stagedCodes[l.ExternalCode] {
			result.Duplicates++
			continue
		}
		stagedCodes[l.ExternalCode] = true
		staged = append(staged, im.stage(l, userID, operations, types, tag))
	}

	if len(staged) > 0 {
		// One atomic round trip. A partially-inserted batch with no rollback
		// would corrupt the duplicate gate for the next run, so a failure
		// here is fatal for the whole import.
		if err := im.store.InsertBatch(ctx, staged); err != nil {
			result.Errors = append(result.Errors, "Falha ao salvar imóveis: "+err.Error())
			return result
		}
		result.Imported = len(staged)
	}

	im.logger.Info("User %s: %d total, %d imported, %d duplicates, %d errors",
		userID, result.Total, result.Imported, result.Duplicates, len(result.Errors))
	return result
}

// stage maps a parsed listing onto the platform record. The vendor's
// original type and category text goes into the notes field for manual
// follow-up, since taxonomy mapping is best-effort.
func (im *Importer) stage(l *models.ImportedListing, userID string,
	operations, types []models.TaxonomyRow, tag feed.FormatTag) *models.Listing {

	photos := l.GalleryURLs
	if l.CoverPhoto != "" {
		photos = append([]string{l.CoverPhoto}, l.GalleryURLs...)
	}

	amenities := l.Amenities
	if l.ReadyToLive {
		amenities = append(amenities, "Pronto para morar")
	}

	return &models.Listing{
		UserID:         userID,
		ExternalCode:   l.ExternalCode,
		OperationID:    resolveWithFallback(operations, l.OperationLabel, defaultOperationLabel),
		PropertyTypeID: resolveWithFallback(types, l.CategoryLabel, ""),

		SalePrice: l.SalePrice,
		RentPrice: l.RentPrice,
		CondoFee:  l.CondoFee,

		Street:       l.Street,
		Number:       l.Number,
		Neighborhood: l.Neighborhood,
		City:         l.City,
		State:        l.State,
		PostalCode:   l.PostalCode,

		PrivateArea:  l.PrivateArea,
		TotalArea:    l.TotalArea,
		Bedrooms:     l.Bedrooms,
		Suites:       l.Suites,
		Bathrooms:    l.Bathrooms,
		ParkingSpots: l.ParkingSpots,

		Title:       l.Title,
		Description: l.Description,

		Photos:    models.JoinPhotos(photos),
		Videos:    strings.Join(l.VideoURLs, ","),
		Amenities: strings.Join(amenities, ", "),
		Notes: fmt.Sprintf("Importado via %s. Tipo original: %q, operação original: %q.",
			tag, l.CategoryLabel, l.OperationLabel),

		Status: models.StatusDraft,
	}
}
