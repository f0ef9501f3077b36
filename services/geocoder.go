package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"imovel-importer/models"
	"imovel-importer/storage"
	"imovel-importer/utils"
)

// ProgressFunc receives one update per processed record with a
// human-readable status line. It may be nil.
type ProgressFunc func(progress models.EnrichmentProgress, status string)

// GeocodeResult summarizes one geocoding pass.
type GeocodeResult struct {
	Success int
	Failed  int
	Total   int
	Errors  []string
}

// Geocoder resolves postal addresses of draft listings to coordinates via a
// Nominatim-style endpoint. The loop is strictly sequential and paced: the
// endpoint enforces a global rate limit, so concurrency here would get the
// platform throttled or banned.
type Geocoder struct {
	store     storage.ListingStore
	client    *http.Client
	baseURL   string
	userAgent string
	country   string
	pacer     *utils.Pacer
	logger    *utils.Logger
}

// NewGeocoder creates a Geocoder. delay is the minimum interval between any
// two requests, across all tiers and records.
func NewGeocoder(store storage.ListingStore, baseURL, userAgent, country string,
	delay time.Duration, logger *utils.Logger) *Geocoder {
	return &Geocoder{
		store:     store,
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		country:   country,
		pacer:     utils.NewPacer(delay),
		logger:    logger.Named("geocoder"),
	}
}

// GeocodeDrafts locates every draft without coordinates. Per record, three
// tiers are tried in order, each only if the previous found nothing:
// postal code, structured street/city/state, free-text query. The first hit
// is persisted immediately and the remaining tiers are skipped. A record
// without a usable postal code fails without any network call.
func (g *Geocoder) GeocodeDrafts(ctx context.Context, userID string, onProgress ProgressFunc, isAdmin bool) (result *GeocodeResult) {
	result = &GeocodeResult{}
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Unexpected fault: %v", r)
			result.Errors = append(result.Errors, fmt.Sprintf("Erro inesperado na geolocalização: %v", r))
		}
	}()

	drafts, err := g.store.DraftsMissingCoordinates(ctx, userID, isAdmin)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao carregar rascunhos: "+err.Error())
		return result
	}
	result.Total = len(drafts)

	for i, l := range drafts {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "Operação cancelada.")
			return result
		}

		status := g.geocodeOne(ctx, l, result)
		if onProgress != nil {
			onProgress(models.EnrichmentProgress{
				Current: i + 1,
				Total:   result.Total,
				Success: result.Success,
				Errors:  result.Failed,
			}, status)
		}
	}

	g.logger.Info("User scope %q (admin=%t): %d located, %d failed of %d",
		userID, isAdmin, result.Success, result.Failed, result.Total)
	return result
}

func (g *Geocoder) geocodeOne(ctx context.Context, l *models.Listing, result *GeocodeResult) string {
	postal := digitsOnly(l.PostalCode)
	if len(postal) < 8 {
		result.Failed++
		return fmt.Sprintf("Imóvel %s: sem CEP utilizável", l.ExternalCode)
	}

	lat, lon, ok := g.lookupPostal(ctx, postal)
	if !ok && l.Street != "" && l.City != "" {
		lat, lon, ok = g.lookupStructured(ctx, l)
	}
	if !ok {
		lat, lon, ok = g.lookupFreeText(ctx, l)
	}
	if !ok {
		result.Failed++
		return fmt.Sprintf("Imóvel %s: endereço não localizado", l.ExternalCode)
	}

	if err := g.store.UpdateCoordinates(ctx, l.ID, lat, lon); err != nil {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("Imóvel %s: %v", l.ExternalCode, err))
		return fmt.Sprintf("Imóvel %s: falha ao salvar coordenadas", l.ExternalCode)
	}
	result.Success++
	return fmt.Sprintf("Imóvel %s: localizado (%.5f, %.5f)", l.ExternalCode, lat, lon)
}

func (g *Geocoder) lookupPostal(ctx context.Context, postal string) (float64, float64, bool) {
	params := url.Values{}
	params.Set("postalcode", postal)
	params.Set("country", g.country)
	return g.search(ctx, params)
}

func (g *Geocoder) lookupStructured(ctx context.Context, l *models.Listing) (float64, float64, bool) {
	params := url.Values{}
	params.Set("street", strings.TrimSpace(l.Street+" "+l.Number))
	params.Set("city", l.City)
	params.Set("state", l.State)
	params.Set("country", g.country)
	return g.search(ctx, params)
}

func (g *Geocoder) lookupFreeText(ctx context.Context, l *models.Listing) (float64, float64, bool) {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Street, l.City, l.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	params := url.Values{}
	params.Set("q", strings.Join(parts, ", "))
	return g.search(ctx, params)
}

// search runs one rate-limited query against the endpoint. A network or
// decode failure is swallowed into "no result": each tier is best-effort
// and the caller moves on to the next one.
func (g *Geocoder) search(ctx context.Context, params url.Values) (float64, float64, bool) {
	if err := g.pacer.Wait(ctx); err != nil {
		return 0, 0, false
	}

	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, false
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("Request failed: %v", err)
		return 0, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Debug("Endpoint returned %d", resp.StatusCode)
		return 0, 0, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, 0, false
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &hits); err != nil || len(hits) == 0 {
		return 0, 0, false
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
