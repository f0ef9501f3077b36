package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"imovel-importer/models"
	"imovel-importer/storage"
	"imovel-importer/utils"
)

// MigrateResult summarizes one image-migration pass.
type MigrateResult struct {
	Success int
	Errors  []string
}

// extensionRegexp is the allow-pattern for inferred photo extensions.
var extensionRegexp = regexp.MustCompile(`^[a-z0-9]{1,5}$`)

// Migrator rehosts externally-hosted listing photos on the platform's own
// object storage. Downloads hit arbitrary unknown hosts, so the loop is
// sequential with a fixed pause between uploads.
type Migrator struct {
	store       storage.ListingStore
	objects     storage.ObjectStorage
	client      *http.Client
	platformURL string
	pacer       *utils.Pacer
	logger      *utils.Logger
}

// NewMigrator creates a Migrator. platformURL is the public prefix of the
// platform's own storage; URLs under it are never re-migrated.
func NewMigrator(store storage.ListingStore, objects storage.ObjectStorage,
	platformURL string, delay time.Duration, logger *utils.Logger) *Migrator {
	return &Migrator{
		store:       store,
		objects:     objects,
		client:      &http.Client{Timeout: 30 * time.Second},
		platformURL: strings.TrimSuffix(platformURL, "/"),
		pacer:       utils.NewPacer(delay),
		logger:      logger.Named("migrator"),
	}
}

// MigrateExternalImages rewrites the photo list of every record holding at
// least one external URL. A photo that fails to download or upload keeps its
// original URL at its original position, so a listing never loses a photo
// slot to a transient migration failure. Records are only written when at
// least one photo actually changed.
func (m *Migrator) MigrateExternalImages(ctx context.Context, userID string, onProgress ProgressFunc, isAdmin bool) (result *MigrateResult) {
	result = &MigrateResult{}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Unexpected fault: %v", r)
			result.Errors = append(result.Errors, fmt.Sprintf("Erro inesperado na migração de fotos: %v", r))
		}
	}()

	all, err := m.store.ListingsWithPhotos(ctx, userID, isAdmin)
	if err != nil {
		result.Errors = append(result.Errors, "Falha ao carregar imóveis: "+err.Error())
		return result
	}

	var candidates []*models.Listing
	for _, l := range all {
		if m.hasExternalPhoto(l) {
			candidates = append(candidates, l)
		}
	}

	for i, l := range candidates {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "Operação cancelada.")
			return result
		}

		status := m.migrateOne(ctx, l, result)
		if onProgress != nil {
			onProgress(models.EnrichmentProgress{
				Current: i + 1,
				Total:   len(candidates),
				Success: result.Success,
				Errors:  len(result.Errors),
			}, status)
		}
	}

	m.logger.Info("User scope %q (admin=%t): %d of %d records migrated, %d errors",
		userID, isAdmin, result.Success, len(candidates), len(result.Errors))
	return result
}

func (m *Migrator) hasExternalPhoto(l *models.Listing) bool {
	for _, u := range l.PhotoList() {
		if !m.isPlatformURL(u) {
			return true
		}
	}
	return false
}

func (m *Migrator) isPlatformURL(u string) bool {
	return m.platformURL != "" && strings.HasPrefix(u, m.platformURL)
}

func (m *Migrator) migrateOne(ctx context.Context, l *models.Listing, result *MigrateResult) string {
	photos := l.PhotoList()
	changed := false

	for i, photoURL := range photos {
		if m.isPlatformURL(photoURL) {
			continue
		}

		data, contentType, err := m.download(ctx, photoURL)
		if err != nil {
			// Keep the original URL in place; the slot is never dropped.
			result.Errors = append(result.Errors, fmt.Sprintf("Imóvel %s: download de %s: %v", l.ExternalCode, photoURL, err))
			continue
		}

		if err := m.pacer.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, "Operação cancelada.")
			break
		}

		objectPath := m.objectName(l.ID, photoURL)
		if err := m.objects.Upload(ctx, objectPath, data, contentType); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Imóvel %s: upload de %s: %v", l.ExternalCode, photoURL, err))
			continue
		}

		photos[i] = m.objects.PublicURL(objectPath)
		changed = true
	}

	if !changed {
		return fmt.Sprintf("Imóvel %s: nenhuma foto migrada", l.ExternalCode)
	}

	if err := m.store.UpdatePhotos(ctx, l.ID, models.JoinPhotos(photos)); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Imóvel %s: %v", l.ExternalCode, err))
		return fmt.Sprintf("Imóvel %s: falha ao salvar fotos", l.ExternalCode)
	}
	result.Success++
	return fmt.Sprintf("Imóvel %s: fotos migradas", l.ExternalCode)
}

func (m *Migrator) download(ctx context.Context, photoURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// objectName builds a collision-resistant storage path: record id, upload
// timestamp, random suffix and the sanitized extension inferred from the
// source URL.
func (m *Migrator) objectName(listingID int64, photoURL string) string {
	ext := "jpg"
	if u, err := url.Parse(photoURL); err == nil {
		candidate := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		if extensionRegexp.MatchString(candidate) {
			ext = candidate
		}
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%d/%d-%s.%s", listingID, time.Now().UnixNano(), suffix, ext)
}
