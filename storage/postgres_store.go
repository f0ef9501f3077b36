package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"imovel-importer/models"
	"imovel-importer/utils"
)

// listingColumns is every column read back by the scoped selects, in scan order.
const listingColumns = `id, user_id, external_code, operation_id, property_type_id,
	sale_price, rent_price, condo_fee,
	street, number, neighborhood, city, state, postal_code,
	private_area, total_area, bedrooms, suites, bathrooms, parking_spots,
	title, description, photos, videos, amenities, notes,
	status, latitude, longitude, created_at`

// PostgresStore implements ListingStore on PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection, waits for the database with retries,
// runs schema migrations and returns a ready-to-use store.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do("postgres ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger.Named("postgres")}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS operation_types (
			id    SERIAL PRIMARY KEY,
			label TEXT UNIQUE NOT NULL
		);

		CREATE TABLE IF NOT EXISTS property_types (
			id    SERIAL PRIMARY KEY,
			label TEXT UNIQUE NOT NULL
		);

		INSERT INTO operation_types (label) VALUES ('Venda'), ('Locação')
			ON CONFLICT (label) DO NOTHING;
		INSERT INTO property_types (label) VALUES
			('Apartamento'), ('Casa'), ('Terreno'), ('Sala Comercial'), ('Galpão'), ('Chácara')
			ON CONFLICT (label) DO NOTHING;

		CREATE TABLE IF NOT EXISTS listings (
			id               BIGSERIAL PRIMARY KEY,
			user_id          TEXT         NOT NULL,
			external_code    TEXT         NOT NULL,
			operation_id     BIGINT       NOT NULL DEFAULT 0,
			property_type_id BIGINT       NOT NULL DEFAULT 0,
			sale_price       NUMERIC(14,2) NOT NULL DEFAULT 0,
			rent_price       NUMERIC(14,2) NOT NULL DEFAULT 0,
			condo_fee        NUMERIC(14,2) NOT NULL DEFAULT 0,
			street           TEXT NOT NULL DEFAULT '',
			number           TEXT NOT NULL DEFAULT '',
			neighborhood     TEXT NOT NULL DEFAULT '',
			city             TEXT NOT NULL DEFAULT '',
			state            TEXT NOT NULL DEFAULT '',
			postal_code      TEXT NOT NULL DEFAULT '',
			private_area     NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_area       NUMERIC(12,2) NOT NULL DEFAULT 0,
			bedrooms         INT NOT NULL DEFAULT 0,
			suites           INT NOT NULL DEFAULT 0,
			bathrooms        INT NOT NULL DEFAULT 0,
			parking_spots    INT NOT NULL DEFAULT 0,
			title            TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			photos           TEXT NOT NULL DEFAULT '',
			videos           TEXT NOT NULL DEFAULT '',
			amenities        TEXT NOT NULL DEFAULT '',
			notes            TEXT NOT NULL DEFAULT '',
			status           VARCHAR(20) NOT NULL DEFAULT 'draft',
			latitude         DOUBLE PRECISION,
			longitude        DOUBLE PRECISION,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, external_code)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_user_status ON listings(user_id, status);
		CREATE INDEX IF NOT EXISTS idx_listings_status      ON listings(status);
	`)
	return err
}

func (ps *PostgresStore) taxonomy(ctx context.Context, table string) ([]models.TaxonomyRow, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT id, label FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: select %s: %w", table, err)
	}
	defer rows.Close()

	var result []models.TaxonomyRow
	for rows.Next() {
		var r models.TaxonomyRow
		if err := rows.Scan(&r.ID, &r.Label); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", table, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (ps *PostgresStore) OperationTypes(ctx context.Context) ([]models.TaxonomyRow, error) {
	return ps.taxonomy(ctx, "operation_types")
}

func (ps *PostgresStore) PropertyTypes(ctx context.Context) ([]models.TaxonomyRow, error) {
	return ps.taxonomy(ctx, "property_types")
}

// ExistingCodes runs the dedup gate as one in-list query.
func (ps *PostgresStore) ExistingCodes(ctx context.Context, userID string, codes []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return existing, nil
	}

	rows, err := ps.db.QueryContext(ctx,
		`SELECT external_code FROM listings WHERE user_id = $1 AND external_code = ANY($2)`,
		userID, pq.Array(codes))
	if err != nil {
		return nil, fmt.Errorf("postgres: existing codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("postgres: scan existing code: %w", err)
		}
		existing[code] = true
	}
	return existing, rows.Err()
}

// InsertBatch stages every listing into one multi-row INSERT. The duplicate
// gate runs before staging, so a conflicting row here means a concurrent
// import won the race; ON CONFLICT DO NOTHING keeps that benign.
func (ps *PostgresStore) InsertBatch(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	cols := []string{
		"user_id", "external_code", "operation_id", "property_type_id",
		"sale_price", "rent_price", "condo_fee",
		"street", "number", "neighborhood", "city", "state", "postal_code",
		"private_area", "total_area", "bedrooms", "suites", "bathrooms", "parking_spots",
		"title", "description", "photos", "videos", "amenities", "notes", "status",
	}

	valueStrings := make([]string, 0, len(listings))
	valueArgs := make([]interface{}, 0, len(listings)*len(cols))

	for idx, l := range listings {
		base := idx * len(cols)
		ph := make([]string, len(cols))
		for i := range ph {
			ph[i] = fmt.Sprintf("$%d", base+i+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.UserID, l.ExternalCode, l.OperationID, l.PropertyTypeID,
			l.SalePrice, l.RentPrice, l.CondoFee,
			l.Street, l.Number, l.Neighborhood, l.City, l.State, l.PostalCode,
			l.PrivateArea, l.TotalArea, l.Bedrooms, l.Suites, l.Bathrooms, l.ParkingSpots,
			l.Title, l.Description, l.Photos, l.Videos, l.Amenities, l.Notes, l.Status,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES %s
		ON CONFLICT (user_id, external_code) DO NOTHING
	`, strings.Join(cols, ", "), strings.Join(valueStrings, ","))

	if _, err := ps.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (ps *PostgresStore) selectListings(ctx context.Context, where string, args ...interface{}) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE ` + where + ` ORDER BY id`
	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ExternalCode, &l.OperationID, &l.PropertyTypeID,
			&l.SalePrice, &l.RentPrice, &l.CondoFee,
			&l.Street, &l.Number, &l.Neighborhood, &l.City, &l.State, &l.PostalCode,
			&l.PrivateArea, &l.TotalArea, &l.Bedrooms, &l.Suites, &l.Bathrooms, &l.ParkingSpots,
			&l.Title, &l.Description, &l.Photos, &l.Videos, &l.Amenities, &l.Notes,
			&l.Status, &l.Latitude, &l.Longitude, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (ps *PostgresStore) DraftsByUser(ctx context.Context, userID string, allUsers bool) ([]*models.Listing, error) {
	if allUsers {
		return ps.selectListings(ctx, `status = $1`, models.StatusDraft)
	}
	return ps.selectListings(ctx, `status = $1 AND user_id = $2`, models.StatusDraft, userID)
}

func (ps *PostgresStore) DraftsMissingCoordinates(ctx context.Context, userID string, allUsers bool) ([]*models.Listing, error) {
	if allUsers {
		return ps.selectListings(ctx, `status = $1 AND latitude IS NULL`, models.StatusDraft)
	}
	return ps.selectListings(ctx, `status = $1 AND latitude IS NULL AND user_id = $2`,
		models.StatusDraft, userID)
}

func (ps *PostgresStore) ListingsWithPhotos(ctx context.Context, userID string, allUsers bool) ([]*models.Listing, error) {
	if allUsers {
		return ps.selectListings(ctx, `photos <> ''`)
	}
	return ps.selectListings(ctx, `photos <> '' AND user_id = $1`, userID)
}

func (ps *PostgresStore) UpdateTexts(ctx context.Context, id int64, title, description string) error {
	_, err := ps.db.ExecContext(ctx,
		`UPDATE listings SET title = $1, description = $2 WHERE id = $3`,
		title, description, id)
	if err != nil {
		return fmt.Errorf("postgres: update texts (id %d): %w", id, err)
	}
	return nil
}

func (ps *PostgresStore) UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error {
	_, err := ps.db.ExecContext(ctx,
		`UPDATE listings SET latitude = $1, longitude = $2 WHERE id = $3`,
		lat, lon, id)
	if err != nil {
		return fmt.Errorf("postgres: update coordinates (id %d): %w", id, err)
	}
	return nil
}

func (ps *PostgresStore) UpdatePhotos(ctx context.Context, id int64, photos string) error {
	_, err := ps.db.ExecContext(ctx,
		`UPDATE listings SET photos = $1 WHERE id = $2`, photos, id)
	if err != nil {
		return fmt.Errorf("postgres: update photos (id %d): %w", id, err)
	}
	return nil
}

// PublishDrafts is the one bulk, irreversible statement in the pipeline.
func (ps *PostgresStore) PublishDrafts(ctx context.Context, userID string, allUsers bool) (int64, error) {
	var res sql.Result
	var err error
	if allUsers {
		res, err = ps.db.ExecContext(ctx,
			`UPDATE listings SET status = $1 WHERE status = $2`,
			models.StatusPublished, models.StatusDraft)
	} else {
		res, err = ps.db.ExecContext(ctx,
			`UPDATE listings SET status = $1 WHERE status = $2 AND user_id = $3`,
			models.StatusPublished, models.StatusDraft, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: publish drafts: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		ps.logger.Warn("Affected-row count unavailable: %v", err)
		return -1, nil
	}
	return count, nil
}

func (ps *PostgresStore) CountDrafts(ctx context.Context, userID string, allUsers bool) (int64, error) {
	var count int64
	var err error
	if allUsers {
		err = ps.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM listings WHERE status = $1`, models.StatusDraft).Scan(&count)
	} else {
		err = ps.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM listings WHERE status = $1 AND user_id = $2`,
			models.StatusDraft, userID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: count drafts: %w", err)
	}
	return count, nil
}

// Close closes the underlying connection pool.
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
