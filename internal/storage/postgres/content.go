package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage"
)

// ContentRepository backs properties, reviews, services and the singleton
// content blocks. Public reads filter on status = 'published'.
type ContentRepository struct {
	db storage.DBTX
}

func NewContentRepository(db storage.DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

const propertyColumns = `id, image, alt, address, price, bedrooms, bathrooms, sqft, link, sort_order,
	featured, featured_order, featured_image, status, created_at, updated_at`

func scanProperty(s interface{ Scan(...any) error }) (*models.Property, error) {
	var p models.Property
	err := s.Scan(
		&p.ID, &p.Image, &p.Alt, &p.Address, &p.Price, &p.Bedrooms, &p.Bathrooms,
		&p.Sqft, &p.Link, &p.Order, &p.Featured, &p.FeaturedOrder, &p.FeaturedImage,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ContentRepository) ListProperties(ctx context.Context, publishedOnly bool) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties`
	if publishedOnly {
		query += ` WHERE status = 'published'`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ContentRepository) ListFeaturedProperties(ctx context.Context) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties
		WHERE featured = TRUE AND status = 'published' ORDER BY featured_order, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list featured properties: %w", err)
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ContentRepository) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	p, err := scanProperty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get property by id: %w", err)
	}
	return p, nil
}

func (r *ContentRepository) CreateProperty(ctx context.Context, p models.Property) (*models.Property, error) {
	query := `INSERT INTO properties (image, alt, address, price, bedrooms, bathrooms, sqft, link, sort_order,
			featured, featured_order, featured_image, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + propertyColumns
	created, err := scanProperty(r.db.QueryRowContext(ctx, query,
		p.Image, p.Alt, p.Address, p.Price, p.Bedrooms, p.Bathrooms, p.Sqft, p.Link,
		p.Order, p.Featured, p.FeaturedOrder, p.FeaturedImage, p.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	return created, nil
}

func (r *ContentRepository) UpdateProperty(ctx context.Context, p models.Property) (*models.Property, error) {
	query := `UPDATE properties SET image = $2, alt = $3, address = $4, price = $5, bedrooms = $6,
			bathrooms = $7, sqft = $8, link = $9, sort_order = $10, featured = $11,
			featured_order = $12, featured_image = $13, status = $14, updated_at = now()
		WHERE id = $1 RETURNING ` + propertyColumns
	updated, err := scanProperty(r.db.QueryRowContext(ctx, query,
		p.ID, p.Image, p.Alt, p.Address, p.Price, p.Bedrooms, p.Bathrooms, p.Sqft,
		p.Link, p.Order, p.Featured, p.FeaturedOrder, p.FeaturedImage, p.Status,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update property: %w", err)
	}
	return updated, nil
}

func (r *ContentRepository) DeleteProperty(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "properties", id)
}

const reviewColumns = `id, name, title, rating, comment, sort_order, status, created_at, updated_at`

func scanReview(s interface{ Scan(...any) error }) (*models.Review, error) {
	var rev models.Review
	err := s.Scan(&rev.ID, &rev.Name, &rev.Title, &rev.Rating, &rev.Comment,
		&rev.Order, &rev.Status, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (r *ContentRepository) ListReviews(ctx context.Context, publishedOnly bool) ([]models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	if publishedOnly {
		query += ` WHERE status = 'published'`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []models.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, *rev)
	}
	return out, rows.Err()
}

func (r *ContentRepository) GetReviewByID(ctx context.Context, id int64) (*models.Review, error) {
	rev, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return rev, nil
}

func (r *ContentRepository) CreateReview(ctx context.Context, rev models.Review) (*models.Review, error) {
	query := `INSERT INTO reviews (name, title, rating, comment, sort_order, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + reviewColumns
	created, err := scanReview(r.db.QueryRowContext(ctx, query,
		rev.Name, rev.Title, rev.Rating, rev.Comment, rev.Order, rev.Status))
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return created, nil
}

func (r *ContentRepository) UpdateReview(ctx context.Context, rev models.Review) (*models.Review, error) {
	query := `UPDATE reviews SET name = $2, title = $3, rating = $4, comment = $5, sort_order = $6,
			status = $7, updated_at = now()
		WHERE id = $1 RETURNING ` + reviewColumns
	updated, err := scanReview(r.db.QueryRowContext(ctx, query,
		rev.ID, rev.Name, rev.Title, rev.Rating, rev.Comment, rev.Order, rev.Status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return updated, nil
}

func (r *ContentRepository) DeleteReview(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "reviews", id)
}

const serviceColumns = `id, title, description, image, sort_order, status, created_at, updated_at`

func scanService(s interface{ Scan(...any) error }) (*models.Service, error) {
	var svc models.Service
	err := s.Scan(&svc.ID, &svc.Title, &svc.Description, &svc.Image,
		&svc.Order, &svc.Status, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *ContentRepository) ListServices(ctx context.Context, publishedOnly bool) ([]models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if publishedOnly {
		query += ` WHERE status = 'published'`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, *svc)
	}
	return out, rows.Err()
}

func (r *ContentRepository) GetServiceByID(ctx context.Context, id int64) (*models.Service, error) {
	svc, err := scanService(r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}
	return svc, nil
}

func (r *ContentRepository) CreateService(ctx context.Context, svc models.Service) (*models.Service, error) {
	query := `INSERT INTO services (title, description, image, sort_order, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + serviceColumns
	created, err := scanService(r.db.QueryRowContext(ctx, query,
		svc.Title, svc.Description, svc.Image, svc.Order, svc.Status))
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return created, nil
}

func (r *ContentRepository) UpdateService(ctx context.Context, svc models.Service) (*models.Service, error) {
	query := `UPDATE services SET title = $2, description = $3, image = $4, sort_order = $5,
			status = $6, updated_at = now()
		WHERE id = $1 RETURNING ` + serviceColumns
	updated, err := scanService(r.db.QueryRowContext(ctx, query,
		svc.ID, svc.Title, svc.Description, svc.Image, svc.Order, svc.Status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update service: %w", err)
	}
	return updated, nil
}

func (r *ContentRepository) DeleteService(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "services", id)
}

func (r *ContentRepository) GetContentBlock(ctx context.Context, name string) (json.RawMessage, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM content_blocks WHERE name = $1`, name).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get content block %s: %w", name, err)
	}
	return doc, nil
}

func (r *ContentRepository) UpsertContentBlock(ctx context.Context, name string, doc json.RawMessage) error {
	query := `INSERT INTO content_blocks (name, doc) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`
	if _, err := r.db.ExecContext(ctx, query, name, []byte(doc)); err != nil {
		return fmt.Errorf("upsert content block %s: %w", name, err)
	}
	return nil
}

func (r *ContentRepository) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
