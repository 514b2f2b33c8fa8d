package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage"
	"github.com/ostrovsky/estate-cms/internal/util"
)

const (
	BlockHero    = "hero"
	BlockAbout   = "about"
	BlockContact = "contact"
)

// ContentService fronts the resource-CRUD collaborator: properties, reviews,
// services and the singleton content blocks, with draft/published gating for
// public reads.
type ContentService struct {
	store storage.Storage
}

func NewContentService(store storage.Storage) *ContentService {
	return &ContentService{store: store}
}

func normalizeStatus(status string) (string, error) {
	switch status {
	case "":
		return models.StatusPublished, nil
	case models.StatusDraft, models.StatusPublished:
		return status, nil
	default:
		return "", util.NewResponseError(http.StatusBadRequest, "status must be draft or published")
	}
}

func (c *ContentService) ListProperties(ctx context.Context, includeDrafts bool) ([]models.Property, error) {
	return c.store.ListProperties(ctx, !includeDrafts)
}

func (c *ContentService) ListCarousel(ctx context.Context) ([]models.Property, error) {
	return c.store.ListFeaturedProperties(ctx)
}

func (c *ContentService) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	return c.store.GetPropertyByID(ctx, id)
}

func (c *ContentService) CreateProperty(ctx context.Context, p models.Property) (*models.Property, error) {
	if p.Image == "" || p.Alt == "" || p.Price == "" {
		return nil, util.NewResponseError(http.StatusBadRequest, "image, alt and price are required")
	}
	status, err := normalizeStatus(p.Status)
	if err != nil {
		return nil, err
	}
	p.Status = status
	return c.store.CreateProperty(ctx, p)
}

func (c *ContentService) UpdateProperty(ctx context.Context, p models.Property) (*models.Property, error) {
	status, err := normalizeStatus(p.Status)
	if err != nil {
		return nil, err
	}
	p.Status = status
	return c.store.UpdateProperty(ctx, p)
}

func (c *ContentService) DeleteProperty(ctx context.Context, id int64) error {
	return c.store.DeleteProperty(ctx, id)
}

func (c *ContentService) ListReviews(ctx context.Context, includeDrafts bool) ([]models.Review, error) {
	return c.store.ListReviews(ctx, !includeDrafts)
}

func (c *ContentService) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	return c.store.GetReviewByID(ctx, id)
}

func (c *ContentService) CreateReview(ctx context.Context, r models.Review) (*models.Review, error) {
	if err := validateReview(&r); err != nil {
		return nil, err
	}
	return c.store.CreateReview(ctx, r)
}

func (c *ContentService) UpdateReview(ctx context.Context, r models.Review) (*models.Review, error) {
	if err := validateReview(&r); err != nil {
		return nil, err
	}
	return c.store.UpdateReview(ctx, r)
}

func validateReview(r *models.Review) error {
	if r.Name == "" || r.Title == "" || r.Comment == "" {
		return util.NewResponseError(http.StatusBadRequest, "name, title and comment are required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return util.NewResponseError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	status, err := normalizeStatus(r.Status)
	if err != nil {
		return err
	}
	r.Status = status
	return nil
}

func (c *ContentService) DeleteReview(ctx context.Context, id int64) error {
	return c.store.DeleteReview(ctx, id)
}

func (c *ContentService) ListServices(ctx context.Context, includeDrafts bool) ([]models.Service, error) {
	return c.store.ListServices(ctx, !includeDrafts)
}

func (c *ContentService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	return c.store.GetServiceByID(ctx, id)
}

func (c *ContentService) CreateService(ctx context.Context, s models.Service) (*models.Service, error) {
	if s.Title == "" || s.Description == "" || s.Image == "" {
		return nil, util.NewResponseError(http.StatusBadRequest, "title, description and image are required")
	}
	status, err := normalizeStatus(s.Status)
	if err != nil {
		return nil, err
	}
	s.Status = status
	return c.store.CreateService(ctx, s)
}

func (c *ContentService) UpdateService(ctx context.Context, s models.Service) (*models.Service, error) {
	status, err := normalizeStatus(s.Status)
	if err != nil {
		return nil, err
	}
	s.Status = status
	return c.store.UpdateService(ctx, s)
}

func (c *ContentService) DeleteService(ctx context.Context, id int64) error {
	return c.store.DeleteService(ctx, id)
}

// getBlock decodes a singleton block into dst; a missing block leaves dst at
// its zero value so public pages render before the admin has saved anything.
func (c *ContentService) getBlock(ctx context.Context, name string, dst any) error {
	doc, err := c.store.GetContentBlock(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("decode %s block: %w", name, err)
	}
	return nil
}

func (c *ContentService) setBlock(ctx context.Context, name string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s block: %w", name, err)
	}
	return c.store.UpsertContentBlock(ctx, name, doc)
}

func (c *ContentService) GetHero(ctx context.Context) (*models.Hero, error) {
	var h models.Hero
	if err := c.getBlock(ctx, BlockHero, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *ContentService) SetHero(ctx context.Context, h models.Hero) error {
	if h.Title == "" || h.Subtitle == "" {
		return util.NewResponseError(http.StatusBadRequest, "title and subtitle are required")
	}
	return c.setBlock(ctx, BlockHero, h)
}

func (c *ContentService) GetAbout(ctx context.Context) (*models.About, error) {
	var a models.About
	if err := c.getBlock(ctx, BlockAbout, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *ContentService) SetAbout(ctx context.Context, a models.About) error {
	if a.Header == "" || a.TextContent == "" || a.ButtonText == "" {
		return util.NewResponseError(http.StatusBadRequest, "header, textContent and buttonText are required")
	}
	return c.setBlock(ctx, BlockAbout, a)
}

func (c *ContentService) GetContact(ctx context.Context) (*models.Contact, error) {
	var ct models.Contact
	if err := c.getBlock(ctx, BlockContact, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (c *ContentService) SetContact(ctx context.Context, ct models.Contact) error {
	if ct.Email == "" || ct.Phone == "" || ct.Address == "" || ct.Description == "" {
		return util.NewResponseError(http.StatusBadRequest, "email, phone, address and description are required")
	}
	return c.setBlock(ctx, BlockContact, ct)
}
