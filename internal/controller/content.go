package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/storage"
	"github.com/ostrovsky/estate-cms/internal/util"
)

func notFoundAs(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return util.NewResponseError(http.StatusNotFound, "%s not found", what)
	}
	return err
}

// (GET /api/properties). Anonymous callers see published documents only;
// a valid bearer token includes drafts.
func (c *Controller) ListProperties(ctx echo.Context) error {
	_, authed := identityFromContext(ctx)
	properties, err := c.contentService.ListProperties(ctx.Request().Context(), authed)
	if err != nil {
		return err
	}
	return ok(ctx, properties)
}

// (GET /api/properties/carousel).
func (c *Controller) GetCarousel(ctx echo.Context) error {
	properties, err := c.contentService.ListCarousel(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ok(ctx, properties)
}

// (GET /api/properties/:id).
func (c *Controller) GetProperty(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	property, err := c.contentService.GetProperty(ctx.Request().Context(), id)
	if err != nil {
		return notFoundAs(err, "Property")
	}
	return ok(ctx, property)
}

// (POST /api/properties).
func (c *Controller) CreateProperty(ctx echo.Context) error {
	var p models.Property
	if err := ctx.Bind(&p); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	created, err := c.contentService.CreateProperty(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	return ok(ctx, created)
}

// (PUT /api/properties/:id).
func (c *Controller) UpdateProperty(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var p models.Property
	if err := ctx.Bind(&p); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	updated, err := c.contentService.UpdateProperty(ctx.Request().Context(), p)
	if err != nil {
		return notFoundAs(err, "Property")
	}
	return ok(ctx, updated)
}

// (DELETE /api/properties/:id).
func (c *Controller) DeleteProperty(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := c.contentService.DeleteProperty(ctx.Request().Context(), id); err != nil {
		return notFoundAs(err, "Property")
	}
	return ok(ctx, nil)
}

// (GET /api/reviews).
func (c *Controller) ListReviews(ctx echo.Context) error {
	_, authed := identityFromContext(ctx)
	reviews, err := c.contentService.ListReviews(ctx.Request().Context(), authed)
	if err != nil {
		return err
	}
	return ok(ctx, reviews)
}

// (GET /api/reviews/:id).
func (c *Controller) GetReview(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	review, err := c.contentService.GetReview(ctx.Request().Context(), id)
	if err != nil {
		return notFoundAs(err, "Review")
	}
	return ok(ctx, review)
}

// (POST /api/reviews).
func (c *Controller) CreateReview(ctx echo.Context) error {
	var r models.Review
	if err := ctx.Bind(&r); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	created, err := c.contentService.CreateReview(ctx.Request().Context(), r)
	if err != nil {
		return err
	}
	return ok(ctx, created)
}

// (PUT /api/reviews/:id).
func (c *Controller) UpdateReview(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var r models.Review
	if err := ctx.Bind(&r); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	r.ID = id
	updated, err := c.contentService.UpdateReview(ctx.Request().Context(), r)
	if err != nil {
		return notFoundAs(err, "Review")
	}
	return ok(ctx, updated)
}

// (DELETE /api/reviews/:id).
func (c *Controller) DeleteReview(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := c.contentService.DeleteReview(ctx.Request().Context(), id); err != nil {
		return notFoundAs(err, "Review")
	}
	return ok(ctx, nil)
}

// (GET /api/services).
func (c *Controller) ListServices(ctx echo.Context) error {
	_, authed := identityFromContext(ctx)
	services, err := c.contentService.ListServices(ctx.Request().Context(), authed)
	if err != nil {
		return err
	}
	return ok(ctx, services)
}

// (GET /api/services/:id).
func (c *Controller) GetService(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	svc, err := c.contentService.GetService(ctx.Request().Context(), id)
	if err != nil {
		return notFoundAs(err, "Service")
	}
	return ok(ctx, svc)
}

// (POST /api/services).
func (c *Controller) CreateService(ctx echo.Context) error {
	var s models.Service
	if err := ctx.Bind(&s); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	created, err := c.contentService.CreateService(ctx.Request().Context(), s)
	if err != nil {
		return err
	}
	return ok(ctx, created)
}

// (PUT /api/services/:id).
func (c *Controller) UpdateService(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var s models.Service
	if err := ctx.Bind(&s); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	s.ID = id
	updated, err := c.contentService.UpdateService(ctx.Request().Context(), s)
	if err != nil {
		return notFoundAs(err, "Service")
	}
	return ok(ctx, updated)
}

// (DELETE /api/services/:id).
func (c *Controller) DeleteService(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := c.contentService.DeleteService(ctx.Request().Context(), id); err != nil {
		return notFoundAs(err, "Service")
	}
	return ok(ctx, nil)
}

// (GET /api/hero).
func (c *Controller) GetHero(ctx echo.Context) error {
	hero, err := c.contentService.GetHero(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ok(ctx, hero)
}

// (PUT /api/hero).
func (c *Controller) UpdateHero(ctx echo.Context) error {
	var h models.Hero
	if err := ctx.Bind(&h); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.contentService.SetHero(ctx.Request().Context(), h); err != nil {
		return err
	}
	return ok(ctx, h)
}

// (GET /api/about).
func (c *Controller) GetAbout(ctx echo.Context) error {
	about, err := c.contentService.GetAbout(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ok(ctx, about)
}

// (PUT /api/about).
func (c *Controller) UpdateAbout(ctx echo.Context) error {
	var a models.About
	if err := ctx.Bind(&a); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.contentService.SetAbout(ctx.Request().Context(), a); err != nil {
		return err
	}
	return ok(ctx, a)
}

// (GET /api/contact).
func (c *Controller) GetContact(ctx echo.Context) error {
	contact, err := c.contentService.GetContact(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ok(ctx, contact)
}

// (PUT /api/contact).
func (c *Controller) UpdateContact(ctx echo.Context) error {
	var contact models.Contact
	if err := ctx.Bind(&contact); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.contentService.SetContact(ctx.Request().Context(), contact); err != nil {
		return err
	}
	return ok(ctx, contact)
}
