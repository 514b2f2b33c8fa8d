package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	middleware "github.com/oapi-codegen/echo-middleware"
	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/controller"
	"github.com/ostrovsky/estate-cms/internal/obs"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/util"
)

const (
	shutdownTimeout = 5 * time.Second

	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh"
)

type API struct {
	server          *echo.Echo
	controller      *controller.Controller
	auth            *service.AuthService
	log             *zap.SugaredLogger
	gracefulTimeout time.Duration
	loginLimiter    *LoginLimiter
	uploadCfg       *util.UploadConfig
	cleanupFuncs    []func()
}

func NewAPI(
	c *controller.Controller,
	auth *service.AuthService,
	sc *util.ServerConfig,
	rlCfg *util.RateLimiterConfig,
	uploadCfg *util.UploadConfig,
	l *zap.SugaredLogger,
	cleanupFuncs []func(),
) *API {
	e := echo.New()

	e.Server.Addr = sc.ServerAddr
	e.Server.WriteTimeout = sc.WriteTimeout
	e.Server.ReadTimeout = sc.ReadTimeout
	e.Server.IdleTimeout = sc.IdleTimeout
	e.HTTPErrorHandler = ErrorHandler(l)

	return &API{
		server:          e,
		controller:      c,
		auth:            auth,
		log:             l,
		gracefulTimeout: sc.GracefulTimeout,
		loginLimiter:    NewLoginLimiter(rlCfg),
		uploadCfg:       uploadCfg,
		cleanupFuncs:    cleanupFuncs,
	}
}

// Run wires middleware and routes, then serves until ctx is canceled.
func (a *API) Run(ctx context.Context) {
	swagger, err := controller.GetSwagger()
	if err != nil {
		a.log.Fatalf("Failed to load OpenAPI specification: %v", err)
	}
	swagger.Servers = nil

	a.server.Use(echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a.log)))
	a.server.Use(CSRFGuardMiddleware(loginPath, refreshPath))

	a.server.GET("/metrics", echo.WrapHandler(obs.Handler()))
	a.server.Static(a.uploadCfg.BaseURL, a.uploadCfg.Dir)

	g := a.server.Group("/api")
	g.Use(middleware.OapiRequestValidator(swagger))
	a.registerRoutes(g)

	go a.loginLimiter.janitor(ctx)

	a.ListenGracefulShutdown(ctx)
}

func (a *API) registerRoutes(g *echo.Group) {
	guard := AccessGuardMiddleware(a.auth)
	optional := OptionalAccessMiddleware(a.auth)

	g.GET("/ping", a.controller.CheckServer)

	auth := g.Group("/auth")
	auth.POST("/login", a.controller.Login, a.loginLimiter.Middleware())
	auth.POST("/refresh", a.controller.Refresh)
	auth.POST("/logout", a.controller.Logout)
	auth.GET("/csrf", a.controller.GetCSRF)

	g.GET("/properties", a.controller.ListProperties, optional)
	g.GET("/properties/carousel", a.controller.GetCarousel)
	g.GET("/properties/:id", a.controller.GetProperty)
	g.POST("/properties", a.controller.CreateProperty, guard)
	g.PUT("/properties/:id", a.controller.UpdateProperty, guard)
	g.DELETE("/properties/:id", a.controller.DeleteProperty, guard)

	g.GET("/reviews", a.controller.ListReviews, optional)
	g.GET("/reviews/:id", a.controller.GetReview)
	g.POST("/reviews", a.controller.CreateReview, guard)
	g.PUT("/reviews/:id", a.controller.UpdateReview, guard)
	g.DELETE("/reviews/:id", a.controller.DeleteReview, guard)

	g.GET("/services", a.controller.ListServices, optional)
	g.GET("/services/:id", a.controller.GetService)
	g.POST("/services", a.controller.CreateService, guard)
	g.PUT("/services/:id", a.controller.UpdateService, guard)
	g.DELETE("/services/:id", a.controller.DeleteService, guard)

	g.GET("/hero", a.controller.GetHero)
	g.PUT("/hero", a.controller.UpdateHero, guard)
	g.GET("/about", a.controller.GetAbout)
	g.PUT("/about", a.controller.UpdateAbout, guard)
	g.GET("/contact", a.controller.GetContact)
	g.PUT("/contact", a.controller.UpdateContact, guard)

	g.POST("/upload", a.controller.Upload, guard)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infof("Listening on: %s", a.server.Server.Addr)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Errorf("shutdown: %v", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	longShutdown := make(chan struct{}, 1)

	go func() {
		time.Sleep(a.gracefulTimeout)
		longShutdown <- struct{}{}
	}()

	select {
	case <-shutdownCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			a.log.Info("server shutdown completed")
		} else {
			a.log.Errorf("server shutdown: %v", ctx.Err())
		}
	case <-longShutdown:
		a.log.Infof("finished")
	}
}
