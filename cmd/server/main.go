package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/api"
	"github.com/ostrovsky/estate-cms/internal/controller"
	"github.com/ostrovsky/estate-cms/internal/migrations"
	"github.com/ostrovsky/estate-cms/internal/obs"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/storage"
	"github.com/ostrovsky/estate-cms/internal/storage/blob"
	"github.com/ostrovsky/estate-cms/internal/storage/postgres"
	"github.com/ostrovsky/estate-cms/internal/storage/redis"
	"github.com/ostrovsky/estate-cms/internal/util"

	_ "github.com/lib/pq"
)

const purgeInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatal(zap.Error(err))
	}
	cleanupFuncs := []func(){dbCleanup}

	var denylist storage.AccessTokenDenylist
	if redisCfg := util.NewRedisConfig(); redisCfg != nil {
		redisClient, redisCleanup, err := util.NewRedisClient(logger, redisCfg)
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		denylist = redis.NewDenylist(redisClient)
		cleanupFuncs = append(cleanupFuncs, redisCleanup)
	} else {
		logger.Info("REDIS_ADDR not set, access token denylist disabled")
	}

	uploadCfg := util.NewUploadConfig()
	blobStore, err := blob.NewLocalStore(uploadCfg.Dir, uploadCfg.BaseURL)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	store := postgres.NewStorage(db)

	tokenService := service.NewTokenService(util.NewTokenConfig())
	webhookService := service.NewWebhookService(logger, util.GetWebhookURL())
	authService := service.NewAuthService(tokenService, store, store, denylist, webhookService, logger)
	contentService := service.NewContentService(store)

	obs.Init()

	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authService.PurgeExpired(ctx)
			}
		}
	}()

	ctrl := controller.NewController(logger, authService, contentService, blobStore, util.NewCookieConfig(), uploadCfg)

	apiServer := api.NewAPI(ctrl, authService, util.NewServerConfig(), util.NewRateLimiterConfig(), uploadCfg, logger, cleanupFuncs)
	apiServer.Run(ctx)
}
