package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statuskeep/statuskeep/internal/alerting/gateway"
	"github.com/statuskeep/statuskeep/internal/config"
	"github.com/statuskeep/statuskeep/internal/database"
	deployapi "github.com/statuskeep/statuskeep/internal/deploy/api"
	deploydb "github.com/statuskeep/statuskeep/internal/deploy/database"
	deploysvc "github.com/statuskeep/statuskeep/internal/deploy/service"
	"github.com/statuskeep/statuskeep/internal/middleware"
	probeapi "github.com/statuskeep/statuskeep/internal/probe/api"
	probedb "github.com/statuskeep/statuskeep/internal/probe/database"
	probesvc "github.com/statuskeep/statuskeep/internal/probe/service"
	"github.com/statuskeep/statuskeep/internal/pubsub"
	"github.com/statuskeep/statuskeep/internal/queue"
	statusapi "github.com/statuskeep/statuskeep/internal/status/api"
	statusdb "github.com/statuskeep/statuskeep/internal/status/database"
	"github.com/statuskeep/statuskeep/internal/status/service/aggregator"
	"github.com/statuskeep/statuskeep/internal/status/service/dispatch"
	"github.com/statuskeep/statuskeep/internal/status/service/normalizer"
)

func main() {
	log.Info().Msg("Starting statuskeep api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := database.New(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	statusStore := statusdb.NewStore(db)
	probeStore := probedb.NewStore(db)
	deployStore := deploydb.NewStore(db)

	redisQueue := queue.NewRedisQueue(rdb)
	publisher := pubsub.NewRedisPublisher(rdb)

	alertGateway := gateway.New(redisQueue)
	norm := normalizer.New(statusStore, publisher, alertGateway)
	agg := aggregator.New(statusStore, cfg.Status.MaxWindowDays, cfg.Status.MaxHourlyBuckets)
	coordinator := probesvc.NewCoordinator(probeStore, norm,
		probesvc.NewRedisLiveness(rdb, 5*time.Minute), cfg.Probe.JobPullLimit)
	correlator := deploysvc.NewCorrelator(deployStore, statusStore, redisQueue,
		parseDuration(cfg.Deploy.CorrelationDelay, 5*time.Minute), cfg.Deploy.FreezeEnabled)

	go dispatch.StartScheduler(ctx, dispatch.Deps{
		Monitors: statusStore,
		Jobs:     probeStore,
		Queue:    redisQueue,
		Batch:    cfg.Status.DispatchBatch,
		Interval: parseDuration(cfg.Status.DispatchInterval, 15*time.Second),
		JobTTL:   parseDuration(cfg.Probe.JobTTL, 5*time.Minute),
	})
	go redisQueue.StartPromoter(ctx, time.Second, deploysvc.AutoCorrelateQueue)

	router := gin.New()
	router.Use(middleware.RequestLogger)
	router.Use(gin.Recovery())

	statusapi.New(router, statusStore, agg, norm)
	probeapi.New(router, coordinator)
	deployapi.New(router, correlator, deployStore)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"ok": false})
			return
		}
		c.JSON(200, gin.H{"ok": true})
	})

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start statuskeep api server failed.")
	}
	log.Info().Msg("statuskeep api server exit...")
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
