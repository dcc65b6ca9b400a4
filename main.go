package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	apirest "github.com/wirdapp/server/api/rest"
	"github.com/wirdapp/server/api/sse"
	"github.com/wirdapp/server/audit"
	"github.com/wirdapp/server/cache"
	"github.com/wirdapp/server/config"
	dbadapter "github.com/wirdapp/server/db"
	mw "github.com/wirdapp/server/middleware"
	"github.com/wirdapp/server/model"
	"github.com/wirdapp/server/scheduler"
	"github.com/wirdapp/server/seed"
	"github.com/wirdapp/server/social"
	"github.com/wirdapp/server/streak"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Services ----
	socialSvc := social.NewService(db, logger)
	streakSvc := streak.NewService(db, socialSvc, pubsub, cfg.Streak.MutualWindow, logger)

	if cfg.Streak.RecomputeInterval > 0 {
		sched.AddTicker("streak_recompute", cfg.Streak.RecomputeInterval, func() {
			if _, err := streakSvc.RecomputeAll(context.Background()); err != nil {
				logger.Error("scheduled streak recompute failed", zap.Error(err))
			}
		})
	}

	// ---- Demo Seed ----
	if cfg.Server.SeedDemoData {
		if err := seed.Run(context.Background(), db, streakSvc, logger); err != nil {
			logger.Error("demo seed failed", zap.Error(err))
		}
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security, auditSvc)
	friendsH := apirest.NewFriendsHandler(socialSvc, auditSvc)
	streakH := apirest.NewStreakHandler(streakSvc, auditSvc)
	rankH := apirest.NewRankingHandler(db, c, streakSvc.Window(), logger)
	adminH := apirest.NewAdminHandler(db, streakSvc, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(cfg.Security, c))
		friendsG.GET("", friendsH.List)
		friendsG.POST("/request", friendsH.SendRequest)
		friendsG.GET("/requests", friendsH.ListRequests)
		friendsG.POST("/requests/:id/accept", friendsH.Accept)
		friendsG.POST("/requests/:id/reject", friendsH.Reject)

		streaksG := api.Group("")
		streaksG.Use(mw.Auth(cfg.Security, c))
		streaksG.POST("/recitations", streakH.Mark)
		streaksG.GET("/streaks", streakH.List)

		rankG := api.Group("/ranking")
		rankG.GET("/streaks", rankH.TopStreaks)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/streaks/recompute", adminH.RecomputeStreaks)
		adminG.POST("/ranking/refresh", rankH.Refresh)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
