package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-directory/internal/config"
	apihttp "company-directory/internal/http"
	"company-directory/internal/repository"
	"company-directory/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err), zap.String("driver", cfg.DBDriver))
	}
	defer store.Close()

	var loginLimiter service.LoginLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory login limiter", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginLimiter(redisClient, cfg.LoginWindow, cfg.LoginMaxAttempt)
		}
		cancel()
	}
	if loginLimiter == nil {
		loginLimiter = service.NewLoginLimiter(cfg.LoginWindow, cfg.LoginMaxAttempt)
	}

	sessionSvc := service.NewSessionService(logger, store.Sessions, cfg.SessionTTL)
	sessionSvc.StartSweeper(ctx, cfg.SessionSweep)
	authSvc := service.NewAuthService(logger, store.Users, sessionSvc, loginLimiter)
	companySvc := service.NewCompanyService(logger, store.Companies, cfg.MaxImportItems)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	authn := apihttp.NewAuthenticator(logger, sessionSvc)
	router := apihttp.NewRouter(logger,
		apihttp.RouterConfig{MaxBodyBytes: cfg.MaxBodyBytes, HealthCheck: store.Ping},
		authn,
		apihttp.NewAuthHandler(logger, authSvc, sessionSvc),
		apihttp.NewCompanyHandler(logger, companySvc, authn),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err), zap.String("addr", server.Addr))
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("driver", cfg.DBDriver),
	)

	if err := runServer(ctx, server, ln, cfg.ShutdownTimeout); err != nil {
		logger.Error("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
