package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// The Redis token store is a hard dependency: without it no session can
	// be issued or revoked, so startup fails instead of degrading.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	histories := repository.NewAuthHistoryRepo(db)
	socials := repository.NewSocialAccountRepo(db)

	tokens := storage.NewRedisTokenStorage(rdb, cfg.RefreshTTL)
	publisher := queue.NewPublisher()

	accounts := service.NewAccountsService(
		users, histories, tokens, publisher,
		cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.BlacklistTTL, cfg.BcryptCost,
	)
	oauthSvc := service.NewOauthService(users, socials, roles, accounts, cfg.BcryptCost)

	authHandler := handler.NewAuthHandler(cfg, accounts, users, roles)
	userHandler := handler.NewUserHandler(accounts, users, histories)
	adminHandler := handler.NewAdminHandler(roles, users)
	oauthHandler := handler.NewOauthHandler(config.LoadOAuthProviders(), oauthSvc)

	e := echo.New()
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, userHandler, cfg.JWTSecret, tokens)
	router.RegisterOauth(e, oauthHandler)
	router.RegisterAdmin(e, adminHandler, cfg.JWTSecret, tokens)

	// Background consumer draining login events into logs/auth.log.
	go func() {
		if err := queue.StartLoginConsumer(); err != nil {
			log.Printf("login consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
