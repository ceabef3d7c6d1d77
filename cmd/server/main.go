package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-event-attendance/internal/config"
	"github.com/iliyamo/campus-event-attendance/internal/database"
	"github.com/iliyamo/campus-event-attendance/internal/engine"
	"github.com/iliyamo/campus-event-attendance/internal/handler"
	"github.com/iliyamo/campus-event-attendance/internal/middleware"
	"github.com/iliyamo/campus-event-attendance/internal/repository"
	"github.com/iliyamo/campus-event-attendance/internal/router"
	queuepub "github.com/iliyamo/campus-event-attendance/internal/service"
)

func main() {
	// Load a local .env when present; deployed environments set real vars.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the browse-response cache.  A nil
	// client disables both rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	attendance := repository.NewAttendanceRepo(db)

	eng := engine.New(store, queuepub.NewEngineNotifier())

	authH := handler.NewAuthHandler(cfg, users, tokens)
	eventH := handler.NewEventHandler(events)
	regH := handler.NewRegistrationHandler(eng, store, registrations)
	attH := handler.NewAttendanceHandler(eng, attendance, uint32(cfg.GeofenceRadius))

	e := echo.New()
	e.HideBanner = true

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, eventH, cacheMW)
	router.RegisterStudent(e, regH, attH, cfg.JWTSecret, limitMW)
	router.RegisterStaff(e, eventH, regH, attH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
