package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/vedi-app/venue-sync/internal/config"
	"github.com/vedi-app/venue-sync/internal/database"
	"github.com/vedi-app/venue-sync/internal/handler"
	"github.com/vedi-app/venue-sync/internal/queue"
	"github.com/vedi-app/venue-sync/internal/repository"
	"github.com/vedi-app/venue-sync/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	// Repositories.
	restaurants := repository.NewRestaurantRepo(db)
	venues := repository.NewVenueRepo(db)
	requests := repository.NewVenueRequestRepo(db)
	invitations := repository.NewVenueInvitationRepo(db)
	sync := repository.NewSyncRepo(db, restaurants, venues, requests, invitations)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	activity := repository.NewActivityRepo(db)

	// Background consumer draining activity events into the activity
	// tables.  It reconnects on broker failures and never blocks the
	// request path.
	go func() {
		if err := queue.StartActivityConsumer(db); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(users, tokens, cfg),
		Entities:    handler.NewEntityHandler(restaurants, venues),
		Eligibility: handler.NewEligibilityHandler(restaurants, venues, requests),
		Requests:    handler.NewRequestHandler(restaurants, venues, requests, sync),
		Invitations: handler.NewInvitationHandler(restaurants, venues, invitations, sync, cfg.InviteBaseURL),
		Sync:        handler.NewSyncHandler(restaurants, venues, sync),
		Discovery:   handler.NewDiscoveryHandler(restaurants, venues),
		Activity:    handler.NewActivityHandler(activity, restaurants, venues),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
