package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/vedi-app/venue-sync/internal/config"
	"github.com/vedi-app/venue-sync/internal/handler"
	"github.com/vedi-app/venue-sync/internal/middleware"
	"github.com/vedi-app/venue-sync/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth        *handler.AuthHandler
	Entities    *handler.EntityHandler
	Eligibility *handler.EligibilityHandler
	Requests    *handler.RequestHandler
	Invitations *handler.InvitationHandler
	Sync        *handler.SyncHandler
	Discovery   *handler.DiscoveryHandler
	Activity    *handler.ActivityHandler
}

// Register wires every route onto the Echo instance.  Three tiers:
// unauthenticated routes (health, auth, invite-code validation, rate
// limited), authenticated routes shared by both roles, and role-gated
// workflow routes.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.CacheJSON(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Session endpoints need no token; the limiter keeps credential
	// stuffing and code scanning in check.
	auth := e.Group("/v1/auth", limiter)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	// Invite codes are redeemed out-of-band by recipients who may have
	// no account yet, so validation is public.
	e.GET("/v1/invitations/code/:code", h.Invitations.ValidateCode, limiter)

	// Everything below requires a valid access token with one of the
	// two application roles.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(model.RoleRestaurant, model.RoleVenueManager))

	v1.GET("/me", h.Auth.Me)
	v1.POST("/logout", h.Auth.Logout)

	// Entities.
	v1.POST("/restaurants", h.Entities.CreateRestaurant, middleware.RequireRole(model.RoleRestaurant))
	v1.GET("/restaurants/:id", h.Entities.GetRestaurant)
	v1.PUT("/restaurants/:id", h.Entities.UpdateRestaurant, middleware.RequireRole(model.RoleRestaurant))
	v1.POST("/venues", h.Entities.CreateVenue, middleware.RequireRole(model.RoleVenueManager))
	v1.GET("/venues/:id", h.Entities.GetVenue)
	v1.PUT("/venues/:id", h.Entities.UpdateVenue, middleware.RequireRole(model.RoleVenueManager))
	v1.GET("/venues/:id/restaurants", h.Entities.ListVenueRestaurants, middleware.RequireRole(model.RoleVenueManager))

	// Discovery and eligibility are read paths; discovery responses are
	// cached briefly since browse listings tolerate slight staleness.
	v1.GET("/venues/available", h.Discovery.Available, cache)
	v1.GET("/venues/:id/eligibility", h.Eligibility.Check)

	// Request workflow.
	v1.POST("/venues/:id/requests", h.Requests.Create, middleware.RequireRole(model.RoleRestaurant))
	v1.GET("/my-requests", h.Requests.ListMine, middleware.RequireRole(model.RoleRestaurant))
	v1.DELETE("/requests/:id", h.Requests.Cancel, middleware.RequireRole(model.RoleRestaurant))
	v1.GET("/venues/:id/requests", h.Requests.ListForVenue, middleware.RequireRole(model.RoleVenueManager))
	v1.POST("/requests/:id/approve", h.Requests.Approve, middleware.RequireRole(model.RoleVenueManager))
	v1.POST("/requests/:id/deny", h.Requests.Deny, middleware.RequireRole(model.RoleVenueManager))

	// Invitation workflow.
	v1.POST("/venues/:id/invitations", h.Invitations.Create, middleware.RequireRole(model.RoleVenueManager))
	v1.GET("/venues/:id/invitations", h.Invitations.ListForVenue, middleware.RequireRole(model.RoleVenueManager))
	v1.DELETE("/invitations/:id", h.Invitations.Cancel, middleware.RequireRole(model.RoleVenueManager))
	v1.POST("/invitations/:id/accept", h.Invitations.Accept, middleware.RequireRole(model.RoleRestaurant))
	v1.POST("/invitations/:id/decline", h.Invitations.Decline, middleware.RequireRole(model.RoleRestaurant))

	// Direct association management.
	v1.POST("/restaurants/:id/sync", h.Sync.Sync)
	v1.POST("/restaurants/:id/unsync", h.Sync.Unsync)

	// Activity dashboards.
	v1.GET("/venues/:id/activity", h.Activity.VenueActivity, middleware.RequireRole(model.RoleVenueManager))
	v1.GET("/restaurants/:id/activity", h.Activity.RestaurantActivity, middleware.RequireRole(model.RoleRestaurant))
}
