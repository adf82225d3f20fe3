package restapi

import (
	"time"

	"transitdecode.org/hafas/internal/app"
)

// DefaultMaxBodyBytes bounds the size of a backend response posted for decoding.
const DefaultMaxBodyBytes = 16 << 20

type RestAPI struct {
	*app.Application
	rateLimiter  *RateLimitMiddleware
	maxBodyBytes int64
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application:  app,
		rateLimiter:  NewRateLimitMiddleware(app.Config.RateLimit, time.Second),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Close stops the background work of the API.
func (api *RestAPI) Close() {
	api.rateLimiter.Stop()
}
