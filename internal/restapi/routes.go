package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"transitdecode.org/hafas/internal/backends"
	"transitdecode.org/hafas/internal/hafas"
	"transitdecode.org/hafas/internal/utils"
	"transitdecode.org/hafas/internal/webui"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// protected applies the API key check and the per-key rate limit.
func (api *RestAPI) protected(h handlerFunc) http.Handler {
	return api.rateLimiter.Handler(validateAPIKey(api, h))
}

// SetRoutes registers every endpoint on router.
func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.NotFound = http.HandlerFunc(api.sendNotFound)
	router.MethodNotAllowed = http.HandlerFunc(api.sendMethodNotAllowed)

	router.Handler(http.MethodGet, "/api/backends.json", api.protected(api.backendsHandler))
	router.Handler(http.MethodGet, "/api/backends/:backend", api.protected(api.backendHandler))
	router.Handler(http.MethodGet, "/api/current-time.json", api.protected(api.currentTimeHandler))

	router.Handler(http.MethodPost, "/api/backends/:backend/trips/binary", api.protected(api.binaryTripsHandler))
	router.Handler(http.MethodPost, "/api/backends/:backend/trips/xml", api.protected(api.xmlTripsHandler))
	router.Handler(http.MethodPost, "/api/backends/:backend/departures/:stationId", api.protected(api.departuresHandler))
	router.Handler(http.MethodPost, "/api/backends/:backend/suggestions", api.protected(api.suggestionsHandler))
	router.Handler(http.MethodPost, "/api/backends/:backend/nearby", api.protected(api.nearbyHandler))
	router.Handler(http.MethodPost, "/api/backends/:backend/nearby/xml", api.protected(api.xmlNearbyHandler))

	router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
}

// Routes returns the API wrapped in its middleware chain.
func (api *RestAPI) Routes() http.Handler {
	router := httprouter.New()
	api.SetRoutes(router)
	if api.Config.Env != "production" {
		(&webui.WebUI{Backends: api.Backends}).SetWebUIRoutes(router)
	}

	handler := CompressionMiddleware(router)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	return securityHeaders(handler)
}

// backendFromParams resolves the :backend path parameter, answering the
// request itself when it cannot.
func (api *RestAPI) backendFromParams(w http.ResponseWriter, r *http.Request) (*hafas.Decoder, backends.Profile, bool) {
	name := utils.PathParam(r, "backend")
	if err := utils.ValidateID(name); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"backend": {err.Error()}})
		return nil, backends.Profile{}, false
	}

	decoder, err := api.Backends.Get(name)
	if err != nil {
		api.sendNotFound(w, r)
		return nil, backends.Profile{}, false
	}
	profile, _ := api.Backends.Profile(name)
	return decoder, profile, true
}
