package app

import (
	"crypto/subtle"
	"net/http"
)

// RequestAPIKey returns the key of a request, from the "key" query parameter
// or the X-API-Key header.
func RequestAPIKey(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	return r.Header.Get("X-API-Key")
}

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	return app.IsInvalidAPIKey(RequestAPIKey(r))
}

func (app *Application) IsInvalidAPIKey(key string) bool {
	if key == "" {
		return true
	}

	for _, validKey := range app.Config.ApiKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			return false
		}
	}

	return true
}
