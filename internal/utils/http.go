package utils

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// PathParam returns the named route parameter with any ".json" suffix
// removed, so "/departures/8011160.json" and "/departures/8011160" agree.
func PathParam(r *http.Request, name string) string {
	value := httprouter.ParamsFromContext(r.Context()).ByName(name)
	return strings.TrimSuffix(value, ".json")
}
