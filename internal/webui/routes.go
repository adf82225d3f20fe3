package webui

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"transitdecode.org/hafas/internal/backends"
)

// WebUI serves HTML debug views of the configured backends.
type WebUI struct {
	Backends *backends.Registry
}

func (webUI *WebUI) SetWebUIRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodGet, "/debug", webUI.debugIndexHandler)
}
