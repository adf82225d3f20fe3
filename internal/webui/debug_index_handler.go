package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true, MaxDepth: 4}

type debugData struct {
	Title    string
	Backends []string
	Pre      string
}

func (webUI *WebUI) writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	var names []string
	for _, p := range webUI.Backends.Profiles() {
		names = append(names, p.Name)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title:    title,
		Backends: names,
		Pre:      dumper.Sdump(data),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	var data interface{}
	var title string

	switch r.URL.Query().Get("dataType") {
	case "profiles":
		data = webUI.Backends.Profiles()
		title = "Backend profiles"
	case "config":
		name := r.URL.Query().Get("backend")
		decoder, err := webUI.Backends.Get(name)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			data = map[string]string{"error": err.Error()}
			title = "Unknown backend"
			break
		}
		data = decoder.Config()
		title = "Decoder config - " + decoder.Name()
	default:
		data = map[string]string{
			"error": "Please use one of the following: profiles, config (with backend).",
		}
		title = "Choose a data type"
	}

	webUI.writeDebugData(w, title, data)
}
