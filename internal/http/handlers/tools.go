package handlers

import (
	"net/http"
)

// Tools returns the tool catalog with labels in the request language.
func (a *App) Tools(w http.ResponseWriter, r *http.Request) {
	resp := a.Catalog.Response()
	if a.localizer(r).RTL() {
		for i := range resp.Tools {
			if resp.Tools[i].NameAR != "" {
				resp.Tools[i].Name = resp.Tools[i].NameAR
			}
		}
		for i := range resp.Categories {
			if resp.Categories[i].NameAR != "" {
				resp.Categories[i].Name = resp.Categories[i].NameAR
			}
		}
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	a.json(w, http.StatusOK, resp)
}
