package layout

import (
	"encoding/json"

	"finitefield.org/store-admin/internal/admin/templates/partials"
)

const (
	appName   = "Painel das Lojas"
	htmxSrc   = "https://unpkg.com/htmx.org@1.9.12"
	assetBase = "/public/static/"
)

// Props describes the page chrome.
type Props struct {
	Title       string
	Breadcrumbs []partials.Breadcrumb
}

func pageTitle(title string) string {
	if title == "" {
		return appName
	}
	return title + " · " + appName
}

func csrfHeaders(token string) string {
	payload, err := json.Marshal(map[string]string{"X-CSRF-Token": token})
	if err != nil {
		return "{}"
	}
	return string(payload)
}
