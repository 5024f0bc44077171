package helpers

import (
	"time"

	"finitefield.org/store-admin/internal/admin/catalog"
)

var saoPaulo = loadLocation("America/Sao_Paulo")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Money renders a decimal price as Brazilian currency, e.g. "R$ 12,50".
func Money(price string) string {
	if price == "" {
		return "—"
	}
	return "R$ " + catalog.FormatPrice(price)
}

// Date formats the timestamp in São Paulo time (defaults to 02/01/2006 15:04).
func Date(ts time.Time, layout string) string {
	if ts.IsZero() {
		return ""
	}
	if layout == "" {
		layout = "02/01/2006 15:04"
	}
	return ts.In(saoPaulo).Format(layout)
}

// NavClass returns sidebar link classes.
func NavClass(active bool) string {
	if active {
		return "nav-link nav-link--active"
	}
	return "nav-link"
}

// BadgeClass maps semantic tones to badge classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success", "warning", "danger":
		return "badge badge--" + tone
	default:
		return "badge"
	}
}
