package partials

// PaginationProps describes a pager below a table.
type PaginationProps struct {
	Page     int
	LastPage int
	Total    int
	// PrevURL and NextURL are empty when the direction is unavailable.
	PrevURL string
	NextURL string
	// Target is the hx-target used for partial swaps; empty for plain links.
	Target string
}

// Visible reports whether there is more than one page to move between.
func (p PaginationProps) Visible() bool {
	return p.LastPage > 1 || p.PrevURL != "" || p.NextURL != ""
}

// Breadcrumb is one step of the page trail. The last entry usually has no Href.
type Breadcrumb struct {
	Label string
	Href  string
}

func alertRole(tone string) string {
	if tone == "danger" {
		return "alert"
	}
	return "status"
}
