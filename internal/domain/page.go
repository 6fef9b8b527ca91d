package domain

// Default pagination bounds.
const (
	DefaultPageLimit = 100
)

// Page selects a window of a listing.
type Page struct {
	Skip  uint64
	Limit uint64
}

// DefaultPage returns the first page with the default limit.
func DefaultPage() Page {
	return Page{Skip: 0, Limit: DefaultPageLimit}
}
