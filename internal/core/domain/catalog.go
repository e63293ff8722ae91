package domain

// MaxCatalogResults caps the number of records requested from the catalogue.
const MaxCatalogResults = 20

// CatalogQuery is a single catalogue search.
type CatalogQuery struct {
	// Collection is the mission/collection name, e.g. SENTINEL-5P.
	Collection string

	// ProductType is the product type identifier, e.g. L2__CO____.
	ProductType string

	// Window bounds the content-date overlap filter.
	Window DateKey

	// Top is the maximum number of records requested.
	Top int
}

// CatalogEntry is a catalogue record before validation.
// Any field may be empty; the resolver decides what is usable.
type CatalogEntry struct {
	ID        string
	Name      string
	Start     string
	End       string
	Footprint *Footprint
}
