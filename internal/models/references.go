package models

// ReferencesModel collects the stations a response mentions so entries can
// refer to them by id.
type ReferencesModel struct {
	Stations []Location `json:"stations"`
	Products []string   `json:"products"`
}

// NewEmptyReferences creates a new empty References model with initialized empty slices
func NewEmptyReferences() ReferencesModel {
	return ReferencesModel{
		Stations: []Location{},
		Products: []string{},
	}
}

// AddStation records a station once. Locations without an id are not referenceable.
func (r *ReferencesModel) AddStation(l Location) {
	if l.Type != LocationStation || !l.HasID() {
		return
	}
	for _, known := range r.Stations {
		if known.ID == l.ID {
			return
		}
	}
	r.Stations = append(r.Stations, l)
}

func (r *ReferencesModel) AddProduct(p Product) {
	code := p.String()
	if code == "" {
		return
	}
	for _, known := range r.Products {
		if known == code {
			return
		}
	}
	r.Products = append(r.Products, code)
}
