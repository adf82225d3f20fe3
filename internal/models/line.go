package models

import (
	"strings"

	"github.com/jamespfennell/gtfs"
)

// Product is the canonical single-letter transport mode of a line.
type Product byte

const (
	ProductNone      Product = 0
	ProductHighSpeed Product = 'I'
	ProductRegional  Product = 'R'
	ProductSuburban  Product = 'S'
	ProductSubway    Product = 'U'
	ProductTram      Product = 'T'
	ProductBus       Product = 'B'
	ProductOnDemand  Product = 'P'
	ProductFerry     Product = 'F'
	ProductCablecar  Product = 'C'
	ProductUnknown   Product = '?'
)

// AllProducts lists the known products in canonical order.
var AllProducts = []Product{
	ProductHighSpeed, ProductRegional, ProductSuburban, ProductSubway, ProductTram,
	ProductBus, ProductOnDemand, ProductFerry, ProductCablecar,
}

// ParseProduct returns the product for a code, or ProductNone when the code is not canonical.
func ParseProduct(code byte) Product {
	p := Product(code)
	if p == ProductUnknown || p.index() >= 0 {
		return p
	}
	return ProductNone
}

func (p Product) index() int {
	for i, known := range AllProducts {
		if known == p {
			return i
		}
	}
	return -1
}

func (p Product) String() string {
	if p == ProductNone {
		return ""
	}
	return string(rune(p))
}

func (p Product) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Product) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = ProductNone
		return nil
	}
	*p = ParseProduct(text[0])
	return nil
}

// RouteType maps the product onto the closest GTFS route type.
func (p Product) RouteType() (gtfs.RouteType, bool) {
	switch p {
	case ProductTram:
		return gtfs.RouteType(0), true
	case ProductSubway:
		return gtfs.RouteType(1), true
	case ProductHighSpeed, ProductRegional, ProductSuburban:
		return gtfs.RouteType(2), true
	case ProductBus, ProductOnDemand:
		return gtfs.RouteType(3), true
	case ProductFerry:
		return gtfs.RouteType(4), true
	case ProductCablecar:
		return gtfs.RouteType(6), true
	default:
		return gtfs.RouteType(0), false
	}
}

// ProductSet is a fixed-size set of canonical products.
type ProductSet [9]bool

func NewProductSet(products ...Product) ProductSet {
	var s ProductSet
	for _, p := range products {
		s = s.With(p)
	}
	return s
}

func (s ProductSet) With(p Product) ProductSet {
	if i := p.index(); i >= 0 {
		s[i] = true
	}
	return s
}

func (s ProductSet) Has(p Product) bool {
	i := p.index()
	return i >= 0 && s[i]
}

func (s ProductSet) String() string {
	var b strings.Builder
	for i, set := range s {
		if set {
			b.WriteByte(byte(AllProducts[i]))
		}
	}
	return b.String()
}

type LineAttr uint8

const (
	LineAttrWheelchairAccess LineAttr = 1 << iota
	LineAttrBicycleCarriage
)

func (a LineAttr) Has(attr LineAttr) bool {
	return a&attr != 0
}

func (a LineAttr) Names() []string {
	var names []string
	if a.Has(LineAttrWheelchairAccess) {
		names = append(names, "wheelchairAccess")
	}
	if a.Has(LineAttrBicycleCarriage) {
		names = append(names, "bicycleCarriage")
	}
	return names
}

type Line struct {
	Product Product  `json:"product"`
	Label   string   `json:"label,omitempty"`
	Comment string   `json:"comment,omitempty"`
	Attrs   LineAttr `json:"-"`
	Style   string   `json:"style,omitempty"`
}

func NewLine(product Product, label, comment string, attrs LineAttr) Line {
	return Line{
		Product: product,
		Label:   label,
		Comment: comment,
		Attrs:   attrs,
	}
}

// Position is a platform or track designation.
type Position struct {
	Name string `json:"name"`
}

func NewPosition(name string) *Position {
	if name == "" {
		return nil
	}
	return &Position{Name: name}
}
