// Package hafas decodes the binary, XML and JSON responses of HAFAS-family
// transit backends into the shared model.
//
// A Decoder is configured once per backend and is safe for concurrent use:
// every decode call works on its own input and keeps no state between calls.
package hafas

import (
	"log/slog"
	"time"

	"transitdecode.org/hafas/internal/logging"
	"transitdecode.org/hafas/internal/models"
)

type Decoder struct {
	cfg    Config
	custom Customizer
	logger *slog.Logger
}

// New builds a decoder for one backend. A nil customizer derives all hooks from cfg.
func New(cfg Config, custom Customizer, logger *slog.Logger) *Decoder {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if custom == nil {
		custom = NewDefaultCustomizer(cfg)
	}
	return &Decoder{cfg: cfg, custom: custom, logger: logger}
}

func (d *Decoder) Config() Config {
	return d.cfg
}

func (d *Decoder) Name() string {
	return d.cfg.Name
}

func (d *Decoder) logOperation(operation string, attrs ...slog.Attr) {
	if d.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("backend", d.cfg.Name))
	logging.LogOperationAt(d.logger, slog.LevelDebug, operation, attrs...)
}

func (d *Decoder) station(id string, lat, lon int32, text string) models.Location {
	place, name := d.custom.SplitStationName(text)
	return models.Location{Type: models.LocationStation, ID: id, Lat: lat, Lon: lon, Place: place, Name: name}
}

func (d *Decoder) address(id string, lat, lon int32, text string) models.Location {
	place, name := d.custom.SplitAddress(text)
	return models.Location{Type: models.LocationAddress, ID: id, Lat: lat, Lon: lon, Place: place, Name: name}
}

func (d *Decoder) anyPlace(text string) models.Location {
	place, name := d.custom.SplitStationName(text)
	return models.Location{Type: models.LocationAny, Place: place, Name: name}
}

// classProduct resolves a numeric product class through the backend's bit table.
func (d *Decoder) classProduct(class int) (models.Product, error) {
	if p, ok := d.cfg.ClassProducts[class]; ok {
		return p, nil
	}
	return models.ProductNone, malformed("backend %s has no product for class %d", d.cfg.Name, class)
}

// ParseLine builds a line from a category and a display name, recognising
// bus and tram names before consulting the category.
func (d *Decoder) ParseLine(category, name string, wheelchair bool) (models.Line, error) {
	if name != "" {
		if m := pLineBus.FindStringSubmatch(name); m != nil {
			return models.NewLine(models.ProductBus, m[1], "", 0), nil
		}
		if m := pLineTram.FindStringSubmatch(name); m != nil {
			return models.NewLine(models.ProductTram, m[1], "", 0), nil
		}
	}

	product := d.custom.NormalizeType(category)
	if product == models.ProductNone {
		return models.Line{}, malformed("cannot normalize type %q of line %q", category, name)
	}

	var attrs models.LineAttr
	if wheelchair {
		attrs |= models.LineAttrWheelchairAccess
	}

	label := name
	if m := pNormalizeLine.FindStringSubmatch(name); m != nil {
		label = m[1] + m[2]
	}
	return models.NewLine(product, label, "", attrs), nil
}

// ParseLineAndType parses the "number#type" notation of station boards.
func (d *Decoder) ParseLineAndType(lineAndType string) (models.Line, error) {
	m := pLineAndType.FindStringSubmatch(lineAndType)
	if m == nil {
		return models.Line{}, malformed("cannot normalize line#type %q", lineAndType)
	}
	number, category := m[1], m[2]

	if category == "" {
		switch {
		case number == "":
			return models.NewLine(models.ProductUnknown, "", "", 0), nil
		case pLineNumber.MatchString(number):
			return models.NewLine(models.ProductUnknown, number, "", 0), nil
		case pLineRussia.MatchString(number):
			return models.NewLine(models.ProductRegional, number, "", 0), nil
		}
		return models.Line{}, malformed("cannot normalize number %q of line#type %q", number, lineAndType)
	}

	product := d.custom.NormalizeType(category)
	switch product {
	case models.ProductNone:
		return models.Line{}, malformed("cannot normalize type %q of line#type %q", category, lineAndType)
	case models.ProductBus:
		if mb := pLineBus.FindStringSubmatch(number); mb != nil {
			return models.NewLine(models.ProductBus, mb[1], "", 0), nil
		}
	case models.ProductTram:
		if mt := pLineTram.FindStringSubmatch(number); mt != nil {
			return models.NewLine(models.ProductTram, mt[1], "", 0), nil
		}
	}
	return models.NewLine(product, pWhitespace.ReplaceAllString(number, ""), "", 0), nil
}
