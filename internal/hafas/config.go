package hafas

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"time"

	"transitdecode.org/hafas/internal/models"
)

// SplitStrategy names a rule for splitting a backend display name into place
// and name.
type SplitStrategy string

const (
	// SplitNone keeps the whole text as the name.
	SplitNone SplitStrategy = "none"
	// SplitPlaceFirst splits "Place, Name" at the first comma.
	SplitPlaceFirst SplitStrategy = "place-first"
	// SplitNameFirst splits "Name, Place" when there is exactly one comma.
	SplitNameFirst SplitStrategy = "name-first"
	// SplitNameLastComma splits "Name, Place" at the last comma.
	SplitNameLastComma SplitStrategy = "name-last-comma"
	// SplitParen splits "Name (Place)" and "Name (Place kn)".
	SplitParen SplitStrategy = "paren"
	// SplitPlacePrefix splits off one of Config.Places when the text starts
	// with it followed by a blank or a hyphen.
	SplitPlacePrefix SplitStrategy = "place-prefix"
)

var (
	pSplitFirstComma = regexp.MustCompile(`^([^,]*), (.*)$`)
	pSplitOneComma   = regexp.MustCompile(`^([^,]*), ([^,]*)$`)
	pSplitLastComma  = regexp.MustCompile(`^(.*), ([^,]*)$`)
	pSplitParen      = regexp.MustCompile(`^(.*) \((.{3,}?)(?: kn)?\)$`)
)

// Split applies the strategy. Text that does not match keeps an empty place.
// SplitPlacePrefix needs a place list and is handled by SplitWithPlaces.
func (s SplitStrategy) Split(text string) (place, name string) {
	return s.SplitWithPlaces(text, nil)
}

func (s SplitStrategy) SplitWithPlaces(text string, places []string) (place, name string) {
	switch s {
	case SplitPlaceFirst:
		if m := pSplitFirstComma.FindStringSubmatch(text); m != nil {
			return splitParts(text, m[1], m[2])
		}
	case SplitNameFirst:
		if m := pSplitOneComma.FindStringSubmatch(text); m != nil {
			return splitParts(text, m[2], m[1])
		}
	case SplitNameLastComma:
		if m := pSplitLastComma.FindStringSubmatch(text); m != nil {
			return splitParts(text, m[2], m[1])
		}
	case SplitParen:
		if m := pSplitParen.FindStringSubmatch(text); m != nil {
			return splitParts(text, m[2], m[1])
		}
	case SplitPlacePrefix:
		for _, p := range places {
			if len(text) > len(p)+1 && strings.HasPrefix(text, p) && (text[len(p)] == ' ' || text[len(p)] == '-') {
				return splitParts(text, p, text[len(p)+1:])
			}
		}
	}
	return "", text
}

// splitParts keeps the whole text as the name when the split would leave it blank.
func splitParts(text, place, name string) (string, string) {
	if strings.TrimSpace(name) == "" {
		return "", text
	}
	return place, name
}

// Config is the per-backend data that tailors the shared decoders.
type Config struct {
	Name     string
	Location *time.Location

	// ClassProducts maps the numeric product class bits of a backend to products.
	ClassProducts map[int]models.Product
	// TypeOverrides are exact category codes consulted before the shared table.
	TypeOverrides map[string]models.Product
	// TypePrefixes are category prefixes consulted before the shared table.
	TypePrefixes map[string]models.Product
	// TypeFallbacks are exact category codes consulted after the shared table.
	TypeFallbacks map[string]models.Product
	// SkipSharedTypes disables the shared category table entirely.
	SkipSharedTypes bool

	StationSplit SplitStrategy
	AddressSplit SplitStrategy
	// Places are the well-known place names for SplitPlacePrefix.
	Places []string

	DominantPlanStopTime        bool
	StationBoardHasStationTable bool
	StationBoardHasLocation     bool
	StationBoardCanDoEquivs     bool
	JSONGetStopsUseWeight       bool
}

// DefaultConfig returns the settings a backend starts from before its own
// profile is applied.
func DefaultConfig(name string) Config {
	return Config{
		Name:                        name,
		Location:                    time.UTC,
		StationSplit:                SplitNone,
		AddressSplit:                SplitNone,
		StationBoardHasStationTable: true,
		StationBoardCanDoEquivs:     true,
		JSONGetStopsUseWeight:       true,
	}
}

// Customizer holds the few algorithmic hooks a backend may replace.
type Customizer interface {
	NormalizeType(category string) models.Product
	SplitStationName(name string) (place, stationName string)
	SplitAddress(address string) (place, name string)
}

// DefaultCustomizer implements Customizer purely from Config data.
type DefaultCustomizer struct {
	cfg      Config
	prefixes []string
}

func NewDefaultCustomizer(cfg Config) *DefaultCustomizer {
	prefixes := make([]string, 0, len(cfg.TypePrefixes))
	for prefix := range cfg.TypePrefixes {
		prefixes = append(prefixes, prefix)
	}
	// Longest prefix wins; equal lengths fall back to lexical order.
	slices.SortFunc(prefixes, func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	return &DefaultCustomizer{cfg: cfg, prefixes: prefixes}
}

func (c *DefaultCustomizer) NormalizeType(category string) models.Product {
	uc := strings.ToUpper(strings.TrimSpace(category))
	if p, ok := c.cfg.TypeOverrides[uc]; ok {
		return p
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(uc, prefix) {
			return c.cfg.TypePrefixes[prefix]
		}
	}
	if !c.cfg.SkipSharedTypes {
		if p := NormalizeType(uc); p != models.ProductNone {
			return p
		}
	}
	if p, ok := c.cfg.TypeFallbacks[uc]; ok {
		return p
	}
	return models.ProductNone
}

func (c *DefaultCustomizer) SplitStationName(name string) (string, string) {
	return c.cfg.StationSplit.SplitWithPlaces(name, c.cfg.Places)
}

func (c *DefaultCustomizer) SplitAddress(address string) (string, string) {
	return c.cfg.AddressSplit.SplitWithPlaces(address, c.cfg.Places)
}
