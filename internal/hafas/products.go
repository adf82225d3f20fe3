package hafas

import (
	"regexp"
	"strings"

	"transitdecode.org/hafas/internal/models"
)

// sharedTypes is the default category code table shared by all backends.
var sharedTypes = func() map[string]models.Product {
	groups := map[models.Product][]string{
		models.ProductHighSpeed: {
			"EC", "EN", "D", "EIC", "ICE", "IC", "ICT", "ICN", "ICD", "CNL", "OEC", "OIC", "RJ", "WB",
			"THA", "TGV", "DNZ", "AIR", "ECB", "LYN", "NZ", "INZ", "RHI", "RHT", "TGD", "IRX", "ES",
			"EST", "EM", "A", "AVE", "ARC", "ALS", "TAL", "TLG", "HOT", "X2", "X", "FYR", "FYRA",
			"SC", "LE", "FLUG", "TLK", "INT", "HKX",
		},
		models.ProductRegional: {
			"ATR", "ZUG", "R", "DPN", "RB", "RE", "IR", "IRE", "HEX", "WFB", "RT", "REX", "OS", "SP",
			"EZ", "ARZ", "OE", "MR", "PE", "NE", "MRB", "ERB", "HLB", "VIA", "HSB", "OSB", "VBG",
			"AKN", "OLA", "UBB", "PEG", "NWB", "CAN", "BRB", "SBB", "VEC", "TLX", "HZL", "ABR", "CB",
			"WEG", "NEB", "ME", "MER", "ALX", "EB", "EBX", "VEN", "BOB", "SBS", "SES", "EVB", "STB",
			"AG", "PRE", "DBG", "SHB", "NOB", "RTB", "BLB", "NBE", "SOE", "SDG", "VE", "DAB", "WTB",
			"BE", "ARR", "HTB", "FEG", "NEG", "RBG", "MBB", "VEB", "LEO", "VX", "MSB", "P", "ÖBA",
			"KTB", "ERX", "ATZ", "ATB", "CAT", "EXTRA", "EXT", "KD", "KM", "EX", "PCC", "ZR", "RNV",
			"DWE", "BKB", "GEX", "M", "WBA", "BEX", "VAE",
		},
		models.ProductSuburban: {"S-BAHN", "BSB", "SWE", "RER", "WKD", "SKM", "SKW"},
		models.ProductSubway:   {"U", "MET", "METRO"},
		models.ProductTram:     {"NFT", "TRAM", "TRA", "WLB", "STRWLB", "SCHW-B"},
		models.ProductBus:      {"NFB", "SEV", "BUSSEV", "BSV", "FB", "EXB", "TRO", "RFB", "RUF", "RFT", "LT"},
		models.ProductOnDemand: {"TB"},
		models.ProductFerry:    {"SCHIFF", "FÄHRE", "FÄH", "FAE", "SCH", "AS", "KAT", "BAT", "BAV"},
		models.ProductCablecar: {"SEILBAHN", "SB", "ZAHNR", "GB", "LB", "FUN", "SL"},
	}
	table := make(map[string]models.Product)
	for product, codes := range groups {
		for _, code := range codes {
			table[code] = product
		}
	}
	return table
}()

type typeFamily struct {
	pattern *regexp.Regexp
	product models.Product
}

var sharedTypeFamilies = []typeFamily{
	{regexp.MustCompile(`^SN?\d*$`), models.ProductSuburban},
	{regexp.MustCompile(`^STR\w{0,5}$`), models.ProductTram},
	{regexp.MustCompile(`^BUS\w{0,5}$`), models.ProductBus},
	{regexp.MustCompile(`^TAX\w{0,5}$`), models.ProductBus},
	{regexp.MustCompile(`^(?:AST|ALT|BUXI)`), models.ProductOnDemand},
}

// NormalizeType maps a free-text category code to a canonical product using
// the shared table. It is case-insensitive and returns ProductNone when no
// rule matches.
func NormalizeType(category string) models.Product {
	uc := strings.ToUpper(strings.TrimSpace(category))
	if uc == "" {
		return models.ProductNone
	}
	if p, ok := sharedTypes[uc]; ok {
		return p
	}
	for _, family := range sharedTypeFamilies {
		if family.pattern.MatchString(uc) {
			return family.product
		}
	}
	return models.ProductNone
}

const letters = `A-Za-zßÄÅäáàâåéèêíìîÖöóòôÜüúùûØ`

var (
	pNormalizeLineNameBus = regexp.MustCompile(`(?i)^bus\s+(.*)$`)
	pNormalizeLine        = regexp.MustCompile(`^([` + letters + `/]+)[\s-]*([^#]*).*$`)
	pCategoryFromName     = regexp.MustCompile(`^([` + letters + `]+).*$`)
	pLineBus              = regexp.MustCompile(`^(?:Bus|BUS)\s*(.*)$`)
	pLineTram             = regexp.MustCompile(`^(?:Tram|Tra|Str|STR)\s*(.*)$`)
	pLineAndType          = regexp.MustCompile(`^([^#]*)#(.*)$`)
	pLineNumber           = regexp.MustCompile(`^\d{2,5}$`)
	pLineRussia           = regexp.MustCompile(`^\d{3}(?:AJ|BJ|CJ|DJ|EJ|FJ|GJ|IJ|KJ|LJ|NJ|MJ|OJ|RJ|SJ|TJ|UJ|VJ|ZJ|CH|KH|ZH|EI|JA|JI|MZ|SH|SZ|PC|Y)$`)
	pPositionPlatform     = regexp.MustCompile(`(?i)^Gleis\s*(\S*)\s*$`)
	pWhitespace           = regexp.MustCompile(`\s+`)
)

// NormalizeLineName strips a leading "Bus" and the blanks between a line's
// category letters and its number.
func NormalizeLineName(name string) string {
	if m := pNormalizeLineNameBus.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := pNormalizeLine.FindStringSubmatch(name); m != nil {
		return m[1] + m[2]
	}
	return name
}

// CategoryFromName returns the leading letters of a line name.
func CategoryFromName(name string) string {
	if m := pCategoryFromName.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// NormalizePosition turns "Gleis 5" into "5" and keeps anything else as is.
func NormalizePosition(position string) *models.Position {
	if position == "" {
		return nil
	}
	if m := pPositionPlatform.FindStringSubmatch(position); m != nil {
		return models.NewPosition(m[1])
	}
	return models.NewPosition(position)
}

// NormalizeStationID strips leading zeros from a station id.
func NormalizeStationID(id string) string {
	return strings.TrimLeft(id, "0")
}
