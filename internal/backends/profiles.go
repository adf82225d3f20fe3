package backends

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"transitdecode.org/hafas/internal/hafas"
	"transitdecode.org/hafas/internal/logging"
	"transitdecode.org/hafas/internal/models"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// TripFormat is the wire format a backend answers trip queries in.
type TripFormat string

const (
	TripFormatBinary TripFormat = "binary"
	TripFormatXML    TripFormat = "xml"
)

// Profile is the YAML description of one backend.
type Profile struct {
	Name            string            `yaml:"name" json:"name" validate:"required,alphanum,lowercase"`
	Title           string            `yaml:"title" json:"title" validate:"required"`
	TimeZone        string            `yaml:"time_zone" json:"timeZone" validate:"required,timezone"`
	TripFormat      TripFormat        `yaml:"trip_format" json:"tripFormat" validate:"required,oneof=binary xml"`
	ProductBits     int               `yaml:"product_bits" json:"productBits" validate:"gte=0,lte=16"`
	Classes         map[int]string    `yaml:"classes" json:"-" validate:"omitempty,dive,keys,gt=0,endkeys,len=1"`
	TypeOverrides   map[string]string `yaml:"type_overrides" json:"-" validate:"omitempty,dive,keys,required,endkeys,len=1"`
	TypePrefixes    map[string]string `yaml:"type_prefixes" json:"-" validate:"omitempty,dive,keys,required,endkeys,len=1"`
	TypeFallbacks   map[string]string `yaml:"type_fallbacks" json:"-" validate:"omitempty,dive,keys,required,endkeys,len=1"`
	SkipSharedTypes bool              `yaml:"skip_shared_types" json:"-"`
	StationSplit    string            `yaml:"station_split" json:"-" validate:"omitempty,oneof=none place-first name-first name-last-comma paren place-prefix"`
	AddressSplit    string            `yaml:"address_split" json:"-" validate:"omitempty,oneof=none place-first name-first name-last-comma paren place-prefix"`
	Places          []string          `yaml:"places" json:"-" validate:"omitempty,dive,required"`

	DominantPlanStopTime        bool  `yaml:"dominant_plan_stop_time" json:"-"`
	StationBoardHasStationTable *bool `yaml:"station_board_has_station_table" json:"-"`
	StationBoardHasLocation     bool  `yaml:"station_board_has_location" json:"-"`
	StationBoardCanDoEquivs     *bool `yaml:"station_board_can_do_equivs" json:"-"`
	JSONGetStopsUseWeight       *bool `yaml:"json_get_stops_use_weight" json:"-"`
}

type profileFile struct {
	Backends []Profile `yaml:"backends" validate:"required,min=1,dive"`
}

var ErrDuplicateBackend = errors.New("duplicate backend")

// Load parses and validates a profile document.
func Load(data []byte) ([]Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file profileFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse backend profiles: %w", err)
	}

	v := validator.New()
	if err := v.Struct(file); err != nil {
		return nil, fmt.Errorf("validate backend profiles: %w", err)
	}

	seen := make(map[string]bool, len(file.Backends))
	for _, p := range file.Backends {
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBackend, p.Name)
		}
		seen[p.Name] = true
		if (p.StationSplit == string(hafas.SplitPlacePrefix) || p.AddressSplit == string(hafas.SplitPlacePrefix)) && len(p.Places) == 0 {
			return nil, fmt.Errorf("validate backend profiles: %s: place-prefix split without places", p.Name)
		}
	}
	return file.Backends, nil
}

// LoadFile reads profiles from path.
func LoadFile(path string) (profiles []Profile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer logging.HandleDeferredError(&err, f.Close, nil, "close_profiles_file")

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Defaults returns the built-in profiles.
func Defaults() []Profile {
	profiles, err := Load(defaultProfiles)
	if err != nil {
		panic(err)
	}
	return profiles
}

// Config converts the profile into decoder settings.
func (p Profile) Config() (hafas.Config, error) {
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return hafas.Config{}, fmt.Errorf("backend %s: %w", p.Name, err)
	}

	cfg := hafas.DefaultConfig(p.Name)
	cfg.Location = loc
	cfg.SkipSharedTypes = p.SkipSharedTypes
	cfg.Places = p.Places
	cfg.DominantPlanStopTime = p.DominantPlanStopTime
	cfg.StationBoardHasLocation = p.StationBoardHasLocation
	if p.StationSplit != "" {
		cfg.StationSplit = hafas.SplitStrategy(p.StationSplit)
	}
	if p.AddressSplit != "" {
		cfg.AddressSplit = hafas.SplitStrategy(p.AddressSplit)
	}
	if p.StationBoardHasStationTable != nil {
		cfg.StationBoardHasStationTable = *p.StationBoardHasStationTable
	}
	if p.StationBoardCanDoEquivs != nil {
		cfg.StationBoardCanDoEquivs = *p.StationBoardCanDoEquivs
	}
	if p.JSONGetStopsUseWeight != nil {
		cfg.JSONGetStopsUseWeight = *p.JSONGetStopsUseWeight
	}

	if len(p.Classes) > 0 {
		cfg.ClassProducts = make(map[int]models.Product, len(p.Classes))
		for class, code := range p.Classes {
			product, err := parseProduct(code)
			if err != nil {
				return hafas.Config{}, fmt.Errorf("backend %s class %d: %w", p.Name, class, err)
			}
			cfg.ClassProducts[class] = product
		}
	}

	tables := []struct {
		src map[string]string
		dst *map[string]models.Product
	}{
		{p.TypeOverrides, &cfg.TypeOverrides},
		{p.TypePrefixes, &cfg.TypePrefixes},
		{p.TypeFallbacks, &cfg.TypeFallbacks},
	}
	for _, table := range tables {
		if len(table.src) == 0 {
			continue
		}
		*table.dst = make(map[string]models.Product, len(table.src))
		for category, code := range table.src {
			product, err := parseProduct(code)
			if err != nil {
				return hafas.Config{}, fmt.Errorf("backend %s type %s: %w", p.Name, category, err)
			}
			(*table.dst)[category] = product
		}
	}
	return cfg, nil
}

func parseProduct(code string) (models.Product, error) {
	if len(code) != 1 {
		return models.ProductNone, fmt.Errorf("invalid product code %q", code)
	}
	product := models.ParseProduct(code[0])
	if product == models.ProductNone {
		return models.ProductNone, fmt.Errorf("invalid product code %q", code)
	}
	return product, nil
}
