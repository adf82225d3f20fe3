package backends

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"transitdecode.org/hafas/internal/hafas"
)

var ErrUnknownBackend = errors.New("unknown backend")

// Registry holds one ready decoder per profile. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	profiles map[string]Profile
	decoders map[string]*hafas.Decoder
	names    []string
}

func NewRegistry(profiles []Profile, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		profiles: make(map[string]Profile, len(profiles)),
		decoders: make(map[string]*hafas.Decoder, len(profiles)),
	}
	for _, p := range profiles {
		if _, ok := r.profiles[p.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBackend, p.Name)
		}
		cfg, err := p.Config()
		if err != nil {
			return nil, err
		}
		r.profiles[p.Name] = p
		r.decoders[p.Name] = hafas.New(cfg, nil, logger)
		r.names = append(r.names, p.Name)
	}
	slices.Sort(r.names)
	return r, nil
}

// Get returns the decoder of a backend. Names are case-insensitive.
func (r *Registry) Get(name string) (*hafas.Decoder, error) {
	d, ok := r.decoders[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return d, nil
}

func (r *Registry) Profile(name string) (Profile, bool) {
	p, ok := r.profiles[strings.ToLower(name)]
	return p, ok
}

// Profiles lists all profiles ordered by name.
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.profiles[name])
	}
	return out
}
