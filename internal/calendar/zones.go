package calendar

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone database for minimal images
)

// DefaultZone is used when neither the config nor the recipient names one.
const DefaultZone = "Asia/Kolkata"

// Zones resolves IANA zone names, falling back to a default zone.
// Safe for concurrent use.
type Zones struct {
	def *time.Location

	mu    sync.RWMutex
	cache map[string]*time.Location
}

func NewZones(defaultName string) (*Zones, error) {
	if strings.TrimSpace(defaultName) == "" {
		defaultName = DefaultZone
	}
	loc, err := time.LoadLocation(defaultName)
	if err != nil {
		return nil, fmt.Errorf("load default zone %q: %w", defaultName, err)
	}
	return &Zones{def: loc, cache: map[string]*time.Location{defaultName: loc}}, nil
}

// Default returns the reference zone.
func (z *Zones) Default() *time.Location { return z.def }

// Resolve returns the location for name. Empty names map to the default zone.
// Unknown names also map to the default zone, with ok=false so the caller can
// report the bad value.
func (z *Zones) Resolve(name string) (loc *time.Location, ok bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return z.def, true
	}

	z.mu.RLock()
	loc, hit := z.cache[name]
	z.mu.RUnlock()
	if hit {
		if loc == nil {
			return z.def, false
		}
		return loc, true
	}

	loaded, err := time.LoadLocation(name)
	z.mu.Lock()
	if err != nil {
		z.cache[name] = nil // remember misses
	} else {
		z.cache[name] = loaded
	}
	z.mu.Unlock()

	if err != nil {
		return z.def, false
	}
	return loaded, true
}
