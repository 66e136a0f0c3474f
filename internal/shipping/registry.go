package shipping

import (
	"fmt"
	"strings"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/config"
)

// Courier is a shipping carrier known to the storefront.
type Courier struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// Registry is the ordered, immutable courier list quotes are requested for.
type Registry struct {
	couriers []Courier
	index    map[string]int
}

func NewRegistry(couriers []Courier) (*Registry, error) {
	if len(couriers) == 0 {
		return nil, fmt.Errorf("courier registry must not be empty")
	}
	r := &Registry{
		couriers: make([]Courier, 0, len(couriers)),
		index:    make(map[string]int, len(couriers)),
	}
	for _, c := range couriers {
		code := strings.ToLower(strings.TrimSpace(c.Code))
		if code == "" {
			return nil, fmt.Errorf("courier code is required")
		}
		if _, dup := r.index[code]; dup {
			return nil, fmt.Errorf("duplicate courier %q", code)
		}
		name := strings.TrimSpace(c.DisplayName)
		if name == "" {
			name = strings.ToUpper(code)
		}
		r.index[code] = len(r.couriers)
		r.couriers = append(r.couriers, Courier{Code: code, DisplayName: name})
	}
	return r, nil
}

// RegistryFromConfig builds the registry from the configured courier list.
func RegistryFromConfig(cfg config.ShippingConfig) (*Registry, error) {
	entries, err := cfg.CourierEntries()
	if err != nil {
		return nil, err
	}
	couriers := make([]Courier, 0, len(entries))
	for _, e := range entries {
		couriers = append(couriers, Courier{Code: e.Code, DisplayName: e.DisplayName})
	}
	return NewRegistry(couriers)
}

// Couriers returns a copy in registry order.
func (r *Registry) Couriers() []Courier {
	if r == nil {
		return nil
	}
	return append([]Courier(nil), r.couriers...)
}

func (r *Registry) Lookup(code string) (Courier, bool) {
	if r == nil {
		return Courier{}, false
	}
	i, ok := r.index[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Courier{}, false
	}
	return r.couriers[i], true
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.couriers)
}
