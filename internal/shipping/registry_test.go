package shipping

import (
	"testing"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/config"
)

func TestRegistryFromConfigKeepsOrder(t *testing.T) {
	registry, err := RegistryFromConfig(config.ShippingConfig{Couriers: "jne:JNE,pos:POS Indonesia,tiki"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	couriers := registry.Couriers()
	if len(couriers) != 3 || couriers[0].Code != "jne" || couriers[2].DisplayName != "TIKI" {
		t.Fatalf("unexpected couriers %+v", couriers)
	}

	couriers[0].Code = "mutated"
	if registry.Couriers()[0].Code != "jne" {
		t.Fatal("Couriers must return a copy")
	}

	if c, ok := registry.Lookup(" POS "); !ok || c.DisplayName != "POS Indonesia" {
		t.Fatalf("lookup failed: %+v %v", c, ok)
	}
}

func TestNewRegistryRejectsBadInput(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatal("expected error for empty registry")
	}
	if _, err := NewRegistry([]Courier{{Code: "jne"}, {Code: "JNE"}}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := NewRegistry([]Courier{{Code: " "}}); err == nil {
		t.Fatal("expected blank code error")
	}
}
