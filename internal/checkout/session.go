package checkout

import (
	"time"

	"github.com/rinaldiihsan/sixstreet-sub001/internal/shipping"
)

// StorageName is the fixed entry name the whole session is persisted under.
const StorageName = "checkout-storage"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// AddressSnapshot is a copy of the chosen address, not a reference to it.
type AddressSnapshot struct {
	AddressID       string `json:"address_id,omitempty"`
	Label           string `json:"label,omitempty"`
	RecipientName   string `json:"recipient_name" validate:"required,max=120"`
	Phone           string `json:"phone" validate:"required,max=32"`
	AddressLine     string `json:"address_line" validate:"required,max=500"`
	ProvinceID      string `json:"province_id" validate:"required"`
	ProvinceName    string `json:"province_name"`
	CityID          string `json:"city_id" validate:"required"`
	CityName        string `json:"city_name"`
	SubdistrictID   string `json:"subdistrict_id" validate:"required"`
	SubdistrictName string `json:"subdistrict_name"`
	PostalCode      string `json:"postal_code" validate:"omitempty,max=10"`
}

// ShippingSelection is the service the shopper picked. It is stored as given.
type ShippingSelection struct {
	CourierCode   string `json:"courier_code"`
	ServiceName   string `json:"service_name"`
	Cost          int64  `json:"cost"`
	EstimatedDays string `json:"estimated_days"`
	Description   string `json:"description"`
}

// Session is the persisted checkout state of one browser session.
type Session struct {
	SelectedAddress  *AddressSnapshot         `json:"selected_address"`
	ShippingQuotes   []shipping.CourierQuotes `json:"shipping_quotes"`
	SelectedCourier  *string                  `json:"selected_courier"`
	SelectedShipping *ShippingSelection       `json:"selected_shipping"`
	Loading          bool                     `json:"loading"`
	Error            *string                  `json:"error"`
	Generation       uint64                   `json:"generation"`
	CalculatedAt     *time.Time               `json:"calculated_at,omitempty"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// NewSession returns the initial empty state.
func NewSession() *Session {
	return &Session{ShippingQuotes: []shipping.CourierQuotes{}}
}

func (s *Session) Status() Status {
	switch {
	case s == nil:
		return StatusIdle
	case s.Loading:
		return StatusLoading
	case s.Error != nil:
		return StatusFailed
	case s.CalculatedAt != nil:
		return StatusReady
	default:
		return StatusIdle
	}
}

func (s *Session) normalize() *Session {
	if s.ShippingQuotes == nil {
		s.ShippingQuotes = []shipping.CourierQuotes{}
	}
	return s
}

// Clone returns a deep copy safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.SelectedAddress != nil {
		addr := *s.SelectedAddress
		out.SelectedAddress = &addr
	}
	if s.SelectedCourier != nil {
		courier := *s.SelectedCourier
		out.SelectedCourier = &courier
	}
	if s.SelectedShipping != nil {
		sel := *s.SelectedShipping
		out.SelectedShipping = &sel
	}
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	if s.CalculatedAt != nil {
		at := *s.CalculatedAt
		out.CalculatedAt = &at
	}
	out.ShippingQuotes = make([]shipping.CourierQuotes, 0, len(s.ShippingQuotes))
	for _, q := range s.ShippingQuotes {
		q.Services = append([]shipping.Quote(nil), q.Services...)
		out.ShippingQuotes = append(out.ShippingQuotes, q)
	}
	return &out
}
