package catalog

import (
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/backend"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/money"
)

// GroupDTO is a ProductGroup with display-ready price labels.
type GroupDTO struct {
	ProductGroup
	PriceLabel   string `json:"price_label"`
	InStock      bool   `json:"in_stock"`
	AverageLabel string `json:"average_price_label"`
}

// GroupDetailDTO is the response shape of a single group lookup.
type GroupDetailDTO struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	CategoryID   string              `json:"category_id"`
	CategoryName string              `json:"category_name"`
	Variations   []backend.Variation `json:"variations"`
	SKUs         []SKUDTO            `json:"product_skus"`
	Images       []backend.Image     `json:"images"`
	Group        GroupDTO            `json:"group"`
}

type SKUDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	SizeLabel  string  `json:"size_label"`
	Price      float64 `json:"price"`
	PriceLabel string  `json:"price_label"`
	Stock      int     `json:"stock"`
	Thumbnail  string  `json:"thumbnail"`
}

// NewGroupDTO formats price labels as "Rp min" or "Rp min - Rp max".
func NewGroupDTO(g ProductGroup) GroupDTO {
	label := money.FormatIDR(g.PriceRange.Min)
	if g.PriceRange.Max != g.PriceRange.Min {
		label += " - " + money.FormatIDR(g.PriceRange.Max)
	}
	return GroupDTO{
		ProductGroup: g,
		PriceLabel:   label,
		InStock:      g.TotalStock > 0,
		AverageLabel: money.FormatIDR(g.AveragePrice),
	}
}

func NewGroupDTOs(groups []ProductGroup) []GroupDTO {
	out := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, NewGroupDTO(g))
	}
	return out
}

func NewGroupDetailDTO(d *GroupDetail) GroupDetailDTO {
	skus := make([]SKUDTO, 0, len(d.SKUs))
	for _, sku := range d.SKUs {
		_, size := SplitDisplayName(sku.Name)
		skus = append(skus, SKUDTO{
			ID:         sku.ID.String(),
			Name:       sku.Name,
			SKU:        sku.SKU,
			SizeLabel:  size,
			Price:      float64(sku.Price),
			PriceLabel: money.FormatIDR(float64(sku.Price)),
			Stock:      int(sku.Stock),
			Thumbnail:  sku.Thumbnail,
		})
	}
	return GroupDetailDTO{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		CategoryID:   d.CategoryID,
		CategoryName: d.CategoryName,
		Variations:   d.Variations,
		SKUs:         skus,
		Images:       d.Images,
		Group:        NewGroupDTO(d.Group),
	}
}
