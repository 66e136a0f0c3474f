package catalog

import (
	"sort"
	"strings"
)

const (
	// SizeSentinel is the size label of a variant whose display name carries no size segment.
	SizeSentinel = "One Size"

	nameSeparator = " - "
)

// VariantRecord is one purchasable SKU row as decoded from the catalog backend.
type VariantRecord struct {
	ID           string
	Name         string
	BaseName     string
	SizeLabel    string
	GroupID      string
	Price        float64
	Stock        int
	CategoryID   string
	CategoryName string
	Thumbnail    string
	UpdatedAt    string
}

// VariantSummary is the lightweight per-variant entry kept on a group.
type VariantSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Stock     int     `json:"stock"`
	SizeLabel string  `json:"size_label"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProductGroup is the read-only projection of all variants sharing a grouping key.
type ProductGroup struct {
	GroupID       string           `json:"group_id"`
	BaseName      string           `json:"base_name"`
	Thumbnail     string           `json:"thumbnail"`
	CategoryID    string           `json:"category_id"`
	CategoryName  string           `json:"category_name"`
	UpdatedAt     string           `json:"updated_at"`
	Variants      []VariantSummary `json:"variants"`
	TotalStock    int              `json:"total_stock"`
	PriceRange    PriceRange       `json:"price_range"`
	Sizes         []string         `json:"sizes"`
	AveragePrice  float64          `json:"average_price"`
	VariantsCount int              `json:"variants_count"`
}

// SplitDisplayName splits "Base - Size" into its base name and size label.
// Names without the separator are entirely base name and get SizeSentinel.
func SplitDisplayName(name string) (baseName, sizeLabel string) {
	parts := strings.Split(name, nameSeparator)
	baseName = strings.TrimSpace(parts[0])
	sizeLabel = SizeSentinel
	if len(parts) > 1 {
		if size := strings.TrimSpace(parts[1]); size != "" {
			sizeLabel = size
		}
	}
	return baseName, sizeLabel
}

// NewVariantRecord derives BaseName and SizeLabel from the display name.
func NewVariantRecord(r VariantRecord) VariantRecord {
	r.BaseName, r.SizeLabel = SplitDisplayName(r.Name)
	return r
}

// Group folds variant rows into product groups keyed by GroupID. Rows without a
// GroupID fall back to their base name so nothing is dropped. Output follows
// first-seen key order.
func Group(records []VariantRecord) []ProductGroup {
	return fold(records, func(r VariantRecord) string {
		if id := strings.TrimSpace(r.GroupID); id != "" {
			return "id:" + id
		}
		return "name:" + r.BaseName
	})
}

// GroupByBaseName groups on the display-name prefix alone. Kept for legacy
// callers whose rows carry no reliable group id.
func GroupByBaseName(records []VariantRecord) []ProductGroup {
	return fold(records, func(r VariantRecord) string {
		return r.BaseName
	})
}

type accumulator struct {
	group    ProductGroup
	sizes    map[string]struct{}
	priceSum float64
}

func fold(records []VariantRecord, keyOf func(VariantRecord) string) []ProductGroup {
	order := make([]string, 0)
	byKey := make(map[string]*accumulator)

	for _, r := range records {
		key := keyOf(r)
		acc, ok := byKey[key]
		if !ok {
			acc = &accumulator{
				group: ProductGroup{
					GroupID:      r.GroupID,
					BaseName:     r.BaseName,
					Thumbnail:    r.Thumbnail,
					CategoryID:   r.CategoryID,
					CategoryName: r.CategoryName,
					UpdatedAt:    r.UpdatedAt,
					Variants:     []VariantSummary{},
					PriceRange:   PriceRange{Min: r.Price, Max: r.Price},
				},
				sizes: make(map[string]struct{}),
			}
			byKey[key] = acc
			order = append(order, key)
		}

		acc.group.Variants = append(acc.group.Variants, VariantSummary{
			ID:        r.ID,
			Name:      r.Name,
			Price:     r.Price,
			Stock:     r.Stock,
			SizeLabel: r.SizeLabel,
		})
		acc.group.TotalStock += r.Stock
		if r.Price < acc.group.PriceRange.Min {
			acc.group.PriceRange.Min = r.Price
		}
		if r.Price > acc.group.PriceRange.Max {
			acc.group.PriceRange.Max = r.Price
		}
		acc.sizes[r.SizeLabel] = struct{}{}
		acc.priceSum += r.Price
	}

	groups := make([]ProductGroup, 0, len(order))
	for _, key := range order {
		acc := byKey[key]
		sizes := make([]string, 0, len(acc.sizes))
		for size := range acc.sizes {
			sizes = append(sizes, size)
		}
		sort.Strings(sizes)
		acc.group.Sizes = sizes
		acc.group.VariantsCount = len(acc.group.Variants)
		acc.group.AveragePrice = acc.priceSum / float64(acc.group.VariantsCount)
		groups = append(groups, acc.group)
	}
	return groups
}
