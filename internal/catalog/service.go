package catalog

import (
	"context"
	"strings"

	"github.com/rinaldiihsan/sixstreet-sub001/pkg/backend"
	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
)

// ProductSource is the slice of the backend client the catalog needs.
type ProductSource interface {
	ListProducts(ctx context.Context, token string) ([]backend.Product, error)
	GetProductGroup(ctx context.Context, token, groupID string) (*backend.ProductGroup, error)
}

type Service interface {
	ListGroups(ctx context.Context, token string, opts ListOptions) (GroupPage, error)
	GetGroup(ctx context.Context, token, groupID string) (*GroupDetail, error)
}

// GroupDetail is the backend group payload plus the aggregate built from its SKUs.
type GroupDetail struct {
	ID           string
	Name         string
	Description  string
	CategoryID   string
	CategoryName string
	Variations   []backend.Variation
	SKUs         []backend.SKU
	Images       []backend.Image
	Group        ProductGroup
}

type service struct {
	source ProductSource
	logg   *logger.Logger
}

func NewService(source ProductSource, logg *logger.Logger) Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{source: source, logg: logg}
}

// ListGroups regroups the full variant list on every call; groups are never cached.
func (s *service) ListGroups(ctx context.Context, token string, opts ListOptions) (GroupPage, error) {
	if s == nil || s.source == nil {
		return GroupPage{}, pkgerrors.New(pkgerrors.CodeDependency, "catalog backend unavailable")
	}
	products, err := s.source.ListProducts(ctx, token)
	if err != nil {
		return GroupPage{}, err
	}

	// Rows whose price is not a number cannot be priced or serialized; they
	// are dropped so the rest of the catalog still lists.
	records := make([]VariantRecord, 0, len(products))
	var unpriced []string
	for _, p := range products {
		if !p.Price.Valid() {
			unpriced = append(unpriced, p.ID.String())
			continue
		}
		records = append(records, RecordFromProduct(p))
	}
	s.warnUnpriced(ctx, unpriced)
	var groups []ProductGroup
	if opts.GroupBy == GroupByName {
		groups = GroupByBaseName(records)
	} else {
		groups = Group(records)
	}

	page := Apply(groups, opts)
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"group_by": opts.GroupBy,
		"variants": len(records),
		"groups":   len(groups),
		"matched":  page.Total,
	}), "catalog.list_groups")
	return page, nil
}

func (s *service) GetGroup(ctx context.Context, token, groupID string) (*GroupDetail, error) {
	if s == nil || s.source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog backend unavailable")
	}
	trimmed := strings.TrimSpace(groupID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}

	raw, err := s.source.GetProductGroup(ctx, token, trimmed)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product group not found")
	}

	id := raw.ID.String()
	if id == "" {
		id = trimmed
	}
	thumbnail := ""
	if len(raw.Images) > 0 {
		thumbnail = raw.Images[0].URL
	}

	skus := make([]backend.SKU, 0, len(raw.SKUs))
	var unpriced []string
	for _, sku := range raw.SKUs {
		if !sku.Price.Valid() {
			unpriced = append(unpriced, sku.ID.String())
			continue
		}
		skus = append(skus, sku)
	}
	s.warnUnpriced(s.logg.WithField(ctx, "group_id", id), unpriced)

	records := make([]VariantRecord, 0, len(skus))
	for _, sku := range skus {
		name := sku.Name
		if strings.TrimSpace(name) == "" {
			name = raw.Name
		}
		thumb := sku.Thumbnail
		if thumb == "" {
			thumb = thumbnail
		}
		records = append(records, NewVariantRecord(VariantRecord{
			ID:           sku.ID.String(),
			Name:         name,
			GroupID:      id,
			Price:        float64(sku.Price),
			Stock:        int(sku.Stock),
			CategoryID:   raw.CategoryID.String(),
			CategoryName: raw.CategoryName,
			Thumbnail:    thumb,
			UpdatedAt:    raw.UpdatedAt,
		}))
	}

	detail := &GroupDetail{
		ID:           id,
		Name:         raw.Name,
		Description:  raw.Description,
		CategoryID:   raw.CategoryID.String(),
		CategoryName: raw.CategoryName,
		Variations:   nonNil(raw.Variations),
		SKUs:         skus,
		Images:       nonNil(raw.Images),
	}
	if groups := Group(records); len(groups) > 0 {
		detail.Group = groups[0]
	} else {
		base, _ := SplitDisplayName(raw.Name)
		detail.Group = ProductGroup{
			GroupID:      id,
			BaseName:     base,
			Thumbnail:    thumbnail,
			CategoryID:   detail.CategoryID,
			CategoryName: detail.CategoryName,
			UpdatedAt:    raw.UpdatedAt,
			Variants:     []VariantSummary{},
			Sizes:        []string{},
		}
	}
	return detail, nil
}

func (s *service) warnUnpriced(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "variant_ids", ids), "catalog.unparseable_price")
}

// RecordFromProduct is the decode boundary from a backend row to a VariantRecord.
func RecordFromProduct(p backend.Product) VariantRecord {
	return NewVariantRecord(VariantRecord{
		ID:           p.ID.String(),
		Name:         p.Name,
		GroupID:      p.GroupID.String(),
		Price:        float64(p.Price),
		Stock:        int(p.Stock),
		CategoryID:   p.CategoryID.String(),
		CategoryName: p.CategoryName,
		Thumbnail:    p.Thumbnail,
		UpdatedAt:    p.UpdatedAt,
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
