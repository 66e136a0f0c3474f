package catalog

import (
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/rinaldiihsan/sixstreet-sub001/pkg/errors"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/pagination"
)

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortName      SortOrder = "name"
)

// ParseSortOrder maps the query value onto a SortOrder; blank means newest.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	case SortName:
		return SortName, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sort must be one of newest, price_asc, price_desc, name")
	}
}

// GroupKey selects how variants are folded into groups.
type GroupKey string

const (
	// GroupByID keys on the backend group id, falling back to the base name.
	GroupByID GroupKey = "group_id"
	// GroupByName keys on the base display name only.
	GroupByName GroupKey = "base_name"
)

// ParseGroupKey maps the query value onto a GroupKey; blank means GroupByID.
func ParseGroupKey(value string) (GroupKey, error) {
	switch GroupKey(strings.ToLower(strings.TrimSpace(value))) {
	case "", GroupByID:
		return GroupByID, nil
	case GroupByName:
		return GroupByName, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "group_by must be one of group_id, base_name")
	}
}

// ListOptions are the browse knobs. GroupBy picks the grouping, the rest
// apply after it.
type ListOptions struct {
	GroupBy     GroupKey
	Query       string
	CategoryID  string
	InStockOnly bool
	Sort        SortOrder
	Pagination  pagination.Params
}

// GroupPage is one page of filtered, sorted groups.
type GroupPage struct {
	Items      []ProductGroup
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Apply filters, sorts and paginates groups. The input slice is not modified.
func Apply(groups []ProductGroup, opts ListOptions) GroupPage {
	query := strings.ToLower(strings.TrimSpace(opts.Query))
	category := strings.TrimSpace(opts.CategoryID)

	filtered := make([]ProductGroup, 0, len(groups))
	for _, g := range groups {
		if query != "" && !strings.Contains(strings.ToLower(g.BaseName), query) {
			continue
		}
		if category != "" && g.CategoryID != category {
			continue
		}
		if opts.InStockOnly && g.TotalStock <= 0 {
			continue
		}
		filtered = append(filtered, g)
	}

	sortGroups(filtered, opts.Sort)

	params := opts.Pagination.Normalize()
	start, end := params.Bounds(len(filtered))
	return GroupPage{
		Items:      filtered[start:end],
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      len(filtered),
		TotalPages: params.TotalPages(len(filtered)),
	}
}

func sortGroups(groups []ProductGroup, order SortOrder) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].PriceRange.Min < groups[j].PriceRange.Min
		})
	case SortPriceDesc:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].PriceRange.Max > groups[j].PriceRange.Max
		})
	case SortName:
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].BaseName) < strings.ToLower(groups[j].BaseName)
		})
	default:
		sort.SliceStable(groups, func(i, j int) bool {
			ti, okI := parseTimestamp(groups[i].UpdatedAt)
			tj, okJ := parseTimestamp(groups[j].UpdatedAt)
			if okI != okJ {
				return okI
			}
			return ti.After(tj)
		})
	}
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
