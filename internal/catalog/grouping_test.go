package catalog

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id, name, group string, price float64, stock int) VariantRecord {
	return NewVariantRecord(VariantRecord{ID: id, Name: name, GroupID: group, Price: price, Stock: stock})
}

func TestGroupShirtAndPantsScenario(t *testing.T) {
	records := []VariantRecord{
		rec("1", "Shirt - S", "G1", 100000, 3),
		rec("2", "Shirt - M", "G1", 100000, 0),
		rec("3", "Pants - 30", "G2", 250000, 5),
	}

	groups := Group(records)
	require.Len(t, groups, 2)

	g1 := groups[0]
	assert.Equal(t, "G1", g1.GroupID)
	assert.Equal(t, "Shirt", g1.BaseName)
	assert.Equal(t, 3, g1.TotalStock)
	assert.Equal(t, []string{"M", "S"}, g1.Sizes)
	assert.Equal(t, PriceRange{Min: 100000, Max: 100000}, g1.PriceRange)
	assert.Equal(t, 2, g1.VariantsCount)

	g2 := groups[1]
	assert.Equal(t, "G2", g2.GroupID)
	assert.Equal(t, 5, g2.TotalStock)
	assert.Equal(t, []string{"30"}, g2.Sizes)
	assert.Equal(t, float64(250000), g2.AveragePrice)
}

func TestSplitDisplayName(t *testing.T) {
	cases := []struct {
		name, base, size string
	}{
		{"Shirt - S", "Shirt", "S"},
		{"  Air Max 90 - 42 ", "Air Max 90", "42"},
		{"Tote Bag", "Tote Bag", SizeSentinel},
		{"Cap - ", "Cap", SizeSentinel},
		{"Hoodie-XL", "Hoodie-XL", SizeSentinel},
	}
	for _, tc := range cases {
		base, size := SplitDisplayName(tc.name)
		assert.Equal(t, tc.base, base, tc.name)
		assert.Equal(t, tc.size, size, tc.name)
	}
}

func TestGroupEmptyInput(t *testing.T) {
	groups := Group(nil)
	require.NotNil(t, groups)
	require.Empty(t, groups)
	require.Empty(t, GroupByBaseName([]VariantRecord{}))
}

func TestGroupFirstSeenMetadataWins(t *testing.T) {
	first := rec("1", "Jacket - M", "J", 300000, 1)
	first.Thumbnail = "first.jpg"
	first.CategoryName = "Outerwear"
	second := rec("2", "Jacket - L", "J", 350000, 2)
	second.Thumbnail = "second.jpg"
	second.CategoryName = "Sale"

	groups := Group([]VariantRecord{first, second})
	require.Len(t, groups, 1)
	assert.Equal(t, "first.jpg", groups[0].Thumbnail)
	assert.Equal(t, "Outerwear", groups[0].CategoryName)
	assert.Equal(t, PriceRange{Min: 300000, Max: 350000}, groups[0].PriceRange)
	assert.Equal(t, float64(325000), groups[0].AveragePrice)
}

func TestGroupKeepsDuplicateSizesInVariants(t *testing.T) {
	groups := Group([]VariantRecord{
		rec("1", "Tee - M", "T", 90000, 1),
		rec("2", "Tee - M", "T", 95000, 4),
	})
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Variants, 2)
	assert.Equal(t, []string{"M"}, groups[0].Sizes)
}

func TestGroupFallsBackToBaseNameWithoutGroupID(t *testing.T) {
	groups := Group([]VariantRecord{
		rec("1", "Socks - S", "", 20000, 1),
		rec("2", "Socks - M", "", 20000, 1),
		rec("3", "Socks - L", "S9", 20000, 1),
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "", groups[0].GroupID)
	assert.Equal(t, 2, groups[0].VariantsCount)
	assert.Equal(t, "S9", groups[1].GroupID)
}

func TestGroupByBaseNameIgnoresGroupID(t *testing.T) {
	groups := GroupByBaseName([]VariantRecord{
		rec("1", "Shirt - S", "G1", 100000, 3),
		rec("2", "Shirt - M", "G7", 120000, 1),
		rec("3", "Shirt", "G9", 80000, 2),
	})
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "G1", g.GroupID)
	assert.Equal(t, []string{"M", SizeSentinel, "S"}, g.Sizes)
	assert.Equal(t, PriceRange{Min: 80000, Max: 120000}, g.PriceRange)
	assert.Equal(t, 6, g.TotalStock)
}

func TestGroupNaNPricePropagates(t *testing.T) {
	groups := Group([]VariantRecord{
		rec("1", "Shirt - S", "G1", 100000, 1),
		rec("2", "Shirt - M", "G1", math.NaN(), 1),
	})
	require.Len(t, groups, 1)
	assert.True(t, math.IsNaN(groups[0].AveragePrice))
}

func TestGroupProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bases := []string{"Shirt", "Pants", "Cap", "Jacket", "Sneaker"}
	sizes := []string{"S", "M", "L", "XL", ""}

	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		records := make([]VariantRecord, 0, n)
		inputStock := 0
		for i := 0; i < n; i++ {
			base := bases[rng.Intn(len(bases))]
			name := base
			if size := sizes[rng.Intn(len(sizes))]; size != "" {
				name = base + " - " + size
			}
			stock := rng.Intn(10)
			inputStock += stock
			records = append(records, rec("", name, "", float64(rng.Intn(500))*1000, stock))
		}

		for _, grouper := range []func([]VariantRecord) []ProductGroup{Group, GroupByBaseName} {
			groups := grouper(records)

			total := 0
			perBase := map[string]int{}
			for _, r := range records {
				perBase[r.BaseName]++
			}
			seen := map[string]bool{}
			for _, g := range groups {
				total += g.TotalStock
				require.LessOrEqual(t, g.PriceRange.Min, g.PriceRange.Max)
				require.True(t, hasPrice(g, g.PriceRange.Min))
				require.True(t, hasPrice(g, g.PriceRange.Max))
				require.Equal(t, perBase[g.BaseName], len(g.Variants))
				require.False(t, seen[g.BaseName], "base name %q split across groups", g.BaseName)
				seen[g.BaseName] = true
			}
			require.Equal(t, inputStock, total)

			again := grouper(records)
			require.True(t, reflect.DeepEqual(groups, again))
		}
	}
}

func TestGroupKeyStabilityAcrossPermutations(t *testing.T) {
	records := []VariantRecord{
		rec("1", "Shirt - S", "", 1, 1),
		rec("2", "Pants - 30", "", 2, 1),
		rec("3", "Shirt - M", "", 3, 1),
		rec("4", "Pants - 32", "", 4, 1),
		rec("5", "Shirt - L", "", 5, 1),
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]VariantRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		groups := Group(shuffled)
		require.Len(t, groups, 2)
		counts := map[string]int{}
		for _, g := range groups {
			counts[g.BaseName] = g.VariantsCount
		}
		require.Equal(t, map[string]int{"Shirt": 3, "Pants": 2}, counts)
	}
}

func hasPrice(g ProductGroup, price float64) bool {
	for _, v := range g.Variants {
		if v.Price == price {
			return true
		}
	}
	return false
}
