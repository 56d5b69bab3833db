package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
)

func mustParse(t *testing.T, input string) *mdx.Query {
	t.Helper()
	q, err := mdx.Parse(input)
	require.NoError(t, err)
	return q
}

func TestNormalizer_DeepestLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		hierarchy string
		want      string
	}{
		{
			"single_level",
			"SELECT [Product].[Category].Members ON ROWS FROM [Cube]",
			"Product", "Category",
		},
		{
			"deeper_level_wins",
			`SELECT [Product].[Category].Members ON ROWS,
			 [Product].[Category].[Subcategory].Members ON COLUMNS FROM [Cube]`,
			"Product", "Subcategory",
		},
		{
			"year_inferred_from_value",
			"SELECT { [Measures].[X] } ON COLUMNS FROM [Cube] WHERE [Date].[2023]",
			"Date", "Year",
		},
		{
			"quarter_inferred_from_value",
			"SELECT { [Measures].[X] } ON COLUMNS FROM [Cube] WHERE [Date].[Q3]",
			"Date", "Quarter",
		},
		{
			"month_inferred_from_value",
			"SELECT { [Measures].[X] } ON COLUMNS FROM [Cube] WHERE [Date].[March]",
			"Date", "Month",
		},
		{
			"unreferenced_hierarchy",
			"SELECT { [Measures].[X] } ON COLUMNS FROM [Cube]",
			"Geography", "All",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := NewNormalizer(mustParse(t, tc.input))
			assert.Equal(t, tc.want, n.DeepestLevel(tc.hierarchy))
		})
	}
}

func TestNormalizer_IgnoresMeasures(t *testing.T) {
	n := NewNormalizer(mustParse(t,
		"SELECT { [Measures].[Sales Amount], [Measures].[Order Quantity] } ON COLUMNS FROM [Cube]"))
	assert.Empty(t, n.Mappings())
	assert.Equal(t, 0, n.MaxDepth())
}

func TestNormalizer_Ragged(t *testing.T) {
	// Member paths for Geography reach different depths.
	q := mustParse(t, `SELECT { [Geography].[Country].[France], [Geography].[Country].[State].[Bavaria] } ON ROWS,
		{ [Measures].[X] } ON COLUMNS FROM [Cube]`)
	n := NewNormalizer(q)
	assert.True(t, n.IsRagged("Geography"))

	uniform := mustParse(t, "SELECT { [Geography].[Country].[France], [Geography].[Country].[Spain] } ON ROWS FROM [Cube]")
	assert.False(t, NewNormalizer(uniform).IsRagged("Geography"))
}

func TestNormalizer_RedundantLevel(t *testing.T) {
	n := NewNormalizer(mustParse(t,
		`SELECT [Product].[Category].Members ON ROWS,
		 [Product].[Category].[Subcategory].Members ON COLUMNS FROM [Cube]`))
	assert.True(t, n.IsRedundantLevel("Product", "Category"))
	assert.False(t, n.IsRedundantLevel("Product", "Subcategory"))
	assert.False(t, n.IsRedundantLevel("Unknown", "Anything"))
}

func TestNormalizer_NormalizedDimension(t *testing.T) {
	n := NewNormalizer(mustParse(t,
		"SELECT [Date].[Year].Members ON ROWS, { [Date].[Year].[2023] } ON COLUMNS FROM [Cube]"))

	t.Run("all_selection", func(t *testing.T) {
		d := n.NormalizedDimension("Date", "Year", nil)
		assert.Equal(t, "Date", d.Table)
		assert.Equal(t, "Year", d.Level)
		assert.Equal(t, query.SelectAll, d.Selection.Kind)
	})

	t.Run("specific_selection", func(t *testing.T) {
		d := n.NormalizedDimension("Date", "", []string{"2023"})
		assert.Equal(t, query.SelectSpecific, d.Selection.Kind)
		assert.Equal(t, []string{"2023"}, d.Selection.Members)
	})

	t.Run("unknown_hierarchy_defaults", func(t *testing.T) {
		d := n.NormalizedDimension("Geography", "", nil)
		assert.Equal(t, "All", d.Level)
	})
}

func TestInferHierarchy_FallbackForValueFirstPaths(t *testing.T) {
	q := mustParse(t, "SELECT { [Measures].[X] } ON COLUMNS FROM [Cube] WHERE [2023].[Q1]")
	n := NewNormalizer(q)
	assert.NotNil(t, n.Mapping(DefaultHierarchy))
}
