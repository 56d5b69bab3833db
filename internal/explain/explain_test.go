package explain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx2dax/internal/mdx"
	"mdx2dax/internal/query"
	"mdx2dax/internal/transform"
)

func mustQuery(t *testing.T, input string) *query.Query {
	t.Helper()
	parsed, err := mdx.Parse(input)
	require.NoError(t, err)
	q, err := transform.Transform(parsed, input)
	require.NoError(t, err)
	return q
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "sql", input: "sql", want: FormatSQL},
		{name: "sql-like alias", input: "sql-like", want: FormatSQL},
		{name: "empty defaults to sql", input: "", want: FormatSQL},
		{name: "natural", input: "natural", want: FormatNatural},
		{name: "text alias", input: "text", want: FormatNatural},
		{name: "json", input: "JSON", want: FormatJSON},
		{name: "markdown", input: "markdown", want: FormatMarkdown},
		{name: "md alias", input: "md", want: FormatMarkdown},
		{name: "unknown", input: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExplain_SQL(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON COLUMNS,
		{[Product].[Category].MEMBERS} ON ROWS
		FROM [Adventure Works]
		WHERE ([Date].[Calendar Year].&[2023])`)

	out, err := Explain(q, Config{Format: FormatSQL, Detail: DetailStandard})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "SELECT Product.Category, Sales Amount", lines[0])
	assert.Equal(t, "FROM Adventure Works", lines[1])
	assert.Equal(t, "WHERE Date.Calendar Year = 2023", lines[2])
	assert.Equal(t, "GROUP BY Product.Category", lines[3])
}

func TestExplain_SQLBasicOmitsPredicates(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON COLUMNS,
		{[Product].[Category].MEMBERS} ON ROWS
		FROM [Adventure Works]
		WHERE ([Date].[Calendar Year].&[2023])`)

	out, err := Explain(q, Config{Format: FormatSQL, Detail: DetailBasic})
	require.NoError(t, err)

	assert.NotContains(t, out, "WHERE")
	assert.NotContains(t, out, "GROUP BY")
	assert.Contains(t, out, "SELECT Product.Category, Sales Amount")
}

func TestExplain_SQLEmptyProjection(t *testing.T) {
	q := &query.Query{Cube: query.CubeRef{Name: "Sales"}}

	out, err := Explain(q, Config{Format: FormatSQL})
	require.NoError(t, err)
	assert.Equal(t, "SELECT (empty result)\nFROM Sales", out)
}

func TestExplain_SQLOrderAndLimit(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON COLUMNS,
		TOPCOUNT(ORDER({[Product].[Category].MEMBERS}, [Measures].[Sales Amount], DESC), 5) ON ROWS
		FROM [Adventure Works]`)

	out, err := Explain(q, Config{Format: FormatSQL, Detail: DetailStandard})
	require.NoError(t, err)
	assert.Contains(t, out, "ORDER BY [Sales Amount] DESC")
	assert.Contains(t, out, "LIMIT 5")
}

func TestExplain_SQLIncludeDAX(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]`)

	out, err := Explain(q, Config{Format: FormatSQL, IncludeDAX: true})
	require.NoError(t, err)
	assert.Contains(t, out, "-- equivalent DAX:")
	assert.Contains(t, out, "EVALUATE\n{ [Sales Amount] }")
}

func TestExplain_SQLFullIncludesMetadata(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]`)

	out, err := Explain(q, Config{Format: FormatSQL, Detail: DetailFull, IncludeMetadata: true})
	require.NoError(t, err)
	assert.Contains(t, out, "-- complexity=")
	assert.Contains(t, out, "estimated_rows=")
}

func TestExplain_Natural(t *testing.T) {
	t.Run("measures and dimensions", func(t *testing.T) {
		q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON COLUMNS,
			{[Product].[Category].MEMBERS} ON ROWS
			FROM [Adventure Works]`)

		out, err := Explain(q, Config{Format: FormatNatural})
		require.NoError(t, err)
		assert.Equal(t, "This query summarizes Sales Amount by Product.Category from the Adventure Works cube.", out)
	})

	t.Run("measures only", func(t *testing.T) {
		q := mustQuery(t, `SELECT {[Measures].[Sales Amount], [Measures].[Order Quantity]} ON 0 FROM [Adventure Works]`)

		out, err := Explain(q, Config{Format: FormatNatural})
		require.NoError(t, err)
		assert.Equal(t, "This query returns Sales Amount and Order Quantity from the Adventure Works cube as a single row.", out)
	})

	t.Run("empty projection", func(t *testing.T) {
		q := &query.Query{Cube: query.CubeRef{Name: "Sales"}}

		out, err := Explain(q, Config{Format: FormatNatural})
		require.NoError(t, err)
		assert.Equal(t, "This query returns an empty placeholder row from the Sales cube.", out)
	})

	t.Run("standard detail sentences", func(t *testing.T) {
		q := mustQuery(t, `WITH MEMBER [Measures].[Average Price] AS [Measures].[Sales Amount] / [Measures].[Order Quantity]
			SELECT NON EMPTY {[Measures].[Average Price]} ON COLUMNS,
			TOPCOUNT({[Product].[Category].MEMBERS}, 5) ON ROWS
			FROM [Adventure Works]
			WHERE ([Date].[Calendar Year].&[2023])`)

		out, err := Explain(q, Config{Format: FormatNatural, Detail: DetailStandard})
		require.NoError(t, err)
		assert.Contains(t, out, "Results are restricted to Date.Calendar Year = 2023.")
		assert.Contains(t, out, "Average Price is calculated at query time.")
		assert.Contains(t, out, "Output is capped at 5 rows.")
		assert.Contains(t, out, "Rows with no data are excluded.")
	})
}

func TestListWords(t *testing.T) {
	assert.Equal(t, "nothing", listWords(nil))
	assert.Equal(t, "a", listWords([]string{"a"}))
	assert.Equal(t, "a and b", listWords([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", listWords([]string{"a", "b", "c"}))
}

func TestExplain_JSON(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON COLUMNS,
		{[Product].[Category].MEMBERS} ON ROWS
		FROM [Adventure Works]
		WHERE ([Date].[Calendar Year].&[2023])`)

	out, err := Explain(q, Config{Format: FormatJSON, Detail: DetailStandard, IncludeDAX: true})
	require.NoError(t, err)

	var got struct {
		Cube       string   `json:"cube"`
		Measures   []string `json:"measures"`
		Dimensions []string `json:"dimensions"`
		Filters    []string `json:"filters"`
		DAX        string   `json:"dax"`
		Metadata   *query.Metadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "Adventure Works", got.Cube)
	assert.Equal(t, []string{"Sales Amount"}, got.Measures)
	assert.Equal(t, []string{"Product.Category"}, got.Dimensions)
	assert.Equal(t, []string{"Date.Calendar Year = 2023"}, got.Filters)
	assert.Contains(t, got.DAX, "SUMMARIZECOLUMNS")
	assert.Nil(t, got.Metadata)
}

func TestExplain_JSONFullMetadata(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]`)

	out, err := Explain(q, Config{Format: FormatJSON, Detail: DetailFull, IncludeMetadata: true})
	require.NoError(t, err)

	var got struct {
		Metadata *query.Metadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Metadata)
	assert.Positive(t, got.Metadata.EstimatedRows)
}

func TestExplain_Markdown(t *testing.T) {
	q := mustQuery(t, `WITH MEMBER [Measures].[Average Price] AS [Measures].[Sales Amount] / [Measures].[Order Quantity]
		SELECT {[Measures].[Average Price]} ON COLUMNS,
		{[Product].[Category].[Bikes], [Product].[Category].[Clothing]} ON ROWS
		FROM [Adventure Works]
		WHERE ([Date].[Calendar Year].&[2023])`)

	out, err := Explain(q, Config{Format: FormatMarkdown, Detail: DetailStandard, IncludeDAX: true})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Query Explanation\n"))
	assert.Contains(t, out, "**Cube:** Adventure Works")
	assert.Contains(t, out, "## Measures")
	assert.Contains(t, out, "(calculated)")
	assert.Contains(t, out, "## Dimensions")
	assert.Contains(t, out, "- Product.Category = Bikes, Clothing")
	assert.Contains(t, out, "## Filters")
	assert.Contains(t, out, "- Date.Calendar Year = 2023")
	assert.Contains(t, out, "## Calculations")
	assert.Contains(t, out, "DIVIDE([Sales Amount], [Order Quantity])")
	assert.Contains(t, out, "## Generated DAX")
	assert.Contains(t, out, "```dax\n")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n\n"))
}

func TestExplain_MarkdownBasicOmitsSections(t *testing.T) {
	q := mustQuery(t, `SELECT {[Measures].[Sales Amount]} ON COLUMNS,
		{[Product].[Category].MEMBERS} ON ROWS
		FROM [Adventure Works]
		WHERE ([Date].[Calendar Year].&[2023])`)

	out, err := Explain(q, Config{Format: FormatMarkdown, Detail: DetailBasic})
	require.NoError(t, err)
	assert.NotContains(t, out, "## Filters")
	assert.NotContains(t, out, "## Metadata")
	assert.NotContains(t, out, "## Generated DAX")
}

func TestExplain_NilQuery(t *testing.T) {
	_, err := Explain(nil, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil query")
}
