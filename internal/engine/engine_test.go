package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx2dax/internal/lint"
	"mdx2dax/internal/mdx"
)

func TestConvert_EndToEnd(t *testing.T) {
	res, err := Convert(context.Background(),
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]",
		DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }", res.DAX)
	assert.NotEmpty(t, res.ID)
	require.NotNil(t, res.Query)
	assert.Equal(t, "Adventure Works", res.Query.Cube.Name)
	require.NotNil(t, res.LintReport)
	assert.Greater(t, res.Duration.Nanoseconds(), int64(0))
}

func TestConvert_FullPipeline(t *testing.T) {
	res, err := Convert(context.Background(), `WITH MEMBER [Measures].[Average Price] AS
		[Measures].[Sales Amount] / [Measures].[Order Quantity]
		SELECT { [Measures].[Sales Amount], [Measures].[Average Price] } ON COLUMNS,
		NON EMPTY [Product].[Category].Members ON ROWS
		FROM [Adventure Works]
		WHERE ([Date].[Calendar Year].&[2023])`, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, res.DAX, "DEFINE")
	assert.Contains(t, res.DAX, "MEASURE 'Adventure Works'[Average Price] = DIVIDE([Sales Amount], [Order Quantity])")
	assert.Contains(t, res.DAX, "SUMMARIZECOLUMNS(")
	assert.Contains(t, res.DAX, "'Date'[Calendar Year] = 2023")
}

func TestConvert_EmptyInput(t *testing.T) {
	_, err := Convert(context.Background(), "   \n", DefaultOptions())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query", verr.Field)
}

func TestConvert_ParseErrorPropagates(t *testing.T) {
	_, err := Convert(context.Background(), "SELECT FROM nowhere garbage", DefaultOptions())
	var perr *mdx.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestConvert_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Convert(ctx, "SELECT {[Measures].[X]} ON 0 FROM [Cube]", DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestConvert_SkipLint(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipLint = true

	res, err := Convert(context.Background(),
		"SELECT {[Measures].[X], [Measures].[X]} ON 0 FROM [Cube]", opts)
	require.NoError(t, err)
	assert.Nil(t, res.LintReport)
}

func TestConvert_LintConfigErrorIsFatal(t *testing.T) {
	opts := DefaultOptions()
	opts.Lint.Level = lint.LevelConservative
	opts.Lint.Rules = map[string]bool{"no_such_rule": true}

	_, err := Convert(context.Background(), "SELECT {[Measures].[X]} ON 0 FROM [Cube]", opts)
	var cerr *lint.ConfigurationError
	require.ErrorAs(t, err, &cerr)
}

func TestConvert_WarningsSurface(t *testing.T) {
	res, err := Convert(context.Background(),
		"SELECT [Product].[Category].Members ON ROWS FROM [Cube]", DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, res.Warnings, "query defines no measures")
}

func TestConvertBatch(t *testing.T) {
	queries := []string{
		"SELECT {[Measures].[A]} ON 0 FROM [Cube]",
		"this is not MDX",
		"SELECT {[Measures].[B]} ON 0 FROM [Cube]",
	}

	items, err := ConvertBatch(context.Background(), queries, DefaultOptions(), 2)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Results stay in input order; one failure does not poison siblings.
	assert.Equal(t, 0, items[0].Index)
	require.NoError(t, items[0].Err)
	assert.Contains(t, items[0].Result.DAX, "[A]")

	assert.Error(t, items[1].Err)
	assert.Nil(t, items[1].Result)

	require.NoError(t, items[2].Err)
	assert.Contains(t, items[2].Result.DAX, "[B]")
}

func TestConvertBatch_Empty(t *testing.T) {
	items, err := ConvertBatch(context.Background(), nil, DefaultOptions(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConvertBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConvertBatch(ctx, []string{"SELECT {[Measures].[X]} ON 0 FROM [Cube]"},
		DefaultOptions(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch conversion aborted")
}
