package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHints_Classification(t *testing.T) {
	tests := []struct {
		name     string
		comment  string
		wantType HintType
	}{
		{"performance", "-- performance: full scan expected", HintPerformance},
		{"optimize", "-- optimize this join", HintPerformance},
		{"cache", "-- cache: result is stable for a day", HintCaching},
		{"index", "-- index on order date recommended", HintIndex},
		{"aggregation", "-- aggregation: rollup to month", HintAggregation},
		{"pushdown", "-- pushdown the year filter", HintFilterPushDown},
		{"materialize", "-- materialize the category set", HintMaterialization},
		{"parallel", "-- parallel scan is safe here", HintParallel},
		{"memory", "-- memory: large intermediate set", HintMemory},
		{"todo", "-- TODO revisit after cube migration", HintCustom},
		{"fixme", "-- FIXME wrong level", HintCustom},
	}

	base := "SELECT { [Measures].[X] } ON COLUMNS FROM [Cube]"
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := mustParse(t, tc.comment+"\n"+base)
			hints := ExtractHints(q, "")
			require.Len(t, hints, 1)
			assert.Equal(t, tc.wantType, hints[0].Type)
		})
	}
}

func TestExtractHints_KeywordPrefixStripped(t *testing.T) {
	q := mustParse(t, "-- performance: full scan expected\nSELECT { [Measures].[X] } ON COLUMNS FROM [Cube]")
	hints := ExtractHints(q, "")
	require.Len(t, hints, 1)
	assert.Equal(t, "full scan expected", hints[0].Message)
	assert.Equal(t, 1, hints[0].Line)
}

func TestExtractHints_Severity(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    Severity
	}{
		{"info_default", "-- performance: slow scan", SeverityInfo},
		{"warning", "-- performance warning: slow scan", SeverityWarning},
		{"error", "-- performance error: missing aggregate", SeverityError},
		{"critical", "-- cache critical: stale results", SeverityError},
	}

	base := "SELECT { [Measures].[X] } ON COLUMNS FROM [Cube]"
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hints := ExtractHints(mustParse(t, tc.comment+"\n"+base), "")
			require.Len(t, hints, 1)
			assert.Equal(t, tc.want, hints[0].Severity)
		})
	}
}

func TestExtractHints_Dedup(t *testing.T) {
	q := mustParse(t, `-- performance: slow
		-- performance: slow
		SELECT { [Measures].[X] } ON COLUMNS FROM [Cube]`)
	hints := ExtractHints(q, "")
	assert.Len(t, hints, 1)
}

func TestExtractHints_PlainCommentsIgnored(t *testing.T) {
	q := mustParse(t, "-- quarterly report\nSELECT { [Measures].[X] } ON COLUMNS FROM [Cube]")
	assert.Empty(t, ExtractHints(q, ""))
}

func TestExtractHints_SourceRescan(t *testing.T) {
	// Hints are recoverable from raw text even without a parsed tree.
	source := "/* optimize: prefer the monthly rollup */ SELECT ..."
	hints := ExtractHints(nil, source)
	require.Len(t, hints, 1)
	assert.Equal(t, HintPerformance, hints[0].Type)
}

func TestExtractQueryMetadata(t *testing.T) {
	q := mustParse(t, `/*
		 * Author: BI Team
		 * Created: 2024-01-15
		 * Purpose: monthly revenue snapshot
		 * Data Source: warehouse
		 */
		SELECT { [Measures].[X] } ON COLUMNS FROM [Cube]`)

	meta := ExtractQueryMetadata(q, "")
	assert.Equal(t, "BI Team", meta["author"])
	assert.Equal(t, "2024-01-15", meta["created"])
	assert.Equal(t, "monthly revenue snapshot", meta["purpose"])
	assert.Equal(t, "warehouse", meta["data source"])
}

func TestExtractQueryMetadata_LineCommentsIgnored(t *testing.T) {
	q := mustParse(t, "-- author: nobody\nSELECT { [Measures].[X] } ON COLUMNS FROM [Cube]")
	assert.Empty(t, ExtractQueryMetadata(q, ""))
}
