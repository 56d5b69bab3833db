package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with the given args and stdin, returning
// captured stdout and stderr.
func runCLI(stdin string, args ...string) (string, string, error) {
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestConvertCmd_Argument(t *testing.T) {
	stdout, _, err := runCLI("", "convert",
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]")
	require.NoError(t, err)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }\n", stdout)
}

func TestConvertCmd_Stdin(t *testing.T) {
	stdout, _, err := runCLI(
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]",
		"convert")
	require.NoError(t, err)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }\n", stdout)
}

func TestConvertCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.mdx")
	require.NoError(t, os.WriteFile(path,
		[]byte("SELECT {[Measures].[Order Quantity]} ON 0 FROM [Adventure Works]"), 0o600))

	stdout, _, err := runCLI("", "convert", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, "EVALUATE\n{ [Order Quantity] }\n", stdout)
}

func TestConvertCmd_NoInput(t *testing.T) {
	_, _, err := runCLI("", "convert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query supplied")
}

func TestConvertCmd_JSONOutput(t *testing.T) {
	stdout, _, err := runCLI("", "--output", "json", "convert",
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]")
	require.NoError(t, err)

	var payload struct {
		ID  string `json:"id"`
		DAX string `json:"dax"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.NotEmpty(t, payload.ID)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }", payload.DAX)
}

func TestConvertCmd_ParseError(t *testing.T) {
	_, _, err := runCLI("", "convert", "SELECT FROM")
	require.Error(t, err)
}

func TestConvertCmd_BadLevel(t *testing.T) {
	_, _, err := runCLI("", "convert", "--optimization-level", "turbo",
		"SELECT {[Measures].[X]} ON 0 FROM [C]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown level")
}

func TestConvertCmd_WarningsGoToStderr(t *testing.T) {
	stdout, stderr, err := runCLI("", "convert",
		"SELECT {[Product].[Category].MEMBERS} ON 0 FROM [Adventure Works]")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "warning:")
	assert.Contains(t, stderr, "warning: query defines no measures")
}

func TestConvertCmd_BatchDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mdx"),
		[]byte("SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mdx"),
		[]byte("SELECT {[Measures].[Order Quantity]} ON 0 FROM [Adventure Works]"), 0o600))

	stdout, _, err := runCLI("", "convert", "--batch-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "a.mdx -> ")
	assert.Contains(t, stdout, "b.mdx -> ")

	data, err := os.ReadFile(filepath.Join(dir, "a.dax"))
	require.NoError(t, err)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "b.dax"))
	require.NoError(t, err)
	assert.Equal(t, "EVALUATE\n{ [Order Quantity] }\n", string(data))
}

func TestConvertCmd_BatchDirPartialFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.mdx"),
		[]byte("SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.mdx"),
		[]byte("SELECT GARBAGE"), 0o600))

	_, stderr, err := runCLI("", "convert", "--batch-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 queries failed")
	assert.Contains(t, stderr, "bad.mdx")

	_, statErr := os.Stat(filepath.Join(dir, "good.dax"))
	assert.NoError(t, statErr)
}

func TestConvertCmd_BatchDirEmpty(t *testing.T) {
	_, _, err := runCLI("", "convert", "--batch-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .mdx files")
}

func TestConvertCmd_OptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimization-level: AGGRESSIVE\nskip-lint: false\n"), 0o600))

	stdout, _, err := runCLI("", "--options", path, "convert",
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]")
	require.NoError(t, err)
	assert.Equal(t, "EVALUATE\n{ [Sales Amount] }\n", stdout)
}

func TestConvertCmd_OptionsFileInvalid(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "options.yaml")
		require.NoError(t, os.WriteFile(path, []byte("optimization-level: MAXIMUM\n"), 0o600))

		_, _, err := runCLI("", "--options", path, "convert", "SELECT {[Measures].[X]} ON 0 FROM [C]")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown level")
	})

	t.Run("unknown rule", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "options.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  mystery_rule: true\n"), 0o600))

		_, _, err := runCLI("", "--options", path, "convert", "SELECT {[Measures].[X]} ON 0 FROM [C]")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown rule")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := runCLI("", "--options", filepath.Join(t.TempDir(), "absent.yaml"),
			"convert", "SELECT {[Measures].[X]} ON 0 FROM [C]")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read options file")
	})
}

func TestLintCmd(t *testing.T) {
	stdout, stderr, err := runCLI("", "lint",
		"SELECT {[Measures].[Sales], [Measures].[Sales]} ON 0 FROM [Cube]")
	require.NoError(t, err)
	assert.Equal(t, "SELECT {[Measures].[Sales]} ON COLUMNS FROM [Cube]\n", stdout)
	assert.Contains(t, stderr, "level=CONSERVATIVE")
	assert.Contains(t, stderr, "remove_duplicates")
}

func TestLintCmd_JSONOutput(t *testing.T) {
	stdout, _, err := runCLI("", "-o", "json", "lint",
		"SELECT {[Measures].[Sales]} ON 0 FROM [Cube]")
	require.NoError(t, err)

	var payload struct {
		MDX    string `json:"mdx"`
		Report struct {
			LevelName string `json:"level"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "SELECT {[Measures].[Sales]} ON COLUMNS FROM [Cube]", payload.MDX)
	assert.Equal(t, "CONSERVATIVE", payload.Report.LevelName)
}

func TestLintCmd_BadLevel(t *testing.T) {
	_, _, err := runCLI("", "lint", "--optimization-level", "turbo",
		"SELECT {[Measures].[X]} ON 0 FROM [C]")
	require.Error(t, err)
}

func TestExplainCmd(t *testing.T) {
	stdout, _, err := runCLI("", "explain", "--format", "natural",
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sales Amount")
	assert.Contains(t, stdout, "Adventure Works cube")
}

func TestExplainCmd_BadFormat(t *testing.T) {
	_, _, err := runCLI("", "explain", "--format", "yaml",
		"SELECT {[Measures].[X]} ON 0 FROM [C]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown explanation format")
}

func TestExplainCmd_JSONFormat(t *testing.T) {
	stdout, _, err := runCLI("", "explain", "--format", "json",
		"SELECT {[Measures].[Sales Amount]} ON 0 FROM [Adventure Works]")
	require.NoError(t, err)

	var payload struct {
		Cube     string   `json:"cube"`
		Measures []string `json:"measures"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "Adventure Works", payload.Cube)
	assert.Equal(t, []string{"Sales Amount"}, payload.Measures)
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := runCLI("", "version")
	require.NoError(t, err)
	assert.Equal(t, "mdx2dax dev (none)\n", stdout)
}
