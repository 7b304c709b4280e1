package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrganizeJSONCommand(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "organized")
	require.NoError(t, os.WriteFile(filepath.Join(src, "1.json"), []byte(`{"category":"Jeans"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "2.json"), []byte(`{"category":"Lamps"}`), 0o644))

	out, err := run(t, "organize", "json", "--src", src, "--dst", dst, "--quiet")
	require.NoError(t, err)
	require.Contains(t, out, "Processed: 2")
	require.Contains(t, out, "others")
	require.FileExists(t, filepath.Join(dst, "bottomwear", "1.json"))
	require.FileExists(t, filepath.Join(dst, "others", "2.json"))
}

func TestOrganizeCSVCommand_RejectsUnknownDimension(t *testing.T) {
	_, err := run(t, "organize", "csv", "--csv", "missing.csv", "--images", t.TempDir(), "--by", "colour", "-q")
	require.ErrorContains(t, err, "unknown dimension")
}

func TestImportCommand_RequiresOneSource(t *testing.T) {
	_, err := run(t, "import", "-q")
	require.ErrorContains(t, err, "exactly one of --src or --csv")
}

func TestCustomRulesFile(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("clothing:\n  - name: lighting\n    keywords: [lamps]\n"), 0o644))

	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "2.json"), []byte(`{"category":"Lamps"}`), 0o644))

	dst := filepath.Join(dir, "dst")
	_, err := run(t, "--rules", rules, "organize", "json", "--src", src, "--dst", dst, "-q")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dst, "lighting", "2.json"))
}
