package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoonsio/fieldbatch/internal/base"
	"github.com/yoonsio/fieldbatch/internal/cli"
	"github.com/yoonsio/fieldbatch/internal/config"
)

// testEnv isolates a CLI run from the user's config and base.
type testEnv struct {
	dir      string
	baseFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{
		config.EnvConfigFile, config.EnvBaseFile, config.EnvLogLevel,
		config.EnvLogFormat, config.EnvLanguage, config.EnvConcurrency,
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &testEnv{dir: dir, baseFile: filepath.Join(dir, "base.yaml")}
}

// run executes fieldctl with args and returns stdout, stderr and the error.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(e.dir, "config.yaml"),
		"--base", e.baseFile,
	}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := e.run(t, args...)
	require.NoError(t, err, "stderr: %s", errOut)
	return out
}

func (e *testEnv) loadBase(t *testing.T) *base.Base {
	t.Helper()
	b, err := base.Load(e.baseFile)
	require.NoError(t, err)
	return b
}

func TestTypes(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "types")
	assert.Contains(t, out, "single_select")
	assert.Contains(t, out, "Single select")
	assert.Contains(t, out, "99004")

	out = env.mustRun(t, "--lang", "zh", "types")
	assert.Contains(t, out, "单选")
}

func TestTablesAndSelect(t *testing.T) {
	env := newTestEnv(t)

	id := strings.TrimSpace(env.mustRun(t, "tables", "create", "Tasks"))
	assert.True(t, strings.HasPrefix(id, "tbl"))

	_, _, err := env.run(t, "tables", "create", "Tasks")
	require.ErrorIs(t, err, base.ErrDuplicateTableName)

	out := env.mustRun(t, "tables")
	assert.Contains(t, out, "Tasks")

	env.mustRun(t, "select", "--table", "Tasks")
	assert.Equal(t, id, env.loadBase(t).Selection().TableID)

	out = env.mustRun(t, "tables")
	assert.Contains(t, out, "* ")
}

func TestFieldsAdd(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tables", "create", "Tasks")

	t.Run("NoTableSelected", func(t *testing.T) {
		_, _, err := env.run(t, "fields", "add", "--field", "Title")
		require.Error(t, err)
	})

	env.mustRun(t, "select", "--table", "Tasks")

	t.Run("NoFields", func(t *testing.T) {
		out := env.mustRun(t, "fields", "add")
		assert.Contains(t, out, "No new fields to add")
	})

	t.Run("AllAdded", func(t *testing.T) {
		out := env.mustRun(t, "fields", "add",
			"--field", "Title",
			"--field", "Estimate:number",
			"--field", "Due date:date_time",
		)
		assert.Contains(t, out, "Added 3 fields")

		table, err := env.loadBase(t).TableByName("Tasks")
		require.NoError(t, err)
		due, err := table.FieldByName("Due date")
		require.NoError(t, err)
		assert.Equal(t, base.DateTime, due.Type)
		title, err := table.FieldByName("Title")
		require.NoError(t, err)
		assert.Equal(t, base.Text, title.Type)
	})

	t.Run("RepeatedName", func(t *testing.T) {
		out, _, err := env.run(t, "fields", "add", "--table", "Tasks", "--field", "Title", "--field", "Owner:user")
		require.ErrorIs(t, err, cli.ErrPartialFailure)
		assert.Contains(t, out, "1 of 2 fields could not be added")
		assert.Contains(t, out, "Title")

		table, err := env.loadBase(t).TableByName("Tasks")
		require.NoError(t, err)
		_, err = table.FieldByName("Owner")
		require.NoError(t, err, "successful fields are saved")
	})

	t.Run("ListFiltered", func(t *testing.T) {
		out := env.mustRun(t, "fields", "list", "--type", "number")
		assert.Contains(t, out, "Estimate")
		assert.NotContains(t, out, "Title")
	})
}

func TestFieldsDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tables", "create", "Tasks")
	env.mustRun(t, "select", "--table", "Tasks")
	env.mustRun(t, "fields", "add", "--field", "A", "--field", "B", "--field", "C")

	out := env.mustRun(t, "fields", "delete", "A", "B")
	assert.Contains(t, out, "Deleted 2 fields")

	out, _, err := env.run(t, "fields", "delete", "C", "Missing")
	require.ErrorIs(t, err, cli.ErrPartialFailure)
	assert.Contains(t, out, "1 of 2 fields could not be deleted")
	assert.Contains(t, out, "Missing")

	table, err := env.loadBase(t).TableByName("Tasks")
	require.NoError(t, err)
	list, err := table.FieldMetaList()
	require.NoError(t, err)
	assert.Empty(t, list)

	_, _, err = env.run(t, "fields", "delete")
	require.Error(t, err)
}

func TestSelectTargetField(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tables", "create", "Tasks")
	env.mustRun(t, "select", "--table", "Tasks")
	env.mustRun(t, "fields", "add", "--field", "Title", "--field", "Score:rating")

	out := env.mustRun(t, "select", "--type", "text")
	assert.Contains(t, out, "Selection saved")
	assert.Contains(t, out, "Title")
	assert.NotContains(t, out, "Score")

	_, _, err := env.run(t, "select", "--field", "Score", "--type", "text")
	require.Error(t, err)

	env.mustRun(t, "select", "--field", "Title", "--type", "text")
	b := env.loadBase(t)
	table, err := b.TableByName("Tasks")
	require.NoError(t, err)
	title, err := table.FieldByName("Title")
	require.NoError(t, err)
	assert.Equal(t, title.ID, b.Selection().FieldID)
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "config.yaml"), []byte("concurrency: -3\n"), 0o600))

	_, _, err := env.run(t, "types")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConcurrencyFlag(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "tables", "create", "Tasks")
	out := env.mustRun(t, "--concurrency", "1", "fields", "add", "--table", "Tasks", "--field", "A", "--field", "B")
	assert.Contains(t, out, "Added 2 fields")
}
