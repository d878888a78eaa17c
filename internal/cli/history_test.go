package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ibmrate/internal/rate"
	"github.com/roach88/ibmrate/internal/store"
)

func execHistory(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewHistoryCommand(rootOpts)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out, err
}

func seedStore(t *testing.T) (string, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "results.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	weight := []float64{0.5, 0.5}
	g1 := rate.Group{Label: "a", Counts: []float64{10, 20}, Pop: []float64{1000, 2000}, Weight: weight}
	g2 := rate.Group{Label: "b", Counts: []float64{30, 20}, Pop: []float64{1000, 2000}, Weight: weight}
	opts := rate.DefaultOptions()
	cmp, err := rate.Compare(g1, g2, opts)
	require.NoError(t, err)

	id, err := st.Record(context.Background(), cmp, opts)
	require.NoError(t, err)
	return dbPath, id
}

func TestHistory_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "no recorded comparisons")
}

func TestHistory_ListsEntries(t *testing.T) {
	dbPath, id := seedStore(t)

	out, err := execHistory(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "rate ratio")
	assert.Contains(t, out.String(), "Fay-Feuer")
}

func TestHistory_JSON(t *testing.T) {
	dbPath, id := seedStore(t)

	out, err := execHistory(t, "json", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []store.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, id, resp.Data[0].ID)
}

func TestHistory_RequiresDatabaseFlag(t *testing.T) {
	_, err := execHistory(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
