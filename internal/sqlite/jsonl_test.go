package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLFileInitializedEmpty(t *testing.T) {
	_, dir := attachTemp(t)

	info, err := os.Stat(filepath.Join(dir, appraisalsFile))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRecordPersistedToJSONL(t *testing.T) {
	b, dir := attachTemp(t)

	res, err := b.Create(ctx(), sampleRecord("Jane Doe"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, appraisalsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, res.ID, line["id"])
	assert.Equal(t, "Jane Doe", line["clientName"])
	assert.Equal(t, res.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"), line["createdAt"])
	articles, ok := line["articles"].([]any)
	require.True(t, ok)
	assert.Len(t, articles, 2)

	_, err = b.Delete(ctx(), res.ID)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, appraisalsFile))
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(data)))
}

func TestWriteJSONLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, appraisalsFile)

	require.NoError(t, writeJSONL(path, []json.RawMessage{json.RawMessage(`{"id":"a"}`), json.RawMessage(`{"id":"b"}`)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, appraisalsFile, entries[0].Name())

	got, err := readJSONL(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadJSONLSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), appraisalsFile)
	content := "{\"id\":\"a\"}\n\nnot json\n{\"id\":\"b\"\n{\"id\":\"c\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"id":"a"}`, string(got[0]))
	assert.JSONEq(t, `{"id":"c"}`, string(got[1]))
}

func TestReadJSONLMissingFile(t *testing.T) {
	got, err := readJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
