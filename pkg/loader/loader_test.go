package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantFormat Format
		want       string
		wantErr    bool
	}{
		{
			name:       "json object is re-indented",
			input:      `{"b":1,"a":[true,null]}`,
			wantFormat: FormatJSON,
			want:       "{\n  \"b\": 1,\n  \"a\": [\n    true,\n    null\n  ]\n}",
		},
		{
			name:       "json scalar",
			input:      `"hello"`,
			wantFormat: FormatJSON,
			want:       `"hello"`,
		},
		{
			name:       "yaml keeps mapping order",
			input:      "zeta: 1\nalpha: two\n",
			wantFormat: FormatYAML,
			want:       "{\n  \"zeta\": 1,\n  \"alpha\": \"two\"\n}",
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, got.Format)
			assert.Equal(t, tt.want, got.JSON)
		})
	}
}

func TestLoadYAMLScalars(t *testing.T) {
	doc, err := Load([]byte("count: 3\nratio: 0.5\nenabled: yes\nflag: true\nnothing: ~\nname: 'x'\nversion: \"1.0\"\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), gjson.Get(doc.JSON, "count").Int())
	assert.Equal(t, 0.5, gjson.Get(doc.JSON, "ratio").Float())
	assert.Equal(t, gjson.True, gjson.Get(doc.JSON, "flag").Type)
	assert.Equal(t, gjson.String, gjson.Get(doc.JSON, "enabled").Type)
	assert.Equal(t, gjson.Null, gjson.Get(doc.JSON, "nothing").Type)
	assert.Equal(t, "1.0", gjson.Get(doc.JSON, "version").String())
}

func TestLoadYAMLSequencesAndAliases(t *testing.T) {
	input := "base: &b\n  color: red\nitems:\n  - *b\n  - plain\n"
	doc, err := Load([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "red", gjson.Get(doc.JSON, "items.0.color").String())
	assert.Equal(t, "plain", gjson.Get(doc.JSON, "items.1").String())
}

func TestLoadTOML(t *testing.T) {
	doc, err := Load([]byte("[server]\nport = 8080\nname = \"api\"\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, doc.Format)
	assert.Equal(t, int64(8080), gjson.Get(doc.JSON, "server.port").Int())
	assert.Equal(t, "api", gjson.Get(doc.JSON, "server.name").String())
}

func TestLoadAsRejectsInvalidJSON(t *testing.T) {
	_, err := LoadAs([]byte(`{"a":`), FormatJSON)
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.yml")
	require.NoError(t, os.WriteFile(p, []byte("name: Apple\n"), 0o600))

	doc, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, doc.Format)
	assert.Equal(t, "Apple", gjson.Get(doc.JSON, "name").String())

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("a.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("a.yml"))
	assert.Equal(t, FormatTOML, FormatFromPath("a.toml"))
	assert.Equal(t, Format(""), FormatFromPath("a.txt"))
}
