// Package loader turns input files into the JSON document text the editor
// works on. JSON is kept byte-for-byte apart from indentation; YAML mapping
// order is preserved; TOML tables are emitted with sorted keys.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

// Format is the detected input format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Document is a loaded input converted to JSON.
type Document struct {
	JSON   string
	Format Format
}

// Load converts data to an indented JSON document, auto-detecting the format.
func Load(data []byte) (Document, error) {
	input := strings.TrimSpace(string(data))
	if input == "" {
		return Document{}, fmt.Errorf("empty input")
	}
	if gjson.Valid(input) {
		return Document{JSON: indent([]byte(input)), Format: FormatJSON}, nil
	}
	if isLikelyTOML(input) {
		return loadTOML(input)
	}
	return loadYAML(input)
}

// LoadAs converts data using an explicit format.
func LoadAs(data []byte, format Format) (Document, error) {
	input := strings.TrimSpace(string(data))
	switch format {
	case FormatJSON:
		if !gjson.Valid(input) {
			return Document{}, fmt.Errorf("invalid JSON")
		}
		return Document{JSON: indent([]byte(input)), Format: FormatJSON}, nil
	case FormatTOML:
		return loadTOML(input)
	case FormatYAML:
		return loadYAML(input)
	default:
		return Load(data)
	}
}

// LoadFile reads path and converts it, using the extension as a format hint.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := LoadAs(data, FormatFromPath(path))
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// FormatFromPath maps a file extension to a format. Unknown extensions
// return "" so content detection is used.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return ""
	}
}

func indent(data []byte) string {
	out := pretty.PrettyOptions(data, &pretty.Options{Width: -1, Indent: "  "})
	return strings.TrimSuffix(string(out), "\n")
}

func loadYAML(input string) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(input), &root); err != nil {
		return Document{}, fmt.Errorf("invalid YAML: %w", err)
	}
	var buf bytes.Buffer
	if err := writeYAMLNode(&buf, &root); err != nil {
		return Document{}, err
	}
	return Document{JSON: indent(buf.Bytes()), Format: FormatYAML}, nil
}

func writeYAMLNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNode(buf, n.Content[0])
	case yaml.AliasNode:
		return writeYAMLNode(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, n.Content[i].Value)
			buf.WriteByte(':')
			if err := writeYAMLNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNode(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return writeYAMLScalar(buf, n)
	default:
		return fmt.Errorf("unsupported YAML node kind %d at line %d", n.Kind, n.Line)
	}
}

func writeYAMLScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.WriteString(strconv.FormatBool(b))
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			writeString(buf, n.Value)
			return nil
		}
		buf.WriteString(strconv.FormatInt(i, 10))
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			writeString(buf, n.Value)
			return nil
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	default:
		writeString(buf, n.Value)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
}

func loadTOML(input string) (Document, error) {
	var data map[string]any
	if err := toml.Unmarshal([]byte(input), &data); err != nil {
		return Document{}, fmt.Errorf("invalid TOML: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Document{}, fmt.Errorf("encode TOML as JSON: %w", err)
	}
	return Document{JSON: indent(raw), Format: FormatTOML}, nil
}

var (
	tomlSectionPattern  = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValuePattern = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
)

// isLikelyTOML reports whether input has TOML section headers or mostly
// `key = value` lines.
func isLikelyTOML(input string) bool {
	sections, keyValues, nonEmpty := 0, 0, 0
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSectionPattern.MatchString(line) {
			sections++
		}
		if tomlKeyValuePattern.MatchString(line) {
			keyValues++
		}
	}
	if sections > 0 {
		return true
	}
	return nonEmpty > 0 && keyValues > nonEmpty/2
}
