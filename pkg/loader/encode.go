package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Encode converts JSON document text back into format. YAML output keeps
// the document's key order; TOML requires an object at the root.
func Encode(doc string, format Format) ([]byte, error) {
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("invalid JSON")
	}
	switch format {
	case FormatYAML:
		node := yamlNodeFor(gjson.Parse(doc))
		out, err := yaml.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("encode YAML: %w", err)
		}
		return out, nil
	case FormatTOML:
		var data any
		if err := json.Unmarshal([]byte(doc), &data); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		if _, ok := data.(map[string]any); !ok {
			return nil, fmt.Errorf("TOML needs an object at the document root")
		}
		out, err := toml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode TOML: %w", err)
		}
		return out, nil
	default:
		return []byte(strings.TrimSuffix(doc, "\n") + "\n"), nil
	}
}

func yamlNodeFor(v gjson.Result) *yaml.Node {
	switch {
	case v.IsObject():
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		v.ForEach(func(k, val gjson.Result) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k.String()},
				yamlNodeFor(val))
			return true
		})
		return n
	case v.IsArray():
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		v.ForEach(func(_, val gjson.Result) bool {
			n.Content = append(n.Content, yamlNodeFor(val))
			return true
		})
		return n
	}
	switch v.Type {
	case gjson.String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str}
	case gjson.Number:
		tag := "!!int"
		if strings.ContainsAny(v.Raw, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.Raw}
	case gjson.True, gjson.False:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Raw}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
