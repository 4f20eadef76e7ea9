// Package document applies node edits to the JSON document text.
//
// Edits are applied with sjson on the original bytes, so key order, number
// spelling and untouched values survive; the result is re-indented with two
// spaces.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/oakwood-commons/kvedit/internal/jsonpath"
)

var (
	// ErrMalformedDocument is returned when the current document is not valid JSON.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrPathNotFound is returned by SetValue when the parent of the target does not exist.
	ErrPathNotFound = errors.New("path not found")
)

// Edit is the name/color pair entered in the node modal.
type Edit struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Mode records which branch an edit took.
type Mode int

const (
	// ModeRootReplaced means the whole document became the name string.
	ModeRootReplaced Mode = iota
	// ModeMerged means name/color were set on an existing object.
	ModeMerged
	// ModeReplaced means the target was replaced by a new name/color object.
	ModeReplaced
	// ModeUnchanged means the target could not hold a keyed slot.
	ModeUnchanged
)

func (m Mode) String() string {
	switch m {
	case ModeRootReplaced:
		return "root-replaced"
	case ModeMerged:
		return "merged"
	case ModeReplaced:
		return "replaced"
	case ModeUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result is the outcome of Apply.
type Result struct {
	Document string
	Mode     Mode
}

// Patch applies edit at path and returns the updated document text.
func Patch(doc string, path jsonpath.Path, edit Edit) (string, error) {
	res, err := Apply(doc, path, edit)
	if err != nil {
		return "", err
	}
	return res.Document, nil
}

// Apply applies edit at path.
//
// The root path, or a path whose parent is missing or not a container,
// replaces the whole document with the name as a JSON string. An object
// target gets name/color merged in (empty inputs are skipped); any other
// target is replaced by an object holding only the non-empty inputs.
func Apply(doc string, path jsonpath.Path, edit Edit) (Result, error) {
	if !gjson.Valid(doc) {
		return Result{}, fmt.Errorf("%w: current content is not valid JSON", ErrMalformedDocument)
	}

	parentPath, last, ok := path.Parent()
	if !ok {
		return replaceRoot(edit.Name), nil
	}
	parent := lookup(doc, parentPath)
	if !parent.IsObject() && !parent.IsArray() {
		return replaceRoot(edit.Name), nil
	}
	if parent.IsArray() && !last.IsIndex {
		return Result{Document: Indent(doc), Mode: ModeUnchanged}, nil
	}

	sel := jsonpath.Selector(path)
	slot := gjson.Get(doc, sel)

	if slot.IsObject() {
		out := doc
		var err error
		if edit.Name != "" {
			if out, err = sjson.Set(out, sel+".name", edit.Name); err != nil {
				return Result{}, fmt.Errorf("set name at %s: %w", jsonpath.Format(path), err)
			}
		}
		if edit.Color != "" {
			if out, err = sjson.Set(out, sel+".color", edit.Color); err != nil {
				return Result{}, fmt.Errorf("set color at %s: %w", jsonpath.Format(path), err)
			}
		}
		return Result{Document: Indent(out), Mode: ModeMerged}, nil
	}

	raw, err := newObject(edit)
	if err != nil {
		return Result{}, err
	}
	out, err := sjson.SetRaw(doc, sel, raw)
	if err != nil {
		return Result{}, fmt.Errorf("replace value at %s: %w", jsonpath.Format(path), err)
	}
	return Result{Document: Indent(out), Mode: ModeReplaced}, nil
}

// SetValue replaces the value at path with text. Text that is valid JSON is
// inserted as-is; anything else is stored as a JSON string.
func SetValue(doc string, path jsonpath.Path, text string) (string, error) {
	if !gjson.Valid(doc) {
		return "", fmt.Errorf("%w: current content is not valid JSON", ErrMalformedDocument)
	}
	raw := strings.TrimSpace(text)
	if raw == "" || !gjson.Valid(raw) {
		raw = QuoteString(text)
	}

	parentPath, last, ok := path.Parent()
	if !ok {
		return Indent(raw), nil
	}
	parent := lookup(doc, parentPath)
	if !parent.IsObject() && !parent.IsArray() {
		return "", fmt.Errorf("%w: %s", ErrPathNotFound, jsonpath.Format(parentPath))
	}
	if parent.IsArray() && !last.IsIndex {
		return "", fmt.Errorf("%w: %s is an array", ErrPathNotFound, jsonpath.Format(parentPath))
	}
	out, err := sjson.SetRaw(doc, jsonpath.Selector(path), raw)
	if err != nil {
		return "", fmt.Errorf("set value at %s: %w", jsonpath.Format(path), err)
	}
	return Indent(out), nil
}

// Indent re-serializes a JSON document with 2-space indentation.
func Indent(doc string) string {
	out := pretty.PrettyOptions([]byte(doc), &pretty.Options{Width: -1, Indent: "  "})
	return strings.TrimSuffix(string(out), "\n")
}

// QuoteString encodes s as a JSON string without HTML escaping.
func QuoteString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func replaceRoot(name string) Result {
	return Result{Document: QuoteString(name), Mode: ModeRootReplaced}
}

func lookup(doc string, path jsonpath.Path) gjson.Result {
	if len(path) == 0 {
		return gjson.Parse(doc)
	}
	return gjson.Get(doc, jsonpath.Selector(path))
}

func newObject(edit Edit) (string, error) {
	raw := "{}"
	var err error
	if edit.Name != "" {
		if raw, err = sjson.Set(raw, "name", edit.Name); err != nil {
			return "", fmt.Errorf("build name: %w", err)
		}
	}
	if edit.Color != "" {
		if raw, err = sjson.Set(raw, "color", edit.Color); err != nil {
			return "", fmt.Errorf("build color: %w", err)
		}
	}
	return raw, nil
}
