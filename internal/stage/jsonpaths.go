// Package stage loads raw JSON song and event files into the staging tables
// of a local warehouse, following the column mapping rules of Redshift COPY:
// jsonpaths by position, or auto by exact key name with optional ignorecase.
package stage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// ErrInvalidJSONPath is returned for jsonpaths expressions that are not
// simple member accesses.
var ErrInvalidJSONPath = errors.New("invalid jsonpath")

// Path is a parsed jsonpaths expression selecting one value per record.
type Path struct {
	expr jp.Expr
	keys []string
}

// Keys returns the object keys the path walks, outermost first.
func (p Path) Keys() []string {
	return p.keys
}

func (p Path) String() string {
	return p.expr.String()
}

// lookup returns the selected value, or nil when the record lacks it.
func (p Path) lookup(record map[string]any) any {
	return p.expr.First(record)
}

// ParseJSONPaths reads a jsonpaths file: {"jsonpaths": ["$['artist']", ...]}.
// Expressions map positionally onto the target table's columns.
func ParseJSONPaths(r io.Reader) ([]Path, error) {
	var doc struct {
		JSONPaths []string `json:"jsonpaths"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding jsonpaths file: %w", err)
	}
	if len(doc.JSONPaths) == 0 {
		return nil, fmt.Errorf("%w: no expressions in jsonpaths file", ErrInvalidJSONPath)
	}

	paths := make([]Path, len(doc.JSONPaths))
	for i, expr := range doc.JSONPaths {
		p, err := ParsePath(expr)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}

// LoadJSONPaths reads a jsonpaths file from disk.
func LoadJSONPaths(path string) ([]Path, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening jsonpaths file: %w", err)
	}
	defer f.Close()
	return ParseJSONPaths(f)
}

// ParsePath parses one expression in bracket ($['a']['b']) or dot ($.a.b)
// notation. Only member access from the root is accepted, as in a Redshift
// jsonpaths file.
func ParsePath(expr string) (Path, error) {
	x, err := jp.ParseString(strings.TrimSpace(expr))
	if err != nil {
		return Path{}, fmt.Errorf("%w: %q: %v", ErrInvalidJSONPath, expr, err)
	}

	var (
		rooted bool
		keys   []string
	)
	for _, frag := range x {
		switch f := frag.(type) {
		case jp.Root:
			rooted = true
		case jp.Bracket:
		case jp.Child:
			keys = append(keys, string(f))
		default:
			return Path{}, fmt.Errorf("%w: unsupported syntax in %q", ErrInvalidJSONPath, expr)
		}
	}
	if !rooted {
		return Path{}, fmt.Errorf("%w: %q does not start with $", ErrInvalidJSONPath, expr)
	}
	if len(keys) == 0 {
		return Path{}, fmt.Errorf("%w: %q selects the whole record", ErrInvalidJSONPath, expr)
	}
	return Path{expr: x, keys: keys}, nil
}
