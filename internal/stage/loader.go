package stage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ohjang121/project-three-dwh/internal/queries"
	"github.com/ohjang121/project-three-dwh/internal/schema"
)

// ErrNoFiles is returned when a source path holds no JSON files.
var ErrNoFiles = errors.New("no json files found")

// FileLoad bulk-loads JSON records from local files into one staging table.
// With jsonpaths the i-th expression fills the i-th column; without them each
// column is filled from the record key with exactly the column's name.
type FileLoad struct {
	table      schema.Table
	paths      []string
	jsonPaths  []Path
	ignoreCase bool
}

// LoadOption configures a FileLoad.
type LoadOption func(*FileLoad)

// WithIgnoreCase matches record keys to column names without regard to case,
// like COPY's 'auto ignorecase'. An exact match still wins over a folded one.
func WithIgnoreCase() LoadOption {
	return func(l *FileLoad) {
		l.ignoreCase = true
	}
}

// NewFileLoad validates the table and mapping. paths may name files or
// directories; directories are searched recursively for *.json files.
func NewFileLoad(table string, paths []string, jsonPaths []Path, opts ...LoadOption) (*FileLoad, error) {
	t, err := schema.Lookup(table)
	if err != nil {
		return nil, err
	}
	if t.Kind != schema.KindStaging {
		return nil, fmt.Errorf("table %s is not a staging table", table)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no source paths for %s", table)
	}
	if jsonPaths != nil && len(jsonPaths) != len(t.ColumnNames()) {
		return nil, fmt.Errorf("jsonpaths has %d expressions, %s has %d columns",
			len(jsonPaths), table, len(t.ColumnNames()))
	}
	l := &FileLoad{table: t, paths: paths, jsonPaths: jsonPaths}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *FileLoad) Phase() queries.Phase { return queries.PhaseLoad }

func (l *FileLoad) Table() string { return l.table.Name }

func (l *FileLoad) Describe() string {
	format := "auto"
	switch {
	case l.jsonPaths != nil:
		format = "jsonpaths"
	case l.ignoreCase:
		format = "auto ignorecase"
	}
	return fmt.Sprintf("load %s into %s (json %s)", strings.Join(l.paths, ", "), l.table.Name, format)
}

// Execute inserts every record of every source file inside tx.
func (l *FileLoad) Execute(ctx context.Context, tx *sql.Tx) (int64, error) {
	files, err := l.files()
	if err != nil {
		return 0, err
	}

	columns := l.table.ColumnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		l.table.Name, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, file := range files {
		n, err := l.loadFile(ctx, stmt, file)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (l *FileLoad) loadFile(ctx context.Context, stmt *sql.Stmt, file string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var n int64
	for {
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("decoding %s record %d: %w", file, n+1, err)
		}

		values, err := l.row(record)
		if err != nil {
			return n, fmt.Errorf("%s record %d: %w", file, n+1, err)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return n, fmt.Errorf("inserting %s record %d: %w", file, n+1, err)
		}
		n++
	}
}

// row maps one record onto the table's columns.
func (l *FileLoad) row(record map[string]any) ([]any, error) {
	columns := l.table.ColumnNames()
	values := make([]any, len(columns))
	for i, name := range columns {
		var raw any
		if l.jsonPaths != nil {
			raw = l.jsonPaths[i].lookup(record)
		} else {
			raw = l.field(record, name)
		}

		col, _ := l.table.Column(name)
		v, err := Coerce(raw, col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		values[i] = v
	}
	return values, nil
}

// field returns the record value for a column in auto mode. With ignoreCase,
// keys differing from name only in case are tried in sorted order so the
// result does not depend on map iteration.
func (l *FileLoad) field(record map[string]any, name string) any {
	if v, ok := record[name]; ok || !l.ignoreCase {
		return v
	}
	var match string
	found := false
	for k := range record {
		if strings.EqualFold(k, name) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return nil
	}
	return record[match]
}

// files expands the source paths into a sorted, de-duplicated file list.
func (l *FileLoad) files() ([]string, error) {
	var files []string
	for _, p := range l.paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, strings.Join(l.paths, ", "))
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Coerce converts a decoded JSON value to the Go value stored for a column
// of type t. JSON null, missing keys and empty strings in numeric columns
// become NULL.
func Coerce(v any, t schema.ColumnType) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		switch {
		case t.Integer():
			if i, err := val.Int64(); err == nil {
				return i, nil
			}
			f, err := val.Float64()
			if err != nil || f != float64(int64(f)) {
				return nil, fmt.Errorf("%s is not an integer", val)
			}
			return int64(f), nil
		case t.Numeric():
			return val.Float64()
		default:
			return val.String(), nil
		}
	case string:
		if !t.Numeric() {
			return val, nil
		}
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return Coerce(json.Number(s), t)
	case bool:
		if t.Numeric() {
			return nil, fmt.Errorf("boolean %t in numeric column", val)
		}
		return strconv.FormatBool(val), nil
	default:
		if t.Numeric() {
			return nil, fmt.Errorf("%T in numeric column", val)
		}
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}
