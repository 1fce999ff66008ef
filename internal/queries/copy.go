package queries

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ohjang121/project-three-dwh/internal/schema"
)

// ErrIncompleteSource is returned when a CopySource lacks a required value.
var ErrIncompleteSource = errors.New("incomplete copy source")

// CopySource locates the raw S3 data and the role Redshift reads it with.
type CopySource struct {
	RoleARN     string
	Region      string // optional; emitted as REGION when set
	LogData     string // s3:// prefix of the event logs
	LogJSONPath string // s3:// jsonpaths file mapping event fields to columns
	SongData    string // s3:// prefix of the song catalog
}

// Validate reports every missing field at once.
func (s CopySource) Validate() error {
	var missing []string
	if Unquote(s.RoleARN) == "" {
		missing = append(missing, "role ARN")
	}
	if Unquote(s.LogData) == "" {
		missing = append(missing, "log data path")
	}
	if Unquote(s.LogJSONPath) == "" {
		missing = append(missing, "log jsonpaths file")
	}
	if Unquote(s.SongData) == "" {
		missing = append(missing, "song data path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteSource, strings.Join(missing, ", "))
	}
	return nil
}

// Copy returns the bulk-load statements, staging_events then staging_songs.
func Copy(src CopySource) ([]Statement, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	events := copySQL(schema.MustLookup(schema.StagingEvents), src.LogData, src,
		"FORMAT AS JSON "+literal(src.LogJSONPath))
	songs := copySQL(schema.MustLookup(schema.StagingSongs), src.SongData, src,
		"FORMAT AS JSON 'auto'\nTRUNCATECOLUMNS")

	return []Statement{
		{Phase: PhaseLoad, Table: schema.StagingEvents, SQL: events},
		{Phase: PhaseLoad, Table: schema.StagingSongs, SQL: songs},
	}, nil
}

func copySQL(t schema.Table, from string, src CopySource, format string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "COPY %s (\n    %s\n)\n", t.Name, strings.Join(t.ColumnNames(), ",\n    "))
	fmt.Fprintf(&sb, "FROM %s\n", literal(from))
	fmt.Fprintf(&sb, "IAM_ROLE %s\n", literal(src.RoleARN))
	if region := Unquote(src.Region); region != "" {
		fmt.Fprintf(&sb, "REGION %s\n", literal(region))
	}
	sb.WriteString(format)
	return sb.String()
}

// literal renders v as a single-quoted SQL string literal.
func literal(v string) string {
	return "'" + strings.ReplaceAll(Unquote(v), "'", "''") + "'"
}

// unquote strips whitespace and one pair of surrounding quotes, which
// hand-written dwh.cfg files commonly carry.
func Unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			v = v[1 : len(v)-1]
		}
	}
	return v
}
