package queries

import (
	"errors"
	"strings"
	"testing"

	"github.com/ohjang121/project-three-dwh/internal/schema"
)

func testSource() CopySource {
	return CopySource{
		RoleARN:     "'arn:aws:iam::123456789012:role/dwhRole'",
		Region:      "us-west-2",
		LogData:     "s3://udacity-dend/log_data",
		LogJSONPath: "s3://udacity-dend/log_json_path.json",
		SongData:    "s3://udacity-dend/song_data",
	}
}

func TestCopy(t *testing.T) {
	stmts, err := Copy(testSource())
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("Copy() returned %d statements, want 2", len(stmts))
	}

	events, songs := stmts[0], stmts[1]
	if events.Table != schema.StagingEvents || songs.Table != schema.StagingSongs {
		t.Fatalf("Copy() tables = %s, %s; want staging_events, staging_songs", events.Table, songs.Table)
	}

	tests := []struct {
		name     string
		sql      string
		contains []string
		excludes []string
	}{
		{
			name: "events use jsonpaths",
			sql:  events.SQL,
			contains: []string{
				"COPY staging_events (\n    artist,\n    auth,",
				"    user_agent,\n    user_id\n)",
				"FROM 's3://udacity-dend/log_data'",
				"IAM_ROLE 'arn:aws:iam::123456789012:role/dwhRole'",
				"REGION 'us-west-2'",
				"FORMAT AS JSON 's3://udacity-dend/log_json_path.json'",
			},
			excludes: []string{"'auto'", "TRUNCATECOLUMNS", "''arn"},
		},
		{
			name: "songs use auto layout",
			sql:  songs.SQL,
			contains: []string{
				"COPY staging_songs (\n    artist_id,",
				"    title,\n    year\n)",
				"FROM 's3://udacity-dend/song_data'",
				"FORMAT AS JSON 'auto'\nTRUNCATECOLUMNS",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.contains {
				if !strings.Contains(tt.sql, s) {
					t.Errorf("missing %q in:\n%s", s, tt.sql)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(tt.sql, s) {
					t.Errorf("unexpected %q in:\n%s", s, tt.sql)
				}
			}
		})
	}
}

func TestCopy_NoRegion(t *testing.T) {
	src := testSource()
	src.Region = ""

	stmts, err := Copy(src)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	for _, s := range stmts {
		if strings.Contains(s.SQL, "REGION") {
			t.Errorf("Copy() emitted REGION without a region:\n%s", s.SQL)
		}
	}
}

func TestCopy_EscapesQuotes(t *testing.T) {
	src := testSource()
	src.SongData = "s3://bucket/o'neil"

	stmts, err := Copy(src)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if !strings.Contains(stmts[1].SQL, "FROM 's3://bucket/o''neil'") {
		t.Errorf("quote not escaped:\n%s", stmts[1].SQL)
	}
}

func TestCopySourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CopySource)
		missing string
	}{
		{name: "complete", mutate: func(*CopySource) {}},
		{name: "missing role", mutate: func(s *CopySource) { s.RoleARN = "''" }, missing: "role ARN"},
		{name: "missing song data", mutate: func(s *CopySource) { s.SongData = "" }, missing: "song data path"},
		{name: "missing jsonpaths", mutate: func(s *CopySource) { s.LogJSONPath = "  " }, missing: "log jsonpaths file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource()
			tt.mutate(&src)

			err := src.Validate()
			if tt.missing == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrIncompleteSource) {
				t.Fatalf("Validate() error = %v, want ErrIncompleteSource", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.missing)
			}
			if _, err := Copy(src); err == nil {
				t.Error("Copy() accepted an incomplete source")
			}
		})
	}
}

func TestTransformOrder(t *testing.T) {
	for _, d := range []schema.Dialect{schema.Redshift, schema.SQLite} {
		t.Run(d.String(), func(t *testing.T) {
			stmts := Transform(d)
			want := []string{schema.Users, schema.Songs, schema.Artists, schema.Time, schema.Songplays}
			if len(stmts) != len(want) {
				t.Fatalf("Transform() returned %d statements, want %d", len(stmts), len(want))
			}
			for i, name := range want {
				if stmts[i].Table != name {
					t.Errorf("Transform()[%d].Table = %s, want %s", i, stmts[i].Table, name)
				}
				if stmts[i].Phase != PhaseTransform {
					t.Errorf("Transform()[%d].Phase = %s, want transform", i, stmts[i].Phase)
				}
				if !strings.HasPrefix(stmts[i].SQL, "INSERT") {
					t.Errorf("Transform()[%d] is not an INSERT:\n%s", i, stmts[i].SQL)
				}
			}
		})
	}
}

func TestTransformSQL(t *testing.T) {
	redshift := Transform(schema.Redshift)
	sqlite := Transform(schema.SQLite)

	tests := []struct {
		name     string
		sql      string
		contains []string
		excludes []string
	}{
		{
			name: "redshift songplays strict join",
			sql:  redshift[4].SQL,
			contains: []string{
				"JOIN songs s ON e.song = s.title",
				"JOIN artists a ON e.artist = a.name",
				"WHERE e.page = 'NextSong'",
				"AND e.user_id IS NOT NULL",
				"TIMESTAMP 'epoch' + e.ts / 1000 * INTERVAL '1 second' AS start_time",
			},
			excludes: []string{"LEFT JOIN", "OR IGNORE"},
		},
		{
			name:     "redshift time extracts",
			sql:      redshift[3].SQL,
			contains: []string{"SELECT DISTINCT start_time", "EXTRACT(week FROM start_time) AS week", "EXTRACT(dow FROM start_time) AS weekday", "WHERE ts IS NOT NULL"},
		},
		{
			name:     "redshift users keep latest",
			sql:      redshift[0].SQL,
			contains: []string{"INSERT INTO users", "PARTITION BY user_id ORDER BY ts DESC NULLS LAST", "WHERE rn = 1"},
		},
		{
			name:     "sqlite users keep latest timestamped event",
			sql:      sqlite[0].SQL,
			contains: []string{"INSERT OR IGNORE INTO users", "ORDER BY ts DESC NULLS LAST"},
		},
		{
			name:     "sqlite dimensions skip existing keys",
			sql:      sqlite[1].SQL,
			contains: []string{"INSERT OR IGNORE INTO songs", "WHERE song_id IS NOT NULL"},
		},
		{
			name:     "sqlite time uses strftime",
			sql:      sqlite[3].SQL,
			contains: []string{"INSERT OR IGNORE INTO time", "datetime(ts / 1000, 'unixepoch')", "strftime('%V', start_time)", "strftime('%w', start_time)"},
		},
		{
			name:     "sqlite songplays plain insert",
			sql:      sqlite[4].SQL,
			contains: []string{"INSERT INTO songplays", "datetime(e.ts / 1000, 'unixepoch')"},
			excludes: []string{"OR IGNORE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.contains {
				if !strings.Contains(tt.sql, s) {
					t.Errorf("missing %q in:\n%s", s, tt.sql)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(tt.sql, s) {
					t.Errorf("unexpected %q in:\n%s", s, tt.sql)
				}
			}
		})
	}
}

func TestDropAndCreate(t *testing.T) {
	drops := Drop(schema.Redshift)
	creates := Create(schema.Redshift)
	if len(drops) != 7 || len(creates) != 7 {
		t.Fatalf("Drop/Create returned %d/%d statements, want 7/7", len(drops), len(creates))
	}
	if drops[0].Table != schema.Songplays || !strings.Contains(drops[0].SQL, "songplays") {
		t.Errorf("Drop()[0] = %+v, want songplays", drops[0])
	}
	if creates[6].Table != schema.Songplays {
		t.Errorf("Create()[6].Table = %s, want songplays", creates[6].Table)
	}
	for _, s := range drops {
		if !strings.Contains(s.SQL, " "+s.Table+" ") {
			t.Errorf("Drop statement %q does not match table %s", s.SQL, s.Table)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"'arn:aws:iam::1:role/dwh'", "arn:aws:iam::1:role/dwh"},
		{`"s3://bucket/log_data"`, "s3://bucket/log_data"},
		{"  'padded'  ", "padded"},
		{"plain", "plain"},
		{"'mismatched\"", "'mismatched\""},
		{"''", ""},
		{"'", "'"},
		{"'it''s'", "it''s"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Unquote(tt.in); got != tt.want {
				t.Errorf("Unquote(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
