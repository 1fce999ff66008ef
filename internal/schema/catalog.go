package schema

import (
	"errors"
	"fmt"
	"slices"
)

// Table names.
const (
	StagingEvents = "staging_events"
	StagingSongs  = "staging_songs"
	Users         = "users"
	Songs         = "songs"
	Artists       = "artists"
	Time          = "time"
	Songplays     = "songplays"
)

// ErrUnknownTable is returned when a table name is not in the catalog.
var ErrUnknownTable = errors.New("unknown table")

var catalog = []Table{
	{
		Name: StagingEvents,
		Kind: KindStaging,
		Columns: []Column{
			{Name: "artist", Type: Text},
			{Name: "auth", Type: Text},
			{Name: "first_name", Type: Text},
			{Name: "gender", Type: Text},
			{Name: "item_in_session", Type: Int},
			{Name: "last_name", Type: Text},
			{Name: "length", Type: Double},
			{Name: "level", Type: Text},
			{Name: "location", Type: Text},
			{Name: "method", Type: Text},
			{Name: "page", Type: Text},
			{Name: "registration", Type: Double},
			{Name: "session_id", Type: Int},
			{Name: "song", Type: Text},
			{Name: "status", Type: Int},
			{Name: "ts", Type: BigInt},
			{Name: "user_agent", Type: Text},
			{Name: "user_id", Type: Int},
		},
	},
	{
		Name: StagingSongs,
		Kind: KindStaging,
		Columns: []Column{
			{Name: "artist_id", Type: Text},
			{Name: "artist_latitude", Type: Double},
			{Name: "artist_location", Type: Text},
			{Name: "artist_longitude", Type: Double},
			{Name: "artist_name", Type: Text},
			{Name: "duration", Type: Double},
			{Name: "num_songs", Type: Double},
			{Name: "song_id", Type: Text},
			{Name: "title", Type: Text},
			{Name: "year", Type: Int},
		},
	},
	{
		Name: Users,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "user_id", Type: Int, PrimaryKey: true},
			{Name: "first_name", Type: Varchar},
			{Name: "last_name", Type: Varchar},
			{Name: "gender", Type: Varchar},
			{Name: "level", Type: Varchar},
		},
	},
	{
		Name: Songs,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "song_id", Type: Varchar, PrimaryKey: true},
			{Name: "title", Type: Varchar, NotNull: true},
			{Name: "artist_id", Type: Varchar},
			{Name: "year", Type: Int},
			{Name: "duration", Type: Double, NotNull: true},
		},
		SortKey: "year",
	},
	{
		Name: Artists,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "artist_id", Type: Varchar, PrimaryKey: true},
			{Name: "name", Type: Varchar, NotNull: true},
			{Name: "location", Type: Varchar},
			{Name: "latitude", Type: Double},
			{Name: "longitude", Type: Double},
		},
	},
	{
		Name: Time,
		Kind: KindDimension,
		Columns: []Column{
			{Name: "start_time", Type: Timestamp, PrimaryKey: true},
			{Name: "hour", Type: Int},
			{Name: "day", Type: Int},
			{Name: "week", Type: Int},
			{Name: "month", Type: Int},
			{Name: "year", Type: Int},
			{Name: "weekday", Type: Int},
		},
	},
	{
		Name: Songplays,
		Kind: KindFact,
		Columns: []Column{
			{Name: "songplay_id", Type: Int, Identity: true},
			{Name: "start_time", Type: Timestamp, NotNull: true, References: &ForeignKey{Table: Time, Column: "start_time"}},
			{Name: "user_id", Type: Int, NotNull: true, References: &ForeignKey{Table: Users, Column: "user_id"}},
			{Name: "level", Type: Varchar},
			{Name: "song_id", Type: Varchar, References: &ForeignKey{Table: Songs, Column: "song_id"}},
			{Name: "artist_id", Type: Varchar, References: &ForeignKey{Table: Artists, Column: "artist_id"}},
			{Name: "session_id", Type: Int},
			{Name: "location", Type: Varchar},
			{Name: "user_agent", Type: Varchar},
		},
		SortKey: "start_time",
	},
}

// Tables returns every table in create order: staging tables first, then
// dimensions, then the fact table.
func Tables() []Table {
	return slices.Clone(catalog)
}

// Lookup returns the named table.
func Lookup(name string) (Table, error) {
	for _, t := range catalog {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Table {
	t, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return t
}

// ValidateOrder checks that every table appears after the tables it references.
func ValidateOrder(tables []Table) error {
	created := make(map[string]bool, len(tables))
	for _, t := range tables {
		for _, dep := range t.DependsOn() {
			if !created[dep] {
				return fmt.Errorf("table %s references %s before it is created", t.Name, dep)
			}
		}
		created[t.Name] = true
	}
	return nil
}

// CreateStatements returns CREATE TABLE statements in dependency order.
func CreateStatements(d Dialect) []string {
	stmts := make([]string, len(catalog))
	for i, t := range catalog {
		stmts[i] = t.CreateSQL(d)
	}
	return stmts
}

// DropStatements returns DROP TABLE statements, fact table first, so the
// sequence is valid with or without CASCADE.
func DropStatements(d Dialect) []string {
	stmts := make([]string, 0, len(catalog))
	for i := len(catalog) - 1; i >= 0; i-- {
		stmts = append(stmts, catalog[i].DropSQL(d))
	}
	return stmts
}
