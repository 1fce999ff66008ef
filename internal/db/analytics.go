package db

import (
	"context"
	"fmt"

	"github.com/ohjang121/project-three-dwh/internal/schema"
)

// CountRows returns the number of rows in a catalog table.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	t, err := schema.Lookup(table)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.Name, err)
	}
	return n, nil
}

// TableCounts returns row counts for every catalog table in create order.
func (db *DB) TableCounts(ctx context.Context) ([]TableCount, error) {
	tables := schema.Tables()
	counts := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		n, err := db.CountRows(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		counts = append(counts, TableCount{Table: t.Name, Rows: n})
	}
	return counts, nil
}

// TopSongs returns the most played songs, most plays first.
func (db *DB) TopSongs(ctx context.Context, limit int) ([]SongPlayCount, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT s.title, a.name, COUNT(*) AS plays
		FROM songplays sp
		JOIN songs s ON sp.song_id = s.song_id
		JOIN artists a ON sp.artist_id = a.artist_id
		GROUP BY s.title, a.name
		ORDER BY plays DESC, s.title
		LIMIT %d
	`, limit)
	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying top songs: %w", err)
	}
	defer rows.Close()

	var songs []SongPlayCount
	for rows.Next() {
		var s SongPlayCount
		if err := rows.Scan(&s.Title, &s.Artist, &s.Plays); err != nil {
			return nil, fmt.Errorf("scanning song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// PlaysByHour returns play totals per hour of day, for hours with plays.
func (db *DB) PlaysByHour(ctx context.Context) ([]HourCount, error) {
	query := `
		SELECT t.hour, COUNT(*) AS plays
		FROM songplays sp
		JOIN time t ON sp.start_time = t.start_time
		GROUP BY t.hour
		ORDER BY t.hour
	`
	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying plays by hour: %w", err)
	}
	defer rows.Close()

	var hours []HourCount
	for rows.Next() {
		var h HourCount
		if err := rows.Scan(&h.Hour, &h.Plays); err != nil {
			return nil, fmt.Errorf("scanning hour: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// PlaysByLevel returns play totals per subscription level.
func (db *DB) PlaysByLevel(ctx context.Context) ([]LevelCount, error) {
	query := `
		SELECT level, COUNT(*) AS plays
		FROM songplays
		GROUP BY level
		ORDER BY level
	`
	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying plays by level: %w", err)
	}
	defer rows.Close()

	var levels []LevelCount
	for rows.Next() {
		var l LevelCount
		if err := rows.Scan(&l.Level, &l.Plays); err != nil {
			return nil, fmt.Errorf("scanning level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
