package queries

import (
	"strings"

	"github.com/ohjang121/project-three-dwh/internal/schema"
)

// Transform returns the staging-to-star-schema inserts in dependency order:
// users, songs, artists, time, songplays. Songplays must run last because it
// joins against songs and artists and references time and users.
func Transform(d schema.Dialect) []Statement {
	return []Statement{
		{Phase: PhaseTransform, Table: schema.Users, SQL: dimensionInsert(d, userInsert)},
		{Phase: PhaseTransform, Table: schema.Songs, SQL: dimensionInsert(d, songInsert)},
		{Phase: PhaseTransform, Table: schema.Artists, SQL: dimensionInsert(d, artistInsert)},
		{Phase: PhaseTransform, Table: schema.Time, SQL: dimensionInsert(d, timeInsert(d))},
		{Phase: PhaseTransform, Table: schema.Songplays, SQL: songplayInsert(d)},
	}
}

// dimensionInsert adapts an INSERT for the dialect. SQLite enforces primary
// keys, so rows already present from an earlier run are skipped there;
// Redshift does not enforce them and appends.
func dimensionInsert(d schema.Dialect, sql string) string {
	if d == schema.SQLite {
		return strings.Replace(sql, "INSERT INTO", "INSERT OR IGNORE INTO", 1)
	}
	return sql
}

// userInsert keeps one row per user: the attributes of the user's most
// recent event, so a mid-log level change does not produce two users rows.
// Events without ts sort last; Redshift would otherwise rank them first.
const userInsert = `INSERT INTO users (user_id, first_name, last_name, gender, level)
SELECT user_id, first_name, last_name, gender, level
FROM (
    SELECT user_id, first_name, last_name, gender, level,
           ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY ts DESC NULLS LAST) AS rn
    FROM staging_events
    WHERE user_id IS NOT NULL
) latest
WHERE rn = 1`

const songInsert = `INSERT INTO songs (song_id, title, artist_id, year, duration)
SELECT DISTINCT song_id,
       title,
       artist_id,
       year,
       duration
FROM staging_songs
WHERE song_id IS NOT NULL`

const artistInsert = `INSERT INTO artists (artist_id, name, location, latitude, longitude)
SELECT DISTINCT artist_id,
       artist_name,
       artist_location,
       artist_latitude,
       artist_longitude
FROM staging_songs
WHERE artist_id IS NOT NULL`

// startTime converts the epoch-millisecond ts column of alias into a
// timestamp, truncating to whole seconds.
func startTime(d schema.Dialect, alias string) string {
	col := "ts"
	if alias != "" {
		col = alias + ".ts"
	}
	if d == schema.SQLite {
		return "datetime(" + col + " / 1000, 'unixepoch')"
	}
	return "TIMESTAMP 'epoch' + " + col + " / 1000 * INTERVAL '1 second'"
}

func timeInsert(d schema.Dialect) string {
	var parts [6]string
	if d == schema.SQLite {
		for i, f := range []string{"%H", "%d", "%V", "%m", "%Y", "%w"} {
			parts[i] = "CAST(strftime('" + f + "', start_time) AS INTEGER)"
		}
	} else {
		for i, f := range []string{"hour", "day", "week", "month", "year", "dow"} {
			parts[i] = "EXTRACT(" + f + " FROM start_time)"
		}
	}

	return `INSERT INTO time (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT start_time,
       ` + parts[0] + ` AS hour,
       ` + parts[1] + ` AS day,
       ` + parts[2] + ` AS week,
       ` + parts[3] + ` AS month,
       ` + parts[4] + ` AS year,
       ` + parts[5] + ` AS weekday
FROM (
    SELECT ` + startTime(d, "") + ` AS start_time
    FROM staging_events
    WHERE ts IS NOT NULL
) events`
}

// songplayInsert matches each NextSong event to songs by exact title and to
// artists by exact name. Events without both matches produce no row.
func songplayInsert(d schema.Dialect) string {
	return `INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT ` + startTime(d, "e") + ` AS start_time,
       e.user_id,
       e.level,
       s.song_id,
       a.artist_id,
       e.session_id,
       e.location,
       e.user_agent
FROM staging_events e
JOIN songs s ON e.song = s.title
JOIN artists a ON e.artist = a.name
WHERE e.page = 'NextSong'
  AND e.user_id IS NOT NULL
  AND e.ts IS NOT NULL
  AND s.song_id IS NOT NULL
  AND a.artist_id IS NOT NULL`
}
