package db

// TableCount is the number of rows in one warehouse table.
type TableCount struct {
	Table string
	Rows  int64
}

// SongPlayCount is the play total for one song.
type SongPlayCount struct {
	Title  string
	Artist string
	Plays  int64
}

// HourCount is the play total for one hour of the day (UTC).
type HourCount struct {
	Hour  int
	Plays int64
}

// LevelCount is the play total for one subscription level.
type LevelCount struct {
	Level *string // nullable
	Plays int64
}
