package storage

import "time"

// Interaction is a single logged bot interaction. One line in the users file.
// Records are append-only; Count is derived at write time, not stored as a
// separate counter.
type Interaction struct {
	UserID    int64
	Name      string
	Username  string
	Timestamp time.Time
	FileType  string
	First     bool
	Count     int
}

// Recorder abstracts the append-and-count operation so the linear file scan
// can later be replaced by an indexed implementation without touching callers.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(userID int64, name, username, fileType string) (Interaction, error)
}
