package models

import "time"

// BackupData is a full export of one account's boards and their notes.
// Ids are informational; a restore always creates fresh rows.
type BackupData struct {
	Boards    []BoardBackup `json:"boards"`
	CreatedAt time.Time     `json:"createdAt"`
}

type BoardBackup struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
}

// RestoreResult reports what a restore created.
type RestoreResult struct {
	Boards int `json:"boards"`
	Notes  int `json:"notes"`
}
