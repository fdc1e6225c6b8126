package models

import "time"

// MaxBoardsPerUser caps how many boards a single account may own.
const MaxBoardsPerUser = 20

// MaxBoardNameLen bounds a board name after trimming.
const MaxBoardNameLen = 100

// Board groups notes. Ownership is implicit: the authenticated user.
type Board struct {
	ID          int64     `json:"id" db:"Id"`
	Name        string    `json:"name" db:"Name"`
	OwnerUserID int64     `json:"-" db:"OwnerUserId"`
	CreatedAt   time.Time `json:"createdAt" db:"CreatedAt"`
}

// BoardRequest is the body for creating or renaming a board.
type BoardRequest struct {
	Name string `json:"name"`
}
