package model

import (
	"database/sql"
	"time"
)

// Task is the state store row for one submitted job.
type Task struct {
	ID           string         `db:"id"`
	State        string         `db:"state"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}
