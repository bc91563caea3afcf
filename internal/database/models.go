package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity service's row in the users table
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	Username     string    `bun:"username,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Task is the task service's row in the tasks table.
// UserID refers to a user owned by the identity service, so there is no foreign key.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          int64      `bun:"id,pk,autoincrement"`
	UserID      uuid.UUID  `bun:"user_id,type:uuid,notnull"`
	Title       string     `bun:"title,notnull"`
	Description *string    `bun:"description"`
	Status      string     `bun:"status,notnull"`
	Priority    string     `bun:"priority,notnull"`
	DueDate     *time.Time `bun:"due_date"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
