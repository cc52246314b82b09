package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the subset of the user profile this service reads
type User struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	Name *string   `gorm:"type:varchar(255);column:name"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Follow represents a follow relationship: UserID follows FollowingID
type Follow struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id"`
	FollowingID uuid.UUID `gorm:"type:uuid;primaryKey;index;column:following_id"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Follow
func (Follow) TableName() string {
	return "followers"
}
