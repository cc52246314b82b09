package models

import "github.com/google/uuid"

// AssignmentStatusAccepted marks a role assignment the assignee accepted
const AssignmentStatusAccepted = "Accepted"

// Genre is a section of a visionboard
type Genre struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	VisionboardID uuid.UUID `gorm:"type:uuid;not null;index;column:visionboard_id"`
}

// TableName specifies the table name for Genre
func (Genre) TableName() string {
	return "genres"
}

// GenreAssignment assigns a user a work type within a genre
type GenreAssignment struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	GenreID  uuid.UUID `gorm:"type:uuid;not null;index;column:genre_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;column:user_id"`
	WorkType string    `gorm:"type:varchar(64);not null;column:work_type"`
	Status   string    `gorm:"type:varchar(16);not null;column:status"`
}

// TableName specifies the table name for GenreAssignment
func (GenreAssignment) TableName() string {
	return "genre_assignments"
}
