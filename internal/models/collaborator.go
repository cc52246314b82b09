package models

import (
	"strings"

	"github.com/google/uuid"
)

// CollaboratorRole is the closed set of roles a collaborator can hold
type CollaboratorRole string

const (
	RoleCollaborator CollaboratorRole = "collaborator"
	RoleEditor       CollaboratorRole = "editor"
	RoleVideographer CollaboratorRole = "videographer"
	RoleActor        CollaboratorRole = "actor"
	RoleDirector     CollaboratorRole = "director"
	RolePhotographer CollaboratorRole = "photographer"
	RoleWriter       CollaboratorRole = "writer"
	RoleProducer     CollaboratorRole = "producer"
)

// Valid reports whether r is a known role
func (r CollaboratorRole) Valid() bool {
	switch r {
	case RoleCollaborator, RoleEditor, RoleVideographer, RoleActor,
		RoleDirector, RolePhotographer, RoleWriter, RoleProducer:
		return true
	}
	return false
}

// boardRoles are the board work types that carry over to a post role as is.
var boardRoles = map[string]CollaboratorRole{
	"editor":       RoleEditor,
	"videographer": RoleVideographer,
	"actor":        RoleActor,
	"director":     RoleDirector,
}

// RoleFromWorkType maps a board work type label to a collaborator role.
// Unrecognized labels become RoleCollaborator.
func RoleFromWorkType(workType string) CollaboratorRole {
	if role, ok := boardRoles[strings.ToLower(strings.TrimSpace(workType))]; ok {
		return role
	}
	return RoleCollaborator
}

// PostCollaborator links a user to a post with a role
type PostCollaborator struct {
	PostID uuid.UUID        `gorm:"type:uuid;primaryKey;column:post_id" json:"post_id"`
	UserID uuid.UUID        `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	Role   CollaboratorRole `gorm:"type:varchar(32);not null;column:role" json:"role"`
}

// TableName specifies the table name for PostCollaborator
func (PostCollaborator) TableName() string {
	return "post_collaborators"
}
