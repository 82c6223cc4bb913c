package models

import "time"

// AuditAction names the mutation an audit entry records.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditPatch  AuditAction = "patch"
	AuditDelete AuditAction = "delete"
)

// AuditEntry is one successful comment mutation, stored in MongoDB.
type AuditEntry struct {
	Action    AuditAction `json:"action" bson:"action"`
	CommentID int64       `json:"comment_id" bson:"comment_id"`
	UserID    int64       `json:"user_id" bson:"user_id"`
	RequestID string      `json:"request_id" bson:"request_id"`
	At        time.Time   `json:"at" bson:"at"`
}
