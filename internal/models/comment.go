package models

import "time"

// MaxCommentTextLength is the storage width of the text column.
const MaxCommentTextLength = 256

// TimestampLayout renders comment timestamps with minute precision.
const TimestampLayout = "2006-01-02T15:04"

// Comment represents a comment on a post
type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int64     `json:"user_id" gorm:"not null;index"` // Owner, fixed at creation
	PostID    int64     `json:"post_id" gorm:"not null;index"` // Parent post, fixed at creation
	Text      string    `json:"text" gorm:"type:varchar(256);not null"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;not null"`
}

// TableName keeps the singular table name used by existing deployments.
func (Comment) TableName() string {
	return "comment"
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	PostID *int64  `json:"post_id" validate:"required"`
	Text   *string `json:"text" validate:"required,max=256"`
}

// UpdateCommentRequest defines the request body for replacing a comment's text
type UpdateCommentRequest struct {
	Text *string `json:"text" validate:"required,max=256"`
}

// PatchCommentRequest defines the request body for a partial update.
// A nil field was absent from the request and is left untouched.
type PatchCommentRequest struct {
	Text *string `json:"text" validate:"omitempty,max=256"`
}

// Fields returns the columns explicitly present in the request.
func (r PatchCommentRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Text != nil {
		fields["text"] = *r.Text
	}
	return fields
}

// CommentView is the display shape of a comment.
type CommentView struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	PostID    int64  `json:"post_id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewCommentView projects a stored comment for display.
func NewCommentView(c Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		UserID:    c.UserID,
		PostID:    c.PostID,
		Text:      c.Text,
		Timestamp: c.Timestamp.UTC().Format(TimestampLayout),
	}
}

// PaginatedView is one keyset page of comments, newest first.
type PaginatedView struct {
	Items      []CommentView `json:"items"`
	NextCursor *int64        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}
