package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/comments/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by conditional writes that matched no row.
var ErrNotFound = errors.New("no comment matched id and owner")

// CommentRepository defines the interface for comment data operations.
// Every mutation is conditional on the owner: the id and user_id are both
// part of the write predicate.
type CommentRepository interface {
	Insert(ctx context.Context, userID, postID int64, text string) (*models.Comment, error)
	ListPage(ctx context.Context, limit int, cursor *int64) ([]models.Comment, bool, error)
	ConditionalUpdate(ctx context.Context, commentID, userID int64, text string) (*models.Comment, error)
	ConditionalPatch(ctx context.Context, commentID, userID int64, fields map[string]interface{}) (*models.Comment, error)
	ConditionalDelete(ctx context.Context, commentID, userID int64) error
	Ping(ctx context.Context) error
}

// PostgresCommentRepository implements CommentRepository with gorm. Despite
// the name it runs on any dialector that supports RETURNING (PostgreSQL,
// SQLite 3.35+).
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// Insert creates a new comment and returns it with its generated id and timestamp.
func (r *PostgresCommentRepository) Insert(ctx context.Context, userID, postID int64, text string) (*models.Comment, error) {
	comment := &models.Comment{
		UserID: userID,
		PostID: postID,
		Text:   text,
	}
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

// ListPage returns up to limit comments in descending id order, starting
// strictly below cursor when one is given. It over-fetches by one row to
// report whether another page exists.
func (r *PostgresCommentRepository) ListPage(ctx context.Context, limit int, cursor *int64) ([]models.Comment, bool, error) {
	query := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit + 1)
	if cursor != nil {
		query = query.Where("id < ?", *cursor)
	}

	var comments []models.Comment
	if err := query.Find(&comments).Error; err != nil {
		return nil, false, fmt.Errorf("list comments: %w", err)
	}

	hasMore := len(comments) > limit
	if hasMore {
		comments = comments[:limit]
	}
	return comments, hasMore, nil
}

// ConditionalUpdate replaces the text of a comment owned by userID and
// returns the updated row from the same statement.
func (r *PostgresCommentRepository) ConditionalUpdate(ctx context.Context, commentID, userID int64, text string) (*models.Comment, error) {
	return r.ConditionalPatch(ctx, commentID, userID, map[string]interface{}{"text": text})
}

// ConditionalPatch assigns only the given columns of a comment owned by
// userID. With no columns nothing is written and the row is read back under
// the same predicate.
func (r *PostgresCommentRepository) ConditionalPatch(ctx context.Context, commentID, userID int64, fields map[string]interface{}) (*models.Comment, error) {
	var comment models.Comment

	if len(fields) == 0 {
		err := r.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", commentID, userID).
			Take(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("read comment %d: %w", commentID, err)
		}
		return &comment, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&comment).
			Clauses(clause.Returning{}).
			Where("id = ? AND user_id = ?", commentID, userID).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update comment %d: %w", commentID, err)
	}
	return &comment, nil
}

// ConditionalDelete removes a comment owned by userID.
func (r *PostgresCommentRepository) ConditionalDelete(ctx context.Context, commentID, userID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", commentID, userID).Delete(&models.Comment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}

// Ping checks that a pooled connection can reach the database.
func (r *PostgresCommentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
