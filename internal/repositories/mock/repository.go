package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/nano-midea/comments/internal/models"
	"github.com/anonto42/nano-midea/comments/internal/repositories"
)

type CommentRepository struct {
	comments map[int64]models.Comment
	nextID   int64
	now      func() time.Time
	mutex    sync.RWMutex

	// Err, when set, is returned by every call.
	Err error
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{
		comments: make(map[int64]models.Comment),
		nextID:   1,
		now:      time.Now,
	}
}

// WithClock fixes the creation time assigned to new comments.
func (m *CommentRepository) WithClock(now func() time.Time) *CommentRepository {
	m.now = now
	return m
}

func (m *CommentRepository) Insert(_ context.Context, userID, postID int64, text string) (*models.Comment, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	c := models.Comment{
		ID:        m.nextID,
		UserID:    userID,
		PostID:    postID,
		Text:      text,
		Timestamp: m.now(),
	}
	m.nextID++
	m.comments[c.ID] = c
	return &c, nil
}

func (m *CommentRepository) ListPage(_ context.Context, limit int, cursor *int64) ([]models.Comment, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.Err != nil {
		return nil, false, m.Err
	}
	var comments []models.Comment
	for _, c := range m.comments {
		if cursor == nil || c.ID < *cursor {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID > comments[j].ID })

	hasMore := len(comments) > limit
	if hasMore {
		comments = comments[:limit]
	}
	return comments, hasMore, nil
}

func (m *CommentRepository) ConditionalUpdate(ctx context.Context, commentID, userID int64, text string) (*models.Comment, error) {
	return m.ConditionalPatch(ctx, commentID, userID, map[string]interface{}{"text": text})
}

func (m *CommentRepository) ConditionalPatch(_ context.Context, commentID, userID int64, fields map[string]interface{}) (*models.Comment, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	c, exists := m.comments[commentID]
	if !exists || c.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	if text, ok := fields["text"].(string); ok {
		c.Text = text
	}
	m.comments[commentID] = c
	return &c, nil
}

func (m *CommentRepository) ConditionalDelete(_ context.Context, commentID, userID int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}
	c, exists := m.comments[commentID]
	if !exists || c.UserID != userID {
		return repositories.ErrNotFound
	}
	delete(m.comments, commentID)
	return nil
}

func (m *CommentRepository) Ping(context.Context) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.Err
}

// Get returns a stored comment for assertions.
func (m *CommentRepository) Get(id int64) (models.Comment, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	c, ok := m.comments[id]
	return c, ok
}

type AuditRepository struct {
	Entries []models.AuditEntry
	mutex   sync.Mutex

	Err error
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (m *AuditRepository) Record(_ context.Context, entry models.AuditEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entry)
	return nil
}
