package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/anonto42/nano-midea/comments/internal/apperrors"
	"github.com/anonto42/nano-midea/comments/internal/models"
	"github.com/anonto42/nano-midea/comments/internal/repositories"
	"github.com/anonto42/nano-midea/comments/internal/requestctx"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

const tracerName = "github.com/anonto42/nano-midea/comments/internal/services"

// Logger is the subset of echo.Logger the service writes to.
type Logger interface {
	Warnj(j log.JSON)
}

// CommentService handles business logic for comments
type CommentService struct {
	commentRepo repositories.CommentRepository
	auditRepo   repositories.AuditRepository
	logger      Logger
	tracer      trace.Tracer
}

// NewCommentService creates a new CommentService. A nil auditRepo disables
// the audit trail.
func NewCommentService(commentRepo repositories.CommentRepository, auditRepo repositories.AuditRepository, logger Logger) *CommentService {
	if auditRepo == nil {
		auditRepo = repositories.NopAuditRepository{}
	}
	return &CommentService{
		commentRepo: commentRepo,
		auditRepo:   auditRepo,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
}

// Create stores a new comment owned by callerUserID.
func (s *CommentService) Create(ctx context.Context, req models.CreateCommentRequest, callerUserID int64) (view models.CommentView, err error) {
	ctx, span := s.start(ctx, "comments.create", callerUserID)
	defer func() { finish(span, err) }()

	if err := validateCreate(req, callerUserID); err != nil {
		return models.CommentView{}, err
	}

	comment, err := s.commentRepo.Insert(ctx, callerUserID, *req.PostID, *req.Text)
	if err != nil {
		return models.CommentView{}, err
	}

	s.audit(ctx, models.AuditCreate, comment.ID, callerUserID)
	return models.NewCommentView(*comment), nil
}

// ListAll returns one page of comments, newest first. A lastID of zero
// requests the first page.
func (s *CommentService) ListAll(ctx context.Context, limit int, lastID int64) (page models.PaginatedView, err error) {
	ctx, span := s.start(ctx, "comments.list", 0)
	defer func() { finish(span, err) }()

	if limit < 1 || limit > MaxPageLimit {
		return models.PaginatedView{}, apperrors.NewValidationError("limit",
			fmt.Sprintf("Input should be between 1 and %d", MaxPageLimit))
	}
	if lastID < 0 {
		return models.PaginatedView{}, apperrors.NewValidationError("last_id", "Input should be greater than or equal to 0")
	}

	var cursor *int64
	if lastID > 0 {
		cursor = &lastID
	}

	comments, hasMore, err := s.commentRepo.ListPage(ctx, limit, cursor)
	if err != nil {
		return models.PaginatedView{}, err
	}

	page = models.PaginatedView{
		Items:   make([]models.CommentView, 0, len(comments)),
		HasMore: hasMore,
	}
	for _, c := range comments {
		page.Items = append(page.Items, models.NewCommentView(c))
	}
	if len(comments) > 0 {
		next := comments[len(comments)-1].ID
		page.NextCursor = &next
	}
	span.SetAttributes(attribute.Int("comments.page_size", len(page.Items)), attribute.Bool("comments.has_more", hasMore))
	return page, nil
}

// Update replaces the text of a comment owned by callerUserID.
func (s *CommentService) Update(ctx context.Context, commentID int64, req models.UpdateCommentRequest, callerUserID int64) (view models.CommentView, err error) {
	ctx, span := s.start(ctx, "comments.update", callerUserID)
	defer func() { finish(span, err) }()

	if err := validateTarget(commentID, callerUserID); err != nil {
		return models.CommentView{}, err
	}
	if req.Text == nil {
		return models.CommentView{}, apperrors.NewValidationError("text", "Field required")
	}
	if err := validateText(*req.Text); err != nil {
		return models.CommentView{}, err
	}

	comment, err := s.commentRepo.ConditionalUpdate(ctx, commentID, callerUserID, *req.Text)
	if err != nil {
		return models.CommentView{}, ownershipError(commentID, err)
	}

	s.audit(ctx, models.AuditUpdate, comment.ID, callerUserID)
	return models.NewCommentView(*comment), nil
}

// Patch assigns the fields present in req on a comment owned by callerUserID.
func (s *CommentService) Patch(ctx context.Context, commentID int64, req models.PatchCommentRequest, callerUserID int64) (view models.CommentView, err error) {
	ctx, span := s.start(ctx, "comments.patch", callerUserID)
	defer func() { finish(span, err) }()

	if err := validateTarget(commentID, callerUserID); err != nil {
		return models.CommentView{}, err
	}
	if req.Text != nil {
		if err := validateText(*req.Text); err != nil {
			return models.CommentView{}, err
		}
	}

	fields := req.Fields()
	comment, err := s.commentRepo.ConditionalPatch(ctx, commentID, callerUserID, fields)
	if err != nil {
		return models.CommentView{}, ownershipError(commentID, err)
	}

	if len(fields) > 0 {
		s.audit(ctx, models.AuditPatch, comment.ID, callerUserID)
	}
	return models.NewCommentView(*comment), nil
}

// Delete removes a comment owned by callerUserID.
func (s *CommentService) Delete(ctx context.Context, commentID int64, callerUserID int64) (err error) {
	ctx, span := s.start(ctx, "comments.delete", callerUserID)
	defer func() { finish(span, err) }()

	if err := validateTarget(commentID, callerUserID); err != nil {
		return err
	}

	if err := s.commentRepo.ConditionalDelete(ctx, commentID, callerUserID); err != nil {
		return ownershipError(commentID, err)
	}

	s.audit(ctx, models.AuditDelete, commentID, callerUserID)
	return nil
}

// ownershipError turns a zero-row conditional write into the domain error.
func ownershipError(commentID int64, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("comment %d: %w", commentID, apperrors.ErrNotFoundOrUnauthorized)
	}
	return err
}

func (s *CommentService) audit(ctx context.Context, action models.AuditAction, commentID, userID int64) {
	entry := models.AuditEntry{
		Action:    action,
		CommentID: commentID,
		UserID:    userID,
		RequestID: requestctx.RequestID(ctx),
		At:        time.Now().UTC(),
	}
	if err := s.auditRepo.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warnj(log.JSON{
			"message":    "audit entry not recorded",
			"request_id": entry.RequestID,
			"action":     string(action),
			"comment_id": commentID,
			"error":      err.Error(),
		})
	}
}

func (s *CommentService) start(ctx context.Context, name string, userID int64) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("request.id", requestctx.RequestID(ctx)))
	if userID > 0 {
		span.SetAttributes(attribute.Int64("comments.user_id", userID))
	}
	return ctx, span
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validateCreate(req models.CreateCommentRequest, callerUserID int64) error {
	if callerUserID <= 0 {
		return apperrors.NewValidationError("user_id", "Input should be greater than 0")
	}
	if req.PostID == nil {
		return apperrors.NewValidationError("post_id", "Field required")
	}
	if req.Text == nil {
		return apperrors.NewValidationError("text", "Field required")
	}
	return validateText(*req.Text)
}

func validateTarget(commentID, callerUserID int64) error {
	if commentID <= 0 {
		return apperrors.NewValidationError("comment_id", "Input should be greater than 0")
	}
	if callerUserID <= 0 {
		return apperrors.NewValidationError("user_id", "Input should be greater than 0")
	}
	return nil
}

func validateText(text string) error {
	if utf8.RuneCountInString(text) > models.MaxCommentTextLength {
		return apperrors.NewValidationError("text",
			fmt.Sprintf("String should have at most %d characters", models.MaxCommentTextLength))
	}
	return nil
}
