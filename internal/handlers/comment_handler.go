package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/comments/internal/apperrors"
	"github.com/anonto42/nano-midea/comments/internal/models"
	"github.com/anonto42/nano-midea/comments/internal/requestctx"
	"github.com/anonto42/nano-midea/comments/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// RegisterCommentRoutes registers comment-related routes. auth guards every
// mutation; listing is public.
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/create", h.CreateComment, auth)
	g.GET("/read_all", h.ReadAllComments)
	g.PUT("/update/:id", h.UpdateComment, auth)
	g.PATCH("/patch/:id", h.PatchComment, auth)
	g.DELETE("/delete/:id", h.DeleteComment, auth)
}

// CreateComment creates a new comment owned by the caller
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.commentService.Create(c.Request().Context(), req, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, view)
}

// ReadAllComments returns one page of comments, newest first
func (h *CommentHandler) ReadAllComments(c echo.Context) error {
	limit := services.DefaultPageLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("limit", "Input should be a valid integer")
		}
		limit = n
	}

	var lastID int64
	if raw := c.QueryParam("last_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperrors.NewValidationError("last_id", "Input should be a valid integer")
		}
		lastID = n
	}

	page, err := h.commentService.ListAll(c.Request().Context(), limit, lastID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// UpdateComment replaces the text of a comment owned by the caller
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	commentID, err := pathID(c)
	if err != nil {
		return err
	}

	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.commentService.Update(c.Request().Context(), commentID, req, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// PatchComment updates only the fields present in the body
func (h *CommentHandler) PatchComment(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	commentID, err := pathID(c)
	if err != nil {
		return err
	}

	var req models.PatchCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.commentService.Patch(c.Request().Context(), commentID, req, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// DeleteComment deletes a comment owned by the caller
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	commentID, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.commentService.Delete(c.Request().Context(), commentID, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func callerID(c echo.Context) (int64, error) {
	userID, ok := requestctx.UserID(c.Request().Context())
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return userID, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("id", "Input should be a valid integer")
	}
	if id <= 0 {
		return 0, apperrors.NewValidationError("id", "Input should be greater than 0")
	}
	return id, nil
}

// bindAndValidate decodes only the JSON body; path and query values never
// populate request models.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return apperrors.NewValidationError("body", "Input should be a valid JSON object")
	}
	return c.Validate(req)
}
