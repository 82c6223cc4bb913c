// Package apperrors maps storage and domain failures onto the response
// taxonomy of the comment API.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNotFoundOrUnauthorized is returned when an ownership-guarded write
// matched no row. A missing comment and a comment owned by someone else are
// deliberately indistinguishable.
var ErrNotFoundOrUnauthorized = errors.New("comment either not found or unauthorized")

// Kind is a stable failure category.
type Kind string

const (
	KindDataConstraint         Kind = "DataConstraintError"
	KindExecutionState         Kind = "ExecutionStateError"
	KindIntegrityConflict      Kind = "IntegrityConflict"
	KindSchemaMismatch         Kind = "SchemaMismatch"
	KindConnection             Kind = "ConnectionOrPoolFailure"
	KindStatement              Kind = "StatementError"
	KindSessionLifecycle       Kind = "SessionLifecycleError"
	KindEngineInternal         Kind = "EngineInternalError"
	KindRelationshipLinkage    Kind = "RelationshipLinkageError"
	KindConfiguration          Kind = "ConfigurationError"
	KindValidation             Kind = "ValidationError"
	KindTimeout                Kind = "TimeoutError"
	KindNotFoundOrUnauthorized Kind = "NotFoundOrUnauthorized"
	KindUnclassified           Kind = "Unclassified"
)

// Severity selects the log level for a classified failure.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ErrorResponse is the client-safe JSON body written for a failure.
type ErrorResponse struct {
	Detail           string            `json:"detail"`
	Hint             string            `json:"hint,omitempty"`
	TechnicalContext string            `json:"technical_context,omitempty"`
	Type             string            `json:"type,omitempty"`
	Retry            bool              `json:"retry,omitempty"`
	Errors           map[string]string `json:"errors,omitempty"`
}

// Classification is the outcome of Classify.
type Classification struct {
	Kind     Kind
	Status   int
	Severity Severity
	Body     ErrorResponse
}

// ValidationError reports request fields that failed validation, keyed by
// their JSON name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// responses holds the fixed status and payload of every kind.
var responses = map[Kind]Classification{
	KindDataConstraint: {
		Status:   http.StatusBadRequest,
		Severity: SeverityError,
		Body: ErrorResponse{
			Detail: "The data provided is incompatible with the database constraints.",
			Hint:   "Check for string length limits or numeric ranges.",
		},
	},
	KindExecutionState: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityError,
		Body:     ErrorResponse{Detail: "A database execution error occurred."},
	},
	KindIntegrityConflict: {
		Status:   http.StatusConflict,
		Severity: SeverityError,
		Body:     ErrorResponse{Detail: "Data conflict: the record violates a uniqueness or reference constraint."},
	},
	KindSchemaMismatch: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityCritical,
		Body: ErrorResponse{
			Detail:           "Database structure mismatch.",
			Hint:             "Restart the service so AutoMigrate brings the schema up to date.",
			TechnicalContext: "The application is trying to access a table or column that does not exist.",
		},
	},
	KindConnection: {
		Status:   http.StatusServiceUnavailable,
		Severity: SeverityCritical,
		Body: ErrorResponse{
			Detail: "Database communication failure. The service is temporarily unavailable.",
			Retry:  true,
		},
	},
	KindStatement: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityError,
		Body:     ErrorResponse{Detail: "The database received an invalid command."},
	},
	KindSessionLifecycle: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityCritical,
		Body: ErrorResponse{
			Detail: "A database session error occurred. The transaction may have failed.",
			Hint:   "The session requires a rollback or was used after it was closed.",
		},
	},
	KindEngineInternal: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityCritical,
		Body:     ErrorResponse{Detail: "The database engine encountered an internal failure."},
	},
	KindRelationshipLinkage: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityError,
		Body: ErrorResponse{
			Detail: "Database relationship configuration error.",
			Hint:   "A foreign key or referenced column is missing from the schema.",
		},
	},
	KindConfiguration: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityCritical,
		Body: ErrorResponse{
			Detail: "Server configuration error: the database driver or connection settings are invalid.",
			Hint:   "Check DB_DRIVER and COMMENT_DATABASE_URL.",
		},
	},
	KindValidation: {
		Status:   http.StatusUnprocessableEntity,
		Severity: SeverityInfo,
		Body:     ErrorResponse{Detail: "Validation Error"},
	},
	KindTimeout: {
		Status:   http.StatusGatewayTimeout,
		Severity: SeverityError,
		Body:     ErrorResponse{Detail: "The database took too long to respond."},
	},
	KindNotFoundOrUnauthorized: {
		Status:   http.StatusNotFound,
		Severity: SeverityInfo,
		Body:     ErrorResponse{Detail: "Comment either not found or unauthorized"},
	},
	KindUnclassified: {
		Status:   http.StatusInternalServerError,
		Severity: SeverityError,
		Body:     ErrorResponse{Detail: "A critical server error occurred."},
	},
}

// typedKinds echo the Go type of the underlying error back to the client.
var typedKinds = map[Kind]bool{
	KindExecutionState: true,
	KindStatement:      true,
	KindEngineInternal: true,
}

// responseFor returns the template of kind with its own copy of the body.
func responseFor(kind Kind) Classification {
	c, ok := responses[kind]
	if !ok {
		c = responses[KindUnclassified]
		kind = KindUnclassified
	}
	c.Kind = kind
	return c
}
