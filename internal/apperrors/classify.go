package apperrors

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// sentinel binds a well-known error value to a kind. A non-zero status
// overrides the kind's default.
type sentinel struct {
	target error
	kind   Kind
	status int
}

var sentinels = []sentinel{
	{gorm.ErrRecordNotFound, KindExecutionState, http.StatusNotFound},
	{sql.ErrNoRows, KindExecutionState, http.StatusNotFound},
	{gorm.ErrInvalidTransaction, KindSessionLifecycle, 0},
	{sql.ErrTxDone, KindSessionLifecycle, 0},
	{gorm.ErrDuplicatedKey, KindIntegrityConflict, 0},
	{gorm.ErrForeignKeyViolated, KindIntegrityConflict, 0},
	{gorm.ErrUnsupportedRelation, KindRelationshipLinkage, 0},
	{gorm.ErrMissingWhereClause, KindStatement, 0},
	{gorm.ErrNotImplemented, KindStatement, 0},
	{gorm.ErrPrimaryKeyRequired, KindStatement, 0},
	{gorm.ErrModelValueRequired, KindStatement, 0},
	{gorm.ErrModelAccessibleFieldsRequired, KindStatement, 0},
	{gorm.ErrSubQueryRequired, KindStatement, 0},
	{gorm.ErrInvalidData, KindStatement, 0},
	{gorm.ErrInvalidField, KindStatement, 0},
	{gorm.ErrEmptySlice, KindStatement, 0},
	{gorm.ErrInvalidValue, KindStatement, 0},
	{gorm.ErrInvalidValueOfLength, KindStatement, 0},
	{gorm.ErrPreloadNotAllowed, KindStatement, 0},
	{gorm.ErrUnsupportedDriver, KindConfiguration, 0},
	{gorm.ErrRegistered, KindConfiguration, 0},
	{gorm.ErrDryRunModeUnsupported, KindConfiguration, 0},
	{gorm.ErrInvalidDB, KindConfiguration, 0},
	{driver.ErrBadConn, KindConnection, 0},
	{sql.ErrConnDone, KindConnection, 0},
	{context.DeadlineExceeded, KindTimeout, 0},
	{os.ErrDeadlineExceeded, KindTimeout, 0},
}

// pgCodes classifies exact SQLSTATE codes ahead of their class.
var pgCodes = map[string]Kind{
	"42P01": KindSchemaMismatch, // undefined_table
	"42703": KindSchemaMismatch, // undefined_column
	"3F000": KindSchemaMismatch, // invalid_schema_name
	"42830": KindRelationshipLinkage,
	"57014": KindTimeout, // query_canceled, raised by statement_timeout
	"55P03": KindTimeout, // lock_not_available
	"25P03": KindTimeout, // idle_in_transaction_session_timeout
}

// pgClasses classifies by the two-character SQLSTATE class.
var pgClasses = map[string]Kind{
	"08": KindConnection,
	"53": KindConnection,
	"57": KindConnection,
	"22": KindDataConstraint,
	"23": KindIntegrityConflict,
	"0A": KindStatement,
	"26": KindStatement,
	"34": KindStatement,
	"42": KindStatement,
	"54": KindStatement,
	"25": KindSessionLifecycle,
	"2D": KindSessionLifecycle,
	"3B": KindSessionLifecycle,
	"40": KindSessionLifecycle,
	"55": KindSessionLifecycle,
	"28": KindConfiguration,
	"3D": KindConfiguration,
	"F0": KindConfiguration,
	"HV": KindConfiguration,
	"38": KindEngineInternal,
	"39": KindEngineInternal,
	"58": KindEngineInternal,
	"P0": KindEngineInternal,
	"XX": KindEngineInternal,
}

// schemaHints carries the remediation logged and returned for schema drift.
var schemaHints = map[string]ErrorResponse{
	"42P01": {
		Detail: "Database schema error: A required table does not exist.",
		Hint:   "Restart the service so AutoMigrate creates the missing tables.",
	},
	"42703": {
		Detail: "Database schema error: A column referenced in the code does not exist in the database.",
		Hint:   "Restart the service so AutoMigrate adds the missing columns.",
	},
}

var sqliteCodes = map[sqlite3.ErrNo]Kind{
	sqlite3.ErrError:      KindStatement,
	sqlite3.ErrInternal:   KindEngineInternal,
	sqlite3.ErrPerm:       KindConfiguration,
	sqlite3.ErrAbort:      KindSessionLifecycle,
	sqlite3.ErrBusy:       KindTimeout,
	sqlite3.ErrLocked:     KindTimeout,
	sqlite3.ErrNomem:      KindEngineInternal,
	sqlite3.ErrReadonly:   KindConfiguration,
	sqlite3.ErrInterrupt:  KindTimeout,
	sqlite3.ErrIoErr:      KindConnection,
	sqlite3.ErrCorrupt:    KindEngineInternal,
	sqlite3.ErrFull:       KindEngineInternal,
	sqlite3.ErrCantOpen:   KindConnection,
	sqlite3.ErrProtocol:   KindConnection,
	sqlite3.ErrSchema:     KindSchemaMismatch,
	sqlite3.ErrTooBig:     KindDataConstraint,
	sqlite3.ErrConstraint: KindIntegrityConflict,
	sqlite3.ErrMismatch:   KindDataConstraint,
	sqlite3.ErrMisuse:     KindSessionLifecycle,
	sqlite3.ErrAuth:       KindConfiguration,
	sqlite3.ErrFormat:     KindEngineInternal,
	sqlite3.ErrRange:      KindDataConstraint,
	sqlite3.ErrNotADB:     KindConfiguration,
}

// Classify maps err onto the response taxonomy. It never returns a
// classification that leaks err's message to the client, except for
// validation failures whose field messages are meant for the caller.
func Classify(err error) Classification {
	if err == nil {
		return responseFor(KindUnclassified)
	}

	if errors.Is(err, ErrNotFoundOrUnauthorized) {
		return responseFor(KindNotFoundOrUnauthorized)
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		c := responseFor(KindValidation)
		c.Body.Errors = validationErr.Fields
		return c
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return classifySQLite(sqliteErr)
	}

	if pgconn.Timeout(err) {
		return responseFor(KindTimeout)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return responseFor(KindConnection)
	}

	for _, s := range sentinels {
		if errors.Is(err, s.target) {
			c := responseFor(s.kind)
			if s.status != 0 {
				c.Status = s.status
			}
			return c
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return responseFor(KindTimeout)
		}
		return responseFor(KindConnection)
	}

	return responseFor(KindUnclassified)
}

func classifyPostgres(pgErr *pgconn.PgError) Classification {
	kind, ok := pgCodes[pgErr.Code]
	if !ok && len(pgErr.Code) >= 2 {
		kind, ok = pgClasses[pgErr.Code[:2]]
	}
	if !ok {
		kind = KindUnclassified
	}

	c := withType(responseFor(kind), pgErr)
	if hint, ok := schemaHints[pgErr.Code]; ok {
		c.Body = hint
	}
	return c
}

func classifySQLite(sqliteErr sqlite3.Error) Classification {
	msg := sqliteErr.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") {
		return responseFor(KindSchemaMismatch)
	}

	kind, ok := sqliteCodes[sqliteErr.Code]
	if !ok {
		kind = KindEngineInternal
	}
	return withType(responseFor(kind), sqliteErr)
}

func withType(c Classification, err error) Classification {
	if typedKinds[c.Kind] {
		c.Body.Type = fmt.Sprintf("%T", err)
	}
	return c
}
