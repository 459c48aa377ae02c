// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"vista/internal/models"
	"vista/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// OpLogger records database operations for repositories. It is passed to
// each repository at construction.
type OpLogger struct {
	log *slog.Logger
}

// NewOpLogger returns an OpLogger writing to l.
func NewOpLogger(l *slog.Logger) *OpLogger {
	return &OpLogger{log: l.With(slog.String("component", "repository"))}
}

// Operation logs a successful operation on table.
func (l *OpLogger) Operation(ctx context.Context, op, table, recordID string, attrs ...any) {
	args := append([]any{
		slog.String("operation", op),
		slog.String("table", table),
	}, attrs...)
	if recordID != "" {
		args = append(args, slog.String("record_id", recordID))
	}
	l.log.DebugContext(ctx, "Database "+op+" on "+table, args...)
}

// Failure logs a failed operation on table with its identifiers and counts it.
func (l *OpLogger) Failure(ctx context.Context, op, table string, err error, attrs ...any) {
	observability.DatabaseErrors.WithLabelValues(op, table).Inc()
	args := append([]any{
		slog.String("operation", op),
		slog.String("table", table),
		slog.String("error", err.Error()),
	}, attrs...)
	l.log.ErrorContext(ctx, "Database error during "+op+" on "+table, args...)
}

// translate maps a gorm error to an AppError. Not-found errors are expected
// outcomes and are not logged as failures.
func (l *OpLogger) translate(ctx context.Context, op, table, resource string, err error, attrs ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource)
	}
	l.Failure(ctx, op, table, err, attrs...)
	if isUniqueConstraintError(err) {
		return models.NewConflictError(resource + " already exists")
	}
	return models.NewInternalError(err)
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
