package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/logger"
)

var tracer = otel.Tracer("github.com/gera1311/foodgram/internal/repository")

// querier is satisfied by both *database.DB and *database.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db         *database.DB
	log        *logger.Logger
	newCode    func() (string, error)
	bcryptCost int
}

type Option func(*Repository)

func WithLogger(l *logger.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// WithCodeGenerator replaces the random short-code generator.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(r *Repository) { r.newCode = fn }
}

func WithBcryptCost(cost int) Option {
	return func(r *Repository) { r.bcryptCost = cost }
}

func New(db *database.DB, opts ...Option) *Repository {
	r := &Repository{
		db:         db,
		log:        logger.Nop(),
		newCode:    randomShortCode,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *database.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "repository."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func pageArgs(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 6
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
