package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid data")
)

// коды PostgreSQL, которые превращаем в доменные ошибки
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgInvalidTextRepr     = "22P02" // например, кривой uuid в пути
)

// mapErr переводит ошибки драйвера (pgx или lib/pq) в ErrNotFound/ErrConflict/ErrInvalid,
// сохраняя исходную ошибку в цепочке.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	switch pgCode(err) {
	case pgUniqueViolation, pgForeignKeyViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	case pgCheckViolation, pgNotNullViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrInvalid, err)
	case pgInvalidTextRepr:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
