package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrSlugTaken            = errors.New("shop slug already taken")
	ErrShopOwnerTaken       = errors.New("user already owns a shop")
	ErrDuplicateUser        = errors.New("username or email already registered")
	ErrProductChanged       = errors.New("product changed since it was read")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrStatusChanged        = errors.New("order status changed concurrently")
	ErrNotFound             = errors.New("row not found")
)

const pgUniqueViolation = "23505"

// uniqueViolation returns the violated constraint name, or "" for any other error.
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}
