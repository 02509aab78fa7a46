package persistence

import (
	"errors"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the repositories translate
const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgSerializationFail = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == pgUniqueViolation
}

func isLockNotAvailable(err error) bool {
	code := pgCode(err)
	return code == pgLockNotAvailable || code == pgSerializationFail
}

// translateWriteError maps unique violations to shared.ErrAlreadyExists
func translateWriteError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, entity+" already exists")
	}
	return err
}
