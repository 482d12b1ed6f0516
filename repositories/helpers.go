package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/mob-api/db"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// constraintViolation reports the violated constraint name when err is a
// postgres error with the given SQLSTATE code.
func constraintViolation(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if string(pqErr.Code) != code {
		return "", false
	}
	return pqErr.Constraint, true
}

func isUniqueViolation(err error) (string, bool) {
	return constraintViolation(err, pgerrcode.UniqueViolation)
}

func isForeignKeyViolation(err error) (string, bool) {
	return constraintViolation(err, pgerrcode.ForeignKeyViolation)
}

func executor(def *sql.DB, exec db.SQLExecutor) db.SQLExecutor {
	if exec != nil {
		return exec
	}
	return def
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
