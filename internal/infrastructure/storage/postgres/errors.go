package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/tx"
)

// SQLSTATE codes the ledger reacts to.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgForeignKeyViolation  = "23503"
	pgUniqueViolation      = "23505"
)

// MapError classifies driver errors. Lock and serialization failures wrap
// tx.ErrContention so the retry policy re-runs the transaction; constraint
// violations become AppErrors. Anything else is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) || tx.IsContention(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return fmt.Errorf("%w: %s (%s)", tx.ErrContention, pgErr.Message, pgErr.Code)
	case pgForeignKeyViolation:
		return apperror.NewReferentialIntegrity(pgErr.TableName, pgErr.ConstraintName, "a dependent record exists").
			WithCause(err)
	case pgUniqueViolation:
		return apperror.NewFieldError(constraintField(pgErr.ConstraintName), apperror.CodeDuplicate, "value is already used").
			WithCause(err)
	}
	return err
}

// constraintField maps unique constraints to the input field they protect.
func constraintField(constraint string) string {
	if f, ok := uniqueFields[constraint]; ok {
		return f
	}
	return ""
}

var uniqueFields = map[string]string{
	"uq_groups_code":               "code",
	"uq_warehouses_code":           "code",
	"uq_contacts_code":             "code",
	"uq_items_code":                "code",
	"uq_item_identifiers_value":    "identifiers",
	"uq_boms_item":                 "itemId",
	"uq_opening_lines_key":         "lines",
	"uq_production_reference":      "referenceNo",
	"uq_transfers_reference":       "referenceNo",
	"uq_delivery_issues_reference": "referenceNo",
}
