// Package audit provides creator attribution and the audit trail contract.
package audit

import (
	"context"

	appctx "stockledger/internal/core/context"
)

// Attributed is a record that remembers who created and last changed it.
type Attributed interface {
	SetCreatedBy(string)
	SetUpdatedBy(string)
}

// EnrichCreatedBy stamps both authors of a new record with the context user.
// Records written without a user keep whatever the caller set.
func EnrichCreatedBy(ctx context.Context, rec Attributed) error {
	if userID := appctx.GetUserID(ctx); userID != "" {
		rec.SetCreatedBy(userID)
		rec.SetUpdatedBy(userID)
	}
	return nil
}

// EnrichUpdatedBy stamps the last author of an edited record.
func EnrichUpdatedBy(ctx context.Context, rec Attributed) error {
	if userID := appctx.GetUserID(ctx); userID != "" {
		rec.SetUpdatedBy(userID)
	}
	return nil
}
