package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const issueLineTable = "delivery_issue_lines"

// IssueRepo stores delivery issues and the returned quantity of their lines.
type IssueRepo struct {
	*BaseDocumentRepo[*delivery.Issue, delivery.IssueLine]
}

func NewIssueRepo(txm *postgres.TxManager) *IssueRepo {
	return &IssueRepo{NewBaseDocumentRepo(txm, ledger.KindDeliveryIssue, "delivery_issues", issueLineTable,
		func() *delivery.Issue { return &delivery.Issue{} },
		func(d *delivery.Issue) *[]delivery.IssueLine { return &d.Lines },
	)}
}

var pendingCols = []string{
	"d.id AS issue_id", "d.reference_no", "d.date", "d.contact_id", "d.to_person",
	"l.line_id", "l.line_no", "l.item_id", "l.warehouse_id", "l.quantity", "l.returned_quantity",
}

func (r *IssueRepo) pendingSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(pendingCols...).
		From(issueLineTable + " l").
		Join("delivery_issues d ON d.id = l.doc_id")
}

// lockQuery locks lines in line id order so concurrent returns queue up
// instead of deadlocking.
func (r *IssueRepo) lockQuery(lineIDs []id.ID) squirrel.SelectBuilder {
	return r.pendingSelect().
		Where(squirrel.Eq{"l.line_id": lineIDs}).
		OrderBy("l.line_id").
		Suffix("FOR UPDATE OF l")
}

// LockLines row-locks the requested issue lines and returns those that exist,
// in the order asked.
func (r *IssueRepo) LockLines(ctx context.Context, lineIDs []id.ID) ([]delivery.PendingLine, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	sql, args, err := r.lockQuery(lineIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []delivery.PendingLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("lock issue lines: %w", postgres.MapError(err))
	}

	byID := make(map[id.ID]delivery.PendingLine, len(rows))
	for _, row := range rows {
		byID[row.LineID] = row
	}
	out := make([]delivery.PendingLine, 0, len(rows))
	for _, lineID := range lineIDs {
		if row, ok := byID[lineID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// AddReturned moves the returned quantity of a line by delta, keeping it
// between zero and the issued quantity.
func (r *IssueRepo) AddReturned(ctx context.Context, lineID id.ID, delta types.Quantity) error {
	sql, args, err := r.Builder().
		Update(issueLineTable).
		Set("returned_quantity", squirrel.Expr("returned_quantity + ?", delta)).
		Where(squirrel.Eq{"line_id": lineID}).
		Where(squirrel.Expr("returned_quantity + ? BETWEEN 0 AND quantity", delta)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.querier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update returned quantity: %w", postgres.MapError(err))
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := querier.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+issueLineTable+" WHERE line_id = $1)", lineID).Scan(&exists); err != nil {
		return fmt.Errorf("check issue line: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("issue line", lineID.String())
	}
	return fmt.Errorf("returned quantity change %s out of range for line %s", delta, lineID)
}

func (r *IssueRepo) pendingQuery(filter delivery.PendingFilter) squirrel.SelectBuilder {
	q := r.pendingSelect().Where("l.returned_quantity < l.quantity")
	if filter.ContactID != nil {
		q = q.Where(squirrel.Eq{"d.contact_id": *filter.ContactID})
	}
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"l.item_id": *filter.ItemID})
	}
	if p := strings.TrimSpace(filter.ToPerson); p != "" {
		q = q.Where(squirrel.Eq{"d.to_person": p})
	}
	return q.OrderBy("d.date", "d.id", "l.line_no")
}

// FindPending returns the lines with a positive pending quantity, oldest first.
func (r *IssueRepo) FindPending(ctx context.Context, filter delivery.PendingFilter) ([]delivery.PendingLine, error) {
	sql, args, err := r.pendingQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []delivery.PendingLine{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("find pending issue lines: %w", err)
	}
	return out, nil
}

// ReturnRepo stores delivery returns.
type ReturnRepo struct {
	*BaseDocumentRepo[*delivery.Return, delivery.ReturnLine]
}

func NewReturnRepo(txm *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{NewBaseDocumentRepo(txm, ledger.KindDeliveryReturn, "delivery_returns", "delivery_return_lines",
		func() *delivery.Return { return &delivery.Return{} },
		func(d *delivery.Return) *[]delivery.ReturnLine { return &d.Lines },
	)}
}

var (
	_ delivery.IssueRepository  = (*IssueRepo)(nil)
	_ delivery.ReturnRepository = (*ReturnRepo)(nil)
)
