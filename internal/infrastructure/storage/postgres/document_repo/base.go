// Package document_repo provides PostgreSQL implementations for ledger repositories.
// Every ledger kind keeps its header in one table and its lines in another;
// lines are replaced as a full set on each write.
package document_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

// lineRow pairs a stored line with the header it belongs to. Line columns are
// selected with a "line." prefix so scany fills the nested struct.
type lineRow[L any] struct {
	DocID id.ID `db:"doc_id"`
	Line  L     `db:"line"`
}

// BaseDocumentRepo provides header and line storage for one ledger kind.
type BaseDocumentRepo[D documents.Document, L any] struct {
	txm        *postgres.TxManager
	batch      *postgres.BatchInserter
	kind       ledger.Kind
	tableName  string
	lineTable  string
	selectCols []string
	lineCols   []string
	newFn      func() D
	lines      func(D) *[]L

	// lineExtra supplies stored line columns derived from the header.
	lineExtra func(D) map[string]any
}

// NewBaseDocumentRepo creates a repository over tableName and lineTable.
// lines exposes the line slice of a document for loading and saving.
func NewBaseDocumentRepo[D documents.Document, L any](
	txm *postgres.TxManager,
	kind ledger.Kind,
	tableName, lineTable string,
	newFn func() D,
	lines func(D) *[]L,
) *BaseDocumentRepo[D, L] {
	return &BaseDocumentRepo[D, L]{
		txm:        txm,
		batch:      postgres.NewBatchInserter(txm),
		kind:       kind,
		tableName:  tableName,
		lineTable:  lineTable,
		selectCols: postgres.ExtractDBColumns[D](),
		lineCols:   postgres.ExtractDBColumns[L](),
		newFn:      newFn,
		lines:      lines,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[D, L]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[D, L]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *BaseDocumentRepo[D, L]) has(col string) bool {
	for _, c := range r.selectCols {
		if c == col {
			return true
		}
	}
	return false
}

func (r *BaseDocumentRepo[D, L]) notFound(docID id.ID) error {
	return apperror.NewNotFound(r.kind.String(), docID.String())
}

func (r *BaseDocumentRepo[D, L]) headerValues(doc D, exclude ...string) map[string]any {
	data := postgres.StructToMap(doc)
	out := make(map[string]any, len(r.selectCols))
	for _, col := range postgres.Without(r.selectCols, exclude...) {
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}

// Create inserts the header. Lines are stored by SaveLines.
func (r *BaseDocumentRepo[D, L]) Create(ctx context.Context, doc D) error {
	if doc.GetVersion() == 0 {
		doc.GetHeader().SetVersion(1)
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(r.headerValues(doc)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, postgres.MapError(err))
	}
	return nil
}

// updateQuery writes every mutable header column, guarded by the submitted version.
func (r *BaseDocumentRepo[D, L]) updateQuery(doc D) squirrel.UpdateBuilder {
	return r.Builder().
		Update(r.tableName).
		SetMap(r.headerValues(doc, "id", "version", "created_at", "created_by")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": doc.GetID()}).
		Where(squirrel.Eq{"version": doc.GetVersion()})
}

// Update stores the header with optimistic locking and increments its version.
func (r *BaseDocumentRepo[D, L]) Update(ctx context.Context, doc D) error {
	sql, args, err := r.updateQuery(doc).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, postgres.MapError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.kind.String(), doc.GetID().String())
	}
	doc.GetHeader().SetVersion(doc.GetVersion() + 1)
	return nil
}

// Delete removes the header; lines cascade.
func (r *BaseDocumentRepo[D, L]) Delete(ctx context.Context, docID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, postgres.MapError(err))
	}
	if result.RowsAffected() == 0 {
		return r.notFound(docID)
	}
	return nil
}

// SaveLines replaces the stored line set of doc.
func (r *BaseDocumentRepo[D, L]) SaveLines(ctx context.Context, doc D) error {
	sql, args, err := r.Builder().
		Delete(r.lineTable).
		Where(squirrel.Eq{"doc_id": doc.GetID()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", r.lineTable, postgres.MapError(err))
	}

	extra := map[string]any{"doc_id": doc.GetID()}
	if r.lineExtra != nil {
		for k, v := range r.lineExtra(doc) {
			extra[k] = v
		}
	}
	columns := append([]string{"doc_id"}, r.lineCols...)
	for col := range extra {
		if col != "doc_id" {
			columns = append(columns, col)
		}
	}

	rows := postgres.StructRows(*r.lines(doc), columns, extra)
	if _, err := r.batch.CopyRows(ctx, r.lineTable, columns, rows); err != nil {
		return err
	}
	return nil
}

func (r *BaseDocumentRepo[D, L]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

func (r *BaseDocumentRepo[D, L]) getOne(ctx context.Context, q squirrel.SelectBuilder, docID id.ID) (D, error) {
	doc := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return doc, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return doc, r.notFound(docID)
		}
		return doc, fmt.Errorf("get %s: %w", r.tableName, postgres.MapError(err))
	}
	if err := r.attachLines(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// GetByID retrieves a document with its lines.
func (r *BaseDocumentRepo[D, L]) GetByID(ctx context.Context, docID id.ID) (D, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": docID}), docID)
}

// GetForUpdate retrieves a document with its lines and locks the header row.
func (r *BaseDocumentRepo[D, L]) GetForUpdate(ctx context.Context, docID id.ID) (D, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": docID}).Suffix("FOR UPDATE"), docID)
}

// lineSelect selects doc_id and the prefixed line columns of the given headers.
func (r *BaseDocumentRepo[D, L]) lineSelect(docIDs []id.ID) squirrel.SelectBuilder {
	cols := make([]string, 0, len(r.lineCols)+1)
	cols = append(cols, "doc_id")
	for _, c := range r.lineCols {
		cols = append(cols, fmt.Sprintf(`%s AS "line.%s"`, c, c))
	}
	return r.Builder().
		Select(cols...).
		From(r.lineTable).
		Where(squirrel.Eq{"doc_id": docIDs}).
		OrderBy("doc_id", "line_no")
}

// attachLines loads the lines of docs in one query.
func (r *BaseDocumentRepo[D, L]) attachLines(ctx context.Context, docs ...D) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[id.ID]*[]L, len(docs))
	ids := make([]id.ID, 0, len(docs))
	for _, doc := range docs {
		lines := r.lines(doc)
		*lines = []L{}
		byID[doc.GetID()] = lines
		ids = append(ids, doc.GetID())
	}

	sql, args, err := r.lineSelect(ids).ToSql()
	if err != nil {
		return fmt.Errorf("build lines query: %w", err)
	}

	var rows []lineRow[L]
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load %s: %w", r.lineTable, err)
	}
	for _, row := range rows {
		lines := byID[row.DocID]
		*lines = append(*lines, row.Line)
	}
	return nil
}

// listQuery applies the filter conditions; ordering and paging are added by List.
func (r *BaseDocumentRepo[D, L]) listQuery(filter documents.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": filter.DateFrom.Format(dateLayout)})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": filter.DateTo.Format(dateLayout)})
	}
	if filter.ContactID != nil && r.has("contact_id") {
		q = q.Where(squirrel.Eq{"contact_id": *filter.ContactID})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		match := squirrel.Or{squirrel.ILike{"remarks": pattern}}
		if r.has("reference_no") {
			match = append(match, squirrel.ILike{"reference_no": pattern})
		}
		q = q.Where(match)
	}
	return q
}

const dateLayout = "2006-01-02"

// List retrieves documents with their lines, newest first unless ordered by "date".
func (r *BaseDocumentRepo[D, L]) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[D], error) {
	result := domain.ListResult[D]{
		Items:  []D{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy...)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, r.attachLines(ctx, result.Items...)
}

// parseOrderBy accepts a header column with an optional "-" prefix.
// Ties are broken by id in the same direction.
func (r *BaseDocumentRepo[D, L]) parseOrderBy(orderBy string) ([]string, error) {
	field := strings.TrimSpace(orderBy)
	if field == "" || field == "name" {
		field = "-date"
	}

	direction := "ASC"
	if strings.HasPrefix(field, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(field, "-")
	} else {
		field = strings.TrimPrefix(field, "+")
	}

	if !r.has(field) {
		return nil, apperror.NewFieldError("orderBy", apperror.CodeInvalid, fmt.Sprintf("cannot order by %q", field))
	}
	if field == "id" {
		return []string{"id " + direction}, nil
	}
	return []string{field + " " + direction, "id " + direction}, nil
}

// ReferenceTaken reports whether another document of this kind uses reference, ignoring case.
func (r *BaseDocumentRepo[D, L]) ReferenceTaken(ctx context.Context, reference string, exclude id.ID) (bool, error) {
	if !r.has("reference_no") || strings.TrimSpace(reference) == "" {
		return false, nil
	}

	sql, args, err := r.Builder().
		Select("1").
		From(r.tableName).
		Where(squirrel.Expr("lower(reference_no) = lower(?)", reference)).
		Where(squirrel.NotEq{"id": exclude}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s reference: %w", r.kind, err)
	}
	return true, nil
}
