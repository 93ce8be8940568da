package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	itemTable           = "items"
	itemIdentifierTable = "item_identifiers"
)

// ItemRepo implements item.Repository. Aliases, part numbers and barcodes
// live in item_identifiers and travel with every read and write.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	base := NewBaseCatalogRepo[*item.Item](
		txm,
		itemTable,
		domain.CatalogItem,
		postgres.ExtractDBColumns[item.Item](),
		func() *item.Item { return &item.Item{} },
	)
	base.searchFn = identifierMatch
	return &ItemRepo{BaseCatalogRepo: base}
}

// identifierMatch matches items by alias or part number.
func identifierMatch(pattern string) squirrel.Sqlizer {
	return squirrel.Expr(
		"id IN (SELECT item_id FROM "+itemIdentifierTable+" WHERE kind IN (?, ?) AND value ILIKE ?)",
		item.KindAlias, item.KindPartNumber, pattern,
	)
}

type identifierRow struct {
	ItemID   id.ID               `db:"item_id"`
	Kind     item.IdentifierKind `db:"kind"`
	Position int                 `db:"position"`
	Value    string              `db:"value"`
}

// Create inserts the item with its identifiers.
func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	if err := r.BaseCatalogRepo.Create(ctx, it); err != nil {
		return err
	}
	return r.saveIdentifiers(ctx, it)
}

// Update stores the item and replaces its identifiers.
func (r *ItemRepo) Update(ctx context.Context, it *item.Item) error {
	if err := r.BaseCatalogRepo.Update(ctx, it); err != nil {
		return err
	}
	return r.saveIdentifiers(ctx, it)
}

func (r *ItemRepo) saveIdentifiers(ctx context.Context, it *item.Item) error {
	del, delArgs, err := r.Builder().
		Delete(itemIdentifierTable).
		Where(squirrel.Eq{"item_id": it.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete identifiers: %w", err)
	}
	querier := r.querier(ctx)
	if _, err := querier.Exec(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("delete item identifiers: %w", err)
	}

	ins, ok := identifierInsert(r.Builder(), it)
	if !ok {
		return nil
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert identifiers: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert item identifiers: %w", postgres.MapError(err))
	}
	return nil
}

// identifierInsert builds one multi-row insert; ok is false when the item has no identifiers.
func identifierInsert(b squirrel.StatementBuilderType, it *item.Item) (squirrel.InsertBuilder, bool) {
	ins := b.Insert(itemIdentifierTable).Columns("item_id", "kind", "position", "value")
	n := 0
	for _, kind := range []item.IdentifierKind{item.KindAlias, item.KindPartNumber, item.KindBarcode} {
		for pos, v := range it.Identifiers()[kind] {
			ins = ins.Values(it.ID, kind, pos, v)
			n++
		}
	}
	return ins, n > 0
}

// attachIdentifiers loads the identifier sets of items in one query.
func (r *ItemRepo) attachIdentifiers(ctx context.Context, items ...*item.Item) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[id.ID]*item.Item, len(items))
	ids := make([]id.ID, 0, len(items))
	for _, it := range items {
		it.Aliases, it.PartNumbers, it.Barcodes = nil, nil, nil
		byID[it.ID] = it
		ids = append(ids, it.ID)
	}

	sql, args, err := r.Builder().
		Select("item_id", "kind", "position", "value").
		From(itemIdentifierTable).
		Where(squirrel.Eq{"item_id": ids}).
		OrderBy("item_id", "kind", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build identifiers query: %w", err)
	}

	var rows []identifierRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load item identifiers: %w", err)
	}
	for _, row := range rows {
		it := byID[row.ItemID]
		switch row.Kind {
		case item.KindAlias:
			it.Aliases = append(it.Aliases, row.Value)
		case item.KindPartNumber:
			it.PartNumbers = append(it.PartNumbers, row.Value)
		case item.KindBarcode:
			it.Barcodes = append(it.Barcodes, row.Value)
		}
	}
	return nil
}

func (r *ItemRepo) withIdentifiers(ctx context.Context, it *item.Item, err error) (*item.Item, error) {
	if err != nil {
		return nil, err
	}
	if err := r.attachIdentifiers(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// GetByID retrieves an item with its identifiers.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	it, err := r.BaseCatalogRepo.GetByID(ctx, itemID)
	return r.withIdentifiers(ctx, it, err)
}

// GetByCode retrieves an item by code with its identifiers.
func (r *ItemRepo) GetByCode(ctx context.Context, code string) (*item.Item, error) {
	it, err := r.BaseCatalogRepo.GetByCode(ctx, code)
	return r.withIdentifiers(ctx, it, err)
}

// GetByBarcode finds the item owning barcode.
func (r *ItemRepo) GetByBarcode(ctx context.Context, barcode string) (*item.Item, error) {
	q := r.baseSelect().Where(squirrel.Expr(
		"id = (SELECT item_id FROM "+itemIdentifierTable+" WHERE kind = ? AND lower(value) = lower(?))",
		item.KindBarcode, barcode,
	))
	it, err := r.findOne(ctx, q, barcode)
	return r.withIdentifiers(ctx, it, err)
}

// List retrieves items with their identifiers.
func (r *ItemRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*item.Item], error) {
	res, err := r.BaseCatalogRepo.List(ctx, filter)
	if err != nil {
		return res, err
	}
	return res, r.attachIdentifiers(ctx, res.Items...)
}

// Search matches query against name, code, aliases and part numbers.
func (r *ItemRepo) Search(ctx context.Context, query string, limit int) ([]*item.Item, error) {
	res, err := r.List(ctx, domain.ListFilter{Search: query, Limit: limit, OrderBy: "name"})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// IdentifierOwner returns the item other than exclude using value for kind.
func (r *ItemRepo) IdentifierOwner(ctx context.Context, kind item.IdentifierKind, value string, exclude id.ID) (*id.ID, error) {
	sql, args, err := r.Builder().
		Select("item_id").
		From(itemIdentifierTable).
		Where(squirrel.Eq{"kind": kind}).
		Where(squirrel.Expr("lower(value) = lower(?)", value)).
		Where(squirrel.NotEq{"item_id": exclude}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var owner id.ID
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identifier owner: %w", err)
	}
	return &owner, nil
}

var _ item.Repository = (*ItemRepo)(nil)
