package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	bomTable          = "boms"
	bomComponentTable = "bom_components"
)

// BOMRepo implements bom.Repository over boms and bom_components.
type BOMRepo struct {
	*BaseCatalogRepo[*bom.BillOfMaterial]
}

// NewBOMRepo creates a new bill of materials repository.
func NewBOMRepo(txm *postgres.TxManager) *BOMRepo {
	return &BOMRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*bom.BillOfMaterial](
			txm,
			bomTable,
			domain.CatalogBOM,
			postgres.ExtractDBColumns[bom.BillOfMaterial](),
			func() *bom.BillOfMaterial { return &bom.BillOfMaterial{} },
		),
	}
}

type componentRow struct {
	BOMID    id.ID `db:"bom_id"`
	Position int   `db:"position"`
	bom.Component
}

// Create inserts the BOM with its components.
func (r *BOMRepo) Create(ctx context.Context, b *bom.BillOfMaterial) error {
	if err := r.BaseCatalogRepo.Create(ctx, b); err != nil {
		return err
	}
	return r.saveComponents(ctx, b)
}

// Update stores the BOM and replaces its components.
func (r *BOMRepo) Update(ctx context.Context, b *bom.BillOfMaterial) error {
	if err := r.BaseCatalogRepo.Update(ctx, b); err != nil {
		return err
	}
	return r.saveComponents(ctx, b)
}

func (r *BOMRepo) saveComponents(ctx context.Context, b *bom.BillOfMaterial) error {
	querier := r.querier(ctx)

	sql, args, err := r.Builder().
		Delete(bomComponentTable).
		Where(squirrel.Eq{"bom_id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete components: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete bom components: %w", err)
	}
	if len(b.Components) == 0 {
		return nil
	}

	ins := r.Builder().Insert(bomComponentTable).Columns("bom_id", "position", "item_id", "quantity")
	for pos, c := range b.Components {
		ins = ins.Values(b.ID, pos, c.ItemID, c.Quantity)
	}
	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert components: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bom components: %w", postgres.MapError(err))
	}
	return nil
}

func (r *BOMRepo) attachComponents(ctx context.Context, boms ...*bom.BillOfMaterial) error {
	if len(boms) == 0 {
		return nil
	}
	byID := make(map[id.ID]*bom.BillOfMaterial, len(boms))
	ids := make([]id.ID, 0, len(boms))
	for _, b := range boms {
		b.Components = []bom.Component{}
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	sql, args, err := r.Builder().
		Select("bom_id", "position", "item_id", "quantity").
		From(bomComponentTable).
		Where(squirrel.Eq{"bom_id": ids}).
		OrderBy("bom_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build components query: %w", err)
	}

	var rows []componentRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load bom components: %w", err)
	}
	for _, row := range rows {
		b := byID[row.BOMID]
		b.Components = append(b.Components, row.Component)
	}
	return nil
}

func (r *BOMRepo) withComponents(ctx context.Context, b *bom.BillOfMaterial, err error) (*bom.BillOfMaterial, error) {
	if err != nil {
		return nil, err
	}
	if err := r.attachComponents(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID retrieves a BOM with its components.
func (r *BOMRepo) GetByID(ctx context.Context, bomID id.ID) (*bom.BillOfMaterial, error) {
	b, err := r.BaseCatalogRepo.GetByID(ctx, bomID)
	return r.withComponents(ctx, b, err)
}

// GetByItem retrieves the BOM of itemID.
func (r *BOMRepo) GetByItem(ctx context.Context, itemID id.ID) (*bom.BillOfMaterial, error) {
	b, err := r.findOne(ctx, r.baseSelect().Where(squirrel.Eq{"item_id": itemID}), itemID.String())
	return r.withComponents(ctx, b, err)
}

// List returns BOMs ordered by id. BOMs carry no name, so Search is ignored.
func (r *BOMRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*bom.BillOfMaterial], error) {
	result := domain.ListResult[*bom.BillOfMaterial]{
		Items:  []*bom.BillOfMaterial{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count boms: %w", err)
	}

	q = q.OrderBy("id")
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
		return result, fmt.Errorf("list boms: %w", err)
	}
	return result, r.attachComponents(ctx, result.Items...)
}

var _ bom.Repository = (*BOMRepo)(nil)
