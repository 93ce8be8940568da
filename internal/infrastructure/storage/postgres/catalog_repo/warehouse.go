package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/infrastructure/storage/postgres"
)

const warehouseTable = "warehouses"

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	*BaseCatalogRepo[*warehouse.Warehouse]
}

// NewWarehouseRepo creates a new warehouse repository.
func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*warehouse.Warehouse](
			txm,
			warehouseTable,
			domain.CatalogWarehouse,
			postgres.ExtractDBColumns[warehouse.Warehouse](),
			func() *warehouse.Warehouse { return &warehouse.Warehouse{} },
		),
	}
}

// Children returns the direct children of parentID ordered by name.
func (r *WarehouseRepo) Children(ctx context.Context, parentID id.ID) ([]*warehouse.Warehouse, error) {
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"parent_id": parentID}).
		OrderBy("lower(name)").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	children := []*warehouse.Warehouse{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &children, sql, args...); err != nil {
		return nil, fmt.Errorf("warehouse children: %w", err)
	}
	return children, nil
}

var _ warehouse.Repository = (*WarehouseRepo)(nil)
