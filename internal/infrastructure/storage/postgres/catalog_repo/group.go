package catalog_repo

import (
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/infrastructure/storage/postgres"
)

const groupTable = "groups"

// GroupRepo implements group.Repository.
type GroupRepo struct {
	*BaseCatalogRepo[*group.Group]
}

// NewGroupRepo creates a new group repository.
func NewGroupRepo(txm *postgres.TxManager) *GroupRepo {
	return &GroupRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*group.Group](
			txm,
			groupTable,
			domain.CatalogGroup,
			postgres.ExtractDBColumns[group.Group](),
			func() *group.Group { return &group.Group{} },
		),
	}
}

var _ group.Repository = (*GroupRepo)(nil)
