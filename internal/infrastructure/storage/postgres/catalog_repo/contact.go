package catalog_repo

import (
	"github.com/Masterminds/squirrel"

	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/infrastructure/storage/postgres"
)

const contactTable = "contacts"

// ContactRepo implements contact.Repository.
type ContactRepo struct {
	*BaseCatalogRepo[*contact.Contact]
}

// NewContactRepo creates a new contact repository. Search also matches phone and email.
func NewContactRepo(txm *postgres.TxManager) *ContactRepo {
	base := NewBaseCatalogRepo[*contact.Contact](
		txm,
		contactTable,
		domain.CatalogContact,
		postgres.ExtractDBColumns[contact.Contact](),
		func() *contact.Contact { return &contact.Contact{} },
	)
	base.searchFn = func(pattern string) squirrel.Sqlizer {
		return squirrel.Or{
			squirrel.ILike{"phone": pattern},
			squirrel.ILike{"email": pattern},
		}
	}
	return &ContactRepo{BaseCatalogRepo: base}
}

var _ contact.Repository = (*ContactRepo)(nil)
