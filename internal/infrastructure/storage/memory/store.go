// Package memory is an in-process implementation of every repository. It
// backs the domain tests and the server's no-database mode.
//
// Transactions are serialized by one mutex and rolled back from an undo
// journal; each write records how to reverse itself. Row locks are therefore
// implied by the transaction lock.
package memory

import (
	"context"
	"sync"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/inward"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/documents/outward"
	"stockledger/internal/domain/documents/production"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/ledger"
)

// Store holds all tables.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	// contention makes the next n transactions fail with tx.ErrContention.
	contention int

	Groups     *CatalogRepo[*group.Group]
	Warehouses *WarehouseRepo
	Contacts   *CatalogRepo[*contact.Contact]
	Items      *ItemRepo
	BOMs       *BOMRepo

	Openings    *OpeningRepo
	Inwards     *DocumentRepo[*inward.Inward]
	Outwards    *DocumentRepo[*outward.Outward]
	Productions *DocumentRepo[*production.Production]
	Transfers   *DocumentRepo[*transfer.Transfer]
	Adjustments *DocumentRepo[*adjustment.Adjustment]
	Issues      *IssueRepo
	Returns     *ReturnRepo

	Stock   *StockRepo
	Reports *ReportRepo
	Periods *PeriodRepo
	Audit   *AuditLog
	Numbers *Numerator
	Outbox  *Outbox
}

// New creates an empty store.
func New() *Store {
	s := &Store{}

	s.Groups = newCatalogRepo(s, domain.CatalogGroup, func(g *group.Group) *group.Group {
		c := *g
		return &c
	})
	s.Warehouses = &WarehouseRepo{CatalogRepo: newCatalogRepo(s, domain.CatalogWarehouse, cloneWarehouse)}
	s.Contacts = newCatalogRepo(s, domain.CatalogContact, func(ct *contact.Contact) *contact.Contact {
		c := *ct
		return &c
	})
	s.Items = &ItemRepo{CatalogRepo: newCatalogRepo(s, domain.CatalogItem, cloneItem)}
	s.BOMs = &BOMRepo{s: s, rows: make(map[id.ID]*bom.BillOfMaterial)}

	s.Openings = &OpeningRepo{DocumentRepo: newDocumentRepo[*opening.Opening](s, ledger.KindOpening)}
	s.Inwards = newDocumentRepo[*inward.Inward](s, ledger.KindInward)
	s.Outwards = newDocumentRepo[*outward.Outward](s, ledger.KindOutward)
	s.Productions = newDocumentRepo[*production.Production](s, ledger.KindProduction)
	s.Transfers = newDocumentRepo[*transfer.Transfer](s, ledger.KindTransfer)
	s.Adjustments = newDocumentRepo[*adjustment.Adjustment](s, ledger.KindAdjustment)
	s.Issues = &IssueRepo{DocumentRepo: newDocumentRepo[*delivery.Issue](s, ledger.KindDeliveryIssue)}
	s.Returns = &ReturnRepo{DocumentRepo: newDocumentRepo[*delivery.Return](s, ledger.KindDeliveryReturn)}

	s.Stock = &StockRepo{s: s, rows: make(map[id.ID][]entity.StockMovement)}
	s.Reports = &ReportRepo{s: s}
	s.Periods = &PeriodRepo{s: s}
	s.Audit = &AuditLog{s: s}
	s.Numbers = &Numerator{s: s, values: make(map[string]int64)}
	s.Outbox = &Outbox{s: s}
	return s
}

// TxManager returns the store's transaction manager.
func (s *Store) TxManager() tx.Manager { return txManager{s: s} }

// InjectContention makes the next n transactions fail with tx.ErrContention
// after their work ran, so their writes are rolled back.
func (s *Store) InjectContention(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contention = n
}

type journalKey struct{}

// journal collects the undo steps of one transaction.
type journal struct {
	undo []func()
}

type txManager struct {
	s *Store
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (m txManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	s := m.s
	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		s.mu.Lock()
		if s.contention > 0 {
			s.contention--
			err = tx.ErrContention
		}
		s.mu.Unlock()
	}
	if err != nil {
		s.rollback(j)
		return err
	}
	return nil
}

func (s *Store) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
}

// write applies fn under the write lock. The undo step it returns is
// journaled when ctx carries a transaction.
func (s *Store) write(ctx context.Context, fn func() (undo func(), err error)) error {
	s.mu.Lock()
	undo, err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if j, ok := ctx.Value(journalKey{}).(*journal); ok && undo != nil {
		j.undo = append(j.undo, undo)
	}
	return nil
}

// read runs fn under the read lock.
func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

var _ tx.Manager = txManager{}

// Deps wires the store into the shared document coordinator dependencies.
// The stock cache is left for the caller.
func (s *Store) Deps() documents.Deps {
	return documents.Deps{
		TxManager: s.TxManager(),
		Periods:   s.Periods,
		Refs:      s,
		Movements: s.Stock,
		Events:    s.Outbox,
		Audit:     s.Audit,
		Retry:     tx.RetryPolicy{Attempts: 3},
	}
}
