package delivery

import (
	"context"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// ReferencePrefix starts generated issue reference numbers.
const ReferencePrefix = "DLV"

// IssueRepository persists issues and their returned quantities.
type IssueRepository interface {
	documents.Repository[*Issue]
	documents.ReferenceIndex

	// LockLines row-locks the issue lines with the given ids, in the given
	// order, until the transaction ends. Unknown ids are skipped.
	LockLines(ctx context.Context, lineIDs []id.ID) ([]PendingLine, error)

	// AddReturned adds delta (possibly negative) to the returned quantity of a line.
	AddReturned(ctx context.Context, lineID id.ID, delta types.Quantity) error

	// FindPending returns the lines with a positive pending quantity, oldest first.
	FindPending(ctx context.Context, filter PendingFilter) ([]PendingLine, error)
}

// ReturnRepository persists returns.
type ReturnRepository = documents.Repository[*Return]

// BarcodeLookup resolves an item from one of its barcodes.
type BarcodeLookup interface {
	GetByBarcode(ctx context.Context, barcode string) (*item.Item, error)
}

// IssueService coordinates issue writes.
type IssueService = documents.Coordinator[*Issue]

// ReturnService coordinates return writes.
type ReturnService = documents.Coordinator[*Return]

// NewIssueService creates the issue coordinator.
func NewIssueService(repo IssueRepository, deps documents.Deps, numbers numerator.Generator, opts *numerator.Options) *IssueService {
	svc := documents.NewCoordinator(documents.Config[*Issue]{
		Deps: deps,
		Kind: ledger.KindDeliveryIssue,
		Repo: repo,
		Rules: documents.Chain[*Issue]{
			issueRules{issues: repo},
			documents.UniqueReference[*Issue]{Index: repo, Field: "referenceNo"},
		},
	})
	if numbers != nil {
		svc.Hooks().OnBeforeCreate(documents.AssignReference[*Issue](numbers, numerator.DefaultConfig(ReferencePrefix), opts))
	}
	return svc
}

// NewReturnService creates the return coordinator.
func NewReturnService(repo ReturnRepository, issues IssueRepository, deps documents.Deps) *ReturnService {
	return documents.NewCoordinator(documents.Config[*Return]{
		Deps:  deps,
		Kind:  ledger.KindDeliveryReturn,
		Repo:  repo,
		Rules: returnRules{issues: issues},
	})
}

// Reconciler is the delivery workflow: issue goods, look up what is still
// out, and return against it.
type Reconciler struct {
	issues  *IssueService
	returns *ReturnService
	repo    IssueRepository
	items   BarcodeLookup
}

// NewReconciler creates a Reconciler. items may be nil when barcode lookup is not needed.
func NewReconciler(issues *IssueService, returns *ReturnService, repo IssueRepository, items BarcodeLookup) *Reconciler {
	return &Reconciler{issues: issues, returns: returns, repo: repo, items: items}
}

// Issue records goods handed out; every line starts with nothing returned.
func (r *Reconciler) Issue(ctx context.Context, doc *Issue) error {
	return r.issues.Create(ctx, doc)
}

// FindPending lists issue lines with something still to return, oldest first.
func (r *Reconciler) FindPending(ctx context.Context, filter PendingFilter) ([]PendingLine, error) {
	lines, err := r.repo.FindPending(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find pending deliveries: %w", err)
	}
	return lines, nil
}

// FindPendingByBarcode resolves the item by barcode and lists its pending lines,
// optionally for one contact.
func (r *Reconciler) FindPendingByBarcode(ctx context.Context, barcode string, contactID *id.ID) ([]PendingLine, error) {
	if r.items == nil {
		return nil, apperror.NewValidation("barcode lookup is not available")
	}
	it, err := r.items.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	itemID := it.ID
	return r.FindPending(ctx, PendingFilter{ContactID: contactID, ItemID: &itemID})
}

// ReturnAgainst records a return. Each referenced issue line is locked, the
// quantities are checked against its pending quantity and its returned
// quantity is raised, all in one transaction.
func (r *Reconciler) ReturnAgainst(ctx context.Context, ret *Return) error {
	if err := r.returns.Create(ctx, ret); err != nil {
		return err
	}
	logger.Debug(ctx, "delivery returned", "return_id", ret.ID, "lines", len(ret.Lines))
	return nil
}

// ReturnLine returns qty of a single issue line into warehouseID.
func (r *Reconciler) ReturnLine(ctx context.Context, issueLineID id.ID, qty types.Quantity, warehouseID id.ID, date time.Time) (*Return, error) {
	ret := NewReturn(date)
	ret.AddLine(issueLineID, warehouseID, qty)
	if err := r.ReturnAgainst(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
