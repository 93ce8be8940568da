package delivery

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/ledger"
)

// lockOrdered locks issue lines in ascending id order, so concurrent
// returns touching the same lines always wait on each other in one order.
func lockOrdered(ctx context.Context, repo IssueRepository, lineIDs []id.ID) (map[id.ID]PendingLine, error) {
	if len(lineIDs) == 0 {
		return map[id.ID]PendingLine{}, nil
	}
	ids := id.SortedUnique(lineIDs)

	locked, err := repo.LockLines(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock issue lines: %w", err)
	}
	out := make(map[id.ID]PendingLine, len(locked))
	for _, l := range locked {
		out[l.LineID] = l
	}
	return out, nil
}

// returnRules validates returns against the locked issue lines and keeps
// their returned quantities in step.
type returnRules struct {
	issues IssueRepository
}

func (r returnRules) Check(ctx context.Context, ch documents.Change[*Return]) error {
	var requested, previous map[id.ID]types.Quantity
	if ch.Op != documents.OpDelete {
		requested = ch.Doc.Returned()
	}
	if ch.HasPrev {
		previous = ch.Prev.Returned()
	}

	lineIDs := make([]id.ID, 0, len(requested)+len(previous))
	for lineID := range requested {
		if !id.IsNil(lineID) {
			lineIDs = append(lineIDs, lineID)
		}
	}
	for lineID := range previous {
		lineIDs = append(lineIDs, lineID)
	}
	locked, err := lockOrdered(ctx, r.issues, lineIDs)
	if err != nil {
		return err
	}
	if ch.Op == documents.OpDelete {
		return nil
	}

	var fe apperror.FieldErrors
	reported := make(map[id.ID]bool)
	for i := range ch.Doc.Lines {
		line := &ch.Doc.Lines[i]
		if id.IsNil(line.IssueLineID) {
			continue
		}
		issued, ok := locked[line.IssueLineID]
		if !ok {
			fe.Add(documents.LinePath(i, "issueLineId"), apperror.CodeNotFound, "issue line not found")
			continue
		}
		line.ItemID = issued.ItemID

		// what this return already settled is available to it again
		pending := issued.Pending() + previous[line.IssueLineID]
		want := requested[line.IssueLineID]
		if want > pending && !reported[line.IssueLineID] {
			reported[line.IssueLineID] = true
			_ = fe.Merge(documents.LinePath(i, "quantity"),
				apperror.NewOverReturn(line.IssueLineID, want.String(), pending.String()))
		}
	}
	return fe.Err()
}

// Apply moves the returned quantity of each issue line by the change in what
// this return settles: new minus previous, or minus previous on delete.
func (r returnRules) Apply(ctx context.Context, ch documents.Change[*Return]) error {
	delta := make(map[id.ID]types.Quantity)
	if ch.Op != documents.OpDelete {
		for lineID, q := range ch.Doc.Returned() {
			delta[lineID] += q
		}
	}
	if ch.HasPrev {
		for lineID, q := range ch.Prev.Returned() {
			delta[lineID] -= q
		}
	}

	ids := make([]id.ID, 0, len(delta))
	for lineID, q := range delta {
		if q != 0 {
			ids = append(ids, lineID)
		}
	}
	ids = id.SortedUnique(ids)

	for _, lineID := range ids {
		if err := r.issues.AddReturned(ctx, lineID, delta[lineID]); err != nil {
			return fmt.Errorf("update returned quantity: %w", err)
		}
	}
	return nil
}

// issueRules keeps the returned quantity server-owned and protects issues
// that returns already reference.
type issueRules struct {
	issues IssueRepository
}

func (r issueRules) Check(ctx context.Context, ch documents.Change[*Issue]) error {
	if ch.HasPrev {
		lineIDs := make([]id.ID, 0, len(ch.Prev.Lines))
		for _, l := range ch.Prev.Lines {
			lineIDs = append(lineIDs, l.LineID)
		}
		locked, err := lockOrdered(ctx, r.issues, lineIDs)
		if err != nil {
			return err
		}
		for _, l := range locked {
			if l.Returned > 0 {
				return apperror.NewReferentialIntegrity(string(ledger.KindDeliveryIssue), ch.Prev.ID.String(),
					fmt.Sprintf("line %d has returned quantity %s", l.LineNo, l.Returned))
			}
		}
	}

	if ch.Op != documents.OpDelete {
		for i := range ch.Doc.Lines {
			ch.Doc.Lines[i].ReturnedQuantity = 0
		}
	}
	return nil
}

func (issueRules) Apply(context.Context, documents.Change[*Issue]) error { return nil }
