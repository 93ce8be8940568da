package documents

import (
	"context"
	"fmt"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain"
)

// Rules adds kind-specific behavior to the coordinator.
type Rules[D Document] interface {
	// Check runs inside the transaction before anything is written. It may
	// normalize ch.Doc. Client failures are returned as field errors and are
	// reported together with every other failure of the submission.
	Check(ctx context.Context, ch Change[D]) error

	// Apply writes side effects after the header and lines are stored.
	Apply(ctx context.Context, ch Change[D]) error
}

// NoRules is the Rules of kinds without special behavior.
type NoRules[D Document] struct{}

func (NoRules[D]) Check(context.Context, Change[D]) error { return nil }
func (NoRules[D]) Apply(context.Context, Change[D]) error { return nil }

// Chain runs several rules. Check collects the field errors of all of them.
type Chain[D Document] []Rules[D]

func (c Chain[D]) Check(ctx context.Context, ch Change[D]) error {
	var fe apperror.FieldErrors
	for _, r := range c {
		if err := fe.Merge("", r.Check(ctx, ch)); err != nil {
			return err
		}
	}
	return fe.Err()
}

func (c Chain[D]) Apply(ctx context.Context, ch Change[D]) error {
	for _, r := range c {
		if err := r.Apply(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// referenced constrains documents with a reference number.
type referenced interface {
	Document
	Referenced
}

// UniqueReference rejects a reference number already used by another document of the kind.
type UniqueReference[D referenced] struct {
	Index ReferenceIndex
	Field string
}

func (u UniqueReference[D]) Check(ctx context.Context, ch Change[D]) error {
	if ch.Op == OpDelete {
		return nil
	}
	ref := strings.TrimSpace(ch.Doc.GetReference())
	if ref == "" {
		return nil
	}
	taken, err := u.Index.ReferenceTaken(ctx, ref, ch.Doc.GetID())
	if err != nil {
		return fmt.Errorf("check reference: %w", err)
	}
	if taken {
		return apperror.NewFieldError(u.Field, apperror.CodeDuplicate,
			fmt.Sprintf("reference %q is already used", ref))
	}
	return nil
}

func (UniqueReference[D]) Apply(context.Context, Change[D]) error { return nil }

// AssignReference returns a before-create hook that numbers documents
// submitted without a reference, per financial year of the document date.
func AssignReference[D referenced](gen numerator.Generator, cfg numerator.Config, opts *numerator.Options) domain.Hook[D] {
	return func(ctx context.Context, doc D) error {
		if strings.TrimSpace(doc.GetReference()) != "" {
			return nil
		}
		if doc.GetDate().IsZero() {
			// reported by validation
			return nil
		}
		ref, err := gen.GetNextNumber(ctx, cfg, opts, doc.GetDate())
		if err != nil {
			return fmt.Errorf("generate reference: %w", err)
		}
		doc.SetReference(ref)
		return nil
	}
}
