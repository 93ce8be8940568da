package documents

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/period"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/documents")

// Deps are the collaborators shared by the coordinators of every kind.
// Events, Audit and Cache are optional.
type Deps struct {
	TxManager tx.Manager
	Periods   period.Provider
	Refs      domain.ExistenceChecker
	Movements MovementStore
	Events    EventPublisher
	Audit     audit.Logger
	Cache     StockInvalidator
	Retry     tx.RetryPolicy
}

// Config wires a Coordinator for one kind. Rules is optional.
type Config[D Document] struct {
	Deps

	Kind  ledger.Kind
	Repo  Repository[D]
	Rules Rules[D]
}

// Coordinator creates, edits and deletes documents of one kind.
//
// Every operation runs in one transaction: load the stored document under
// lock, run kind rules, validate header and lines, check the period guard and
// master references, and only when nothing failed write the header, the full
// line set, the stock movements and the side effects. Lock contention re-runs
// the whole transaction up to the retry policy's bound.
type Coordinator[D Document] struct {
	kind      ledger.Kind
	repo      Repository[D]
	txm       tx.Manager
	periods   period.Provider
	refs      domain.ExistenceChecker
	movements MovementStore
	rules     Rules[D]
	events    EventPublisher
	audit     audit.Logger
	cache     StockInvalidator
	retry     tx.RetryPolicy
	hooks     *domain.HookRegistry[D]
}

// NewCoordinator creates a coordinator. Creator attribution hooks are pre-registered.
func NewCoordinator[D Document](cfg Config[D]) *Coordinator[D] {
	rules := cfg.Rules
	if rules == nil {
		rules = NoRules[D]{}
	}
	retry := cfg.Retry
	if retry.Attempts == 0 {
		retry = tx.DefaultRetryPolicy()
	}

	c := &Coordinator[D]{
		kind:      cfg.Kind,
		repo:      cfg.Repo,
		txm:       cfg.TxManager,
		periods:   cfg.Periods,
		refs:      cfg.Refs,
		movements: cfg.Movements,
		rules:     rules,
		events:    cfg.Events,
		audit:     cfg.Audit,
		cache:     cfg.Cache,
		retry:     retry,
		hooks:     domain.NewHookRegistry[D](),
	}

	c.hooks.OnBeforeCreate(func(ctx context.Context, doc D) error { return audit.EnrichCreatedBy(ctx, doc.GetHeader()) })
	c.hooks.OnBeforeUpdate(func(ctx context.Context, doc D) error { return audit.EnrichUpdatedBy(ctx, doc.GetHeader()) })
	return c
}

// Hooks returns the hook registry. Before-hooks run inside the transaction.
func (c *Coordinator[D]) Hooks() *domain.HookRegistry[D] {
	return c.hooks
}

// Kind returns the ledger kind handled by the coordinator.
func (c *Coordinator[D]) Kind() ledger.Kind {
	return c.kind
}

// Create validates and stores a new document with its lines.
func (c *Coordinator[D]) Create(ctx context.Context, doc D) error {
	ctx, span := tracer.Start(ctx, "ledger.create")
	span.SetAttributes(attribute.String("ledger.kind", string(c.kind)))
	defer span.End()

	doc.Normalize()
	ch := Change[D]{Op: OpCreate, Doc: doc}
	ref, hasRef := any(doc).(Referenced)
	var submittedRef string
	if hasRef {
		submittedRef = ref.GetReference()
	}
	err := c.run(ctx, func(ctx context.Context) error {
		// a rolled-back attempt also rolled back the number it was given
		if hasRef {
			ref.SetReference(submittedRef)
		}
		if err := c.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
			return err
		}
		if err := c.check(ctx, ch); err != nil {
			return err
		}
		if err := c.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create %s: %w", c.kind, err)
		}
		return c.write(ctx, ch)
	})
	if err != nil {
		return c.fail(ctx, span, err)
	}

	c.committed(ctx, ch)
	return nil
}

// Update replaces the header and its full line set.
func (c *Coordinator[D]) Update(ctx context.Context, doc D) error {
	ctx, span := tracer.Start(ctx, "ledger.update")
	span.SetAttributes(
		attribute.String("ledger.kind", string(c.kind)),
		attribute.String("document.id", doc.GetID().String()),
	)
	defer span.End()

	doc.Normalize()
	version := doc.GetVersion()
	var ch Change[D]
	err := c.run(ctx, func(ctx context.Context) error {
		// a retried attempt starts from the submitted version
		doc.GetHeader().SetVersion(version)

		prev, err := c.load(ctx, doc.GetID())
		if err != nil {
			return err
		}
		if prev.GetVersion() != version {
			return apperror.NewConcurrentModification(string(c.kind), doc.GetID().String()).
				WithDetail("expected_version", prev.GetVersion()).
				WithDetail("actual_version", version)
		}
		doc.GetHeader().KeepCreation(prev.GetHeader().BaseDocument)
		doc.GetHeader().Touch()

		ch = Change[D]{Op: OpUpdate, Doc: doc, Prev: prev, HasPrev: true}
		if err := c.hooks.Run(ctx, domain.BeforeUpdate, doc); err != nil {
			return err
		}
		if err := c.check(ctx, ch); err != nil {
			return err
		}
		if err := c.repo.Update(ctx, doc); err != nil {
			if apperror.IsAppError(err) {
				return err
			}
			return fmt.Errorf("update %s: %w", c.kind, err)
		}
		return c.write(ctx, ch)
	})
	if err != nil {
		return c.fail(ctx, span, err)
	}

	c.committed(ctx, ch)
	return nil
}

// Delete removes a document, its lines and its movements.
func (c *Coordinator[D]) Delete(ctx context.Context, docID id.ID) error {
	ctx, span := tracer.Start(ctx, "ledger.delete")
	span.SetAttributes(
		attribute.String("ledger.kind", string(c.kind)),
		attribute.String("document.id", docID.String()),
	)
	defer span.End()

	var ch Change[D]
	err := c.run(ctx, func(ctx context.Context) error {
		prev, err := c.load(ctx, docID)
		if err != nil {
			return err
		}
		ch = Change[D]{Op: OpDelete, Doc: prev, Prev: prev, HasPrev: true}

		if err := c.hooks.Run(ctx, domain.BeforeDelete, prev); err != nil {
			return err
		}
		if err := c.check(ctx, ch); err != nil {
			return err
		}
		if err := c.rules.Apply(ctx, ch); err != nil {
			return err
		}
		if c.kind.MovesStock() {
			if err := c.movements.DeleteMovementsByRecorder(ctx, docID); err != nil {
				return fmt.Errorf("delete movements: %w", err)
			}
		}
		if err := c.repo.Delete(ctx, docID); err != nil {
			return fmt.Errorf("delete %s: %w", c.kind, err)
		}
		return c.record(ctx, ch)
	})
	if err != nil {
		return c.fail(ctx, span, err)
	}

	c.committed(ctx, ch)
	return nil
}

// Get returns a document with its lines.
func (c *Coordinator[D]) Get(ctx context.Context, docID id.ID) (D, error) {
	doc, err := c.repo.GetByID(ctx, docID)
	if apperror.IsNotFound(err) {
		return doc, apperror.NewNotFound(string(c.kind), docID.String())
	}
	return doc, err
}

// List returns documents matching filter.
func (c *Coordinator[D]) List(ctx context.Context, filter ListFilter) (domain.ListResult[D], error) {
	return c.repo.List(ctx, filter)
}

func (c *Coordinator[D]) run(ctx context.Context, fn func(ctx context.Context) error) error {
	err := c.retry.Run(ctx, c.txm, fn)
	if tx.IsContention(err) {
		return apperror.NewTransient(err).WithDetail("kind", string(c.kind))
	}
	return err
}

func (c *Coordinator[D]) load(ctx context.Context, docID id.ID) (D, error) {
	doc, err := c.repo.GetForUpdate(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return doc, apperror.NewNotFound(string(c.kind), docID.String())
		}
		return doc, fmt.Errorf("load %s: %w", c.kind, err)
	}
	return doc, nil
}

// check collects every failure of a change before anything is written.
func (c *Coordinator[D]) check(ctx context.Context, ch Change[D]) error {
	var fe apperror.FieldErrors

	if err := fe.Merge("", c.rules.Check(ctx, ch)); err != nil {
		return err
	}
	if ch.Op != OpDelete {
		if err := fe.Merge("", ch.Doc.Validate(ctx)); err != nil {
			return err
		}
	}

	// The period is resolved once per operation and passed to the pure guard.
	active, err := c.periods.Active(ctx)
	if err != nil {
		return fmt.Errorf("resolve active period: %w", err)
	}
	if ch.Op != OpDelete && !ch.Doc.GetDate().IsZero() {
		_ = fe.Merge("date", period.Validate(ch.Doc.GetDate(), active))
	}
	if ch.HasPrev && (ch.Op == OpDelete || !sameDay(ch.Prev.GetDate(), ch.Doc.GetDate())) {
		_ = fe.Merge("date", period.Validate(ch.Prev.GetDate(), active))
	}

	if ch.Op != OpDelete {
		if err := c.checkRefs(ctx, ch.Doc.Refs(), &fe); err != nil {
			return err
		}
	}
	return fe.Err()
}

func (c *Coordinator[D]) checkRefs(ctx context.Context, refs []Ref, fe *apperror.FieldErrors) error {
	if c.refs == nil || len(refs) == 0 {
		return nil
	}

	byCatalog := make(map[string][]id.ID)
	for _, r := range refs {
		if id.IsNil(r.ID) {
			continue
		}
		byCatalog[r.Catalog] = append(byCatalog[r.Catalog], r.ID)
	}

	missing := make(map[string]map[id.ID]bool)
	for catalog, ids := range byCatalog {
		absent, err := c.refs.Missing(ctx, catalog, ids)
		if err != nil {
			return fmt.Errorf("check %s references: %w", catalog, err)
		}
		if len(absent) > 0 {
			missing[catalog] = make(map[id.ID]bool, len(absent))
			for _, a := range absent {
				missing[catalog][a] = true
			}
		}
	}

	for _, r := range refs {
		if missing[r.Catalog][r.ID] {
			fe.Addf(r.Field, apperror.CodeNotFound, "%s not found", r.Catalog)
		}
	}
	return nil
}

// write stores lines, movements and side effects of a create or update.
func (c *Coordinator[D]) write(ctx context.Context, ch Change[D]) error {
	if err := c.repo.SaveLines(ctx, ch.Doc); err != nil {
		return fmt.Errorf("save %s lines: %w", c.kind, err)
	}
	if c.kind.MovesStock() {
		if err := c.movements.ReplaceMovements(ctx, ch.Doc.GetID(), ch.Doc.Movements()); err != nil {
			return fmt.Errorf("write movements: %w", err)
		}
	}
	if err := c.rules.Apply(ctx, ch); err != nil {
		return err
	}
	return c.record(ctx, ch)
}

// record appends the outbox event and the audit entry of a change.
func (c *Coordinator[D]) record(ctx context.Context, ch Change[D]) error {
	if c.events != nil {
		event := Event{
			Kind:       c.kind,
			DocumentID: ch.Doc.GetID(),
			Op:         ch.Op,
			Keys:       c.keys(ch),
			UserID:     appctx.GetUserID(ctx),
			OccurredAt: time.Now().UTC(),
		}
		if err := c.events.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}

	if c.audit != nil {
		changes, err := auditChanges(ch)
		if err != nil {
			return err
		}
		action := audit.Action(ch.Op)
		if err := c.audit.LogChange(ctx, string(c.kind), ch.Doc.GetID(), action, changes); err != nil {
			return fmt.Errorf("audit %s: %w", c.kind, err)
		}
	}
	return nil
}

func auditChanges[D Document](ch Change[D]) (map[string]any, error) {
	switch ch.Op {
	case OpCreate:
		snap, err := audit.Snapshot(ch.Doc)
		return map[string]any{"new": snap}, err
	case OpDelete:
		snap, err := audit.Snapshot(ch.Prev)
		return map[string]any{"old": snap}, err
	}
	oldSnap, err := audit.Snapshot(ch.Prev)
	if err != nil {
		return nil, err
	}
	newSnap, err := audit.Snapshot(ch.Doc)
	if err != nil {
		return nil, err
	}
	return audit.Diff(oldSnap, newSnap), nil
}

func (c *Coordinator[D]) keys(ch Change[D]) []ledger.StockKey {
	if !c.kind.MovesStock() {
		return nil
	}
	if ch.Op == OpDelete {
		return ledger.KeysOf(ch.Prev.Movements())
	}
	if ch.HasPrev {
		return ledger.KeysOf(ch.Prev.Movements(), ch.Doc.Movements())
	}
	return ledger.KeysOf(ch.Doc.Movements())
}

// committed runs post-commit work. Failures here never undo the commit.
func (c *Coordinator[D]) committed(ctx context.Context, ch Change[D]) {
	if c.cache != nil {
		if keys := c.keys(ch); len(keys) > 0 {
			if err := c.cache.Invalidate(ctx, keys); err != nil {
				logger.Warn(ctx, "stock cache invalidation failed", "kind", c.kind, "error", err)
			}
		}
	}

	event := domain.AfterCreate
	switch ch.Op {
	case OpUpdate:
		event = domain.AfterUpdate
	case OpDelete:
		event = domain.AfterDelete
	}
	if err := c.hooks.Run(ctx, event, ch.Doc); err != nil {
		logger.Warn(ctx, "after hook failed", "kind", c.kind, "op", ch.Op, "error", err)
	}

	logger.Info(ctx, "ledger transaction committed",
		"kind", c.kind,
		"op", ch.Op,
		"id", ch.Doc.GetID(),
		"date", ch.Doc.GetDate().Format(time.DateOnly))
}

func (c *Coordinator[D]) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if !apperror.IsAppError(err) {
		logger.Error(ctx, "ledger transaction failed", "kind", c.kind, "error", err)
	}
	return err
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
