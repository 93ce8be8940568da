package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/period"
)

// PeriodRepo holds the single active period.
type PeriodRepo struct {
	s      *Store
	active *period.Period
}

func (r *PeriodRepo) Get(context.Context) (*period.Period, error) {
	var out *period.Period
	r.s.read(func() {
		if r.active != nil {
			p := *r.active
			out = &p
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("period", period.ActiveName)
	}
	return out, nil
}

func (r *PeriodRepo) Save(ctx context.Context, p *period.Period) error {
	return r.s.write(ctx, func() (func(), error) {
		prev := r.active
		c := *p
		r.active = &c
		return func() { r.active = prev }, nil
	})
}

// Active implements period.Provider without a NOT_FOUND for an empty table.
func (r *PeriodRepo) Active(ctx context.Context) (*period.Period, error) {
	p, err := r.Get(ctx)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

// AuditLog keeps audit entries in insertion order.
type AuditLog struct {
	s       *Store
	entries []audit.Entry
}

func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	data, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	entry := audit.Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Changes:    data,
		CreatedAt:  time.Now().UTC(),
	}
	return a.s.write(ctx, func() (func(), error) {
		n := len(a.entries)
		a.entries = append(a.entries, entry)
		return func() { a.entries = a.entries[:n] }, nil
	})
}

func (a *AuditLog) History(_ context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	out := []audit.Entry{}
	a.s.read(func() {
		for i := len(a.entries) - 1; i >= 0; i-- {
			e := a.entries[i]
			if e.EntityType != entityType || e.EntityID != entityID {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}

// Numerator hands out gap-free sequence numbers per prefix and year.
type Numerator struct {
	s      *Store
	values map[string]int64
}

func sequenceKey(cfg numerator.Config, period time.Time) string {
	return fmt.Sprintf("%s/%d", cfg.Prefix, cfg.Year(period))
}

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := sequenceKey(cfg, period)
	var next int64
	err := n.s.write(ctx, func() (func(), error) {
		prev := n.values[key]
		next = prev + 1
		n.values[key] = next
		return func() { n.values[key] = prev }, nil
	})
	if err != nil {
		return "", err
	}
	return cfg.Format(period, next), nil
}

func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return apperror.NewFieldError("value", apperror.CodeInvalid, "next number must be at least 1")
	}
	key := sequenceKey(cfg, period)
	return n.s.write(ctx, func() (func(), error) {
		prev := n.values[key]
		n.values[key] = value - 1
		return func() { n.values[key] = prev }, nil
	})
}

// Outbox collects published events.
type Outbox struct {
	s      *Store
	events []documents.Event
}

func (o *Outbox) Publish(ctx context.Context, event documents.Event) error {
	return o.s.write(ctx, func() (func(), error) {
		n := len(o.events)
		o.events = append(o.events, event)
		return func() { o.events = o.events[:n] }, nil
	})
}

// Events returns the committed events in publication order.
func (o *Outbox) Events() []documents.Event {
	var out []documents.Event
	o.s.read(func() { out = slices.Clone(o.events) })
	return out
}

// Missing implements domain.ExistenceChecker.
func (s *Store) Missing(ctx context.Context, catalog string, ids []id.ID) ([]id.ID, error) {
	var exists func(context.Context, id.ID) (bool, error)
	switch catalog {
	case domain.CatalogGroup:
		exists = s.Groups.Exists
	case domain.CatalogWarehouse:
		exists = s.Warehouses.Exists
	case domain.CatalogContact:
		exists = s.Contacts.Exists
	case domain.CatalogItem:
		exists = s.Items.Exists
	default:
		return nil, fmt.Errorf("unknown catalog %q", catalog)
	}

	var missing []id.ID
	for _, x := range ids {
		ok, err := exists(ctx, x)
		if err != nil {
			return nil, err
		}
		if !ok && !slices.Contains(missing, x) {
			missing = append(missing, x)
		}
	}
	return missing, nil
}

// refScanner is a document table that can report references to a master record.
type refScanner interface {
	references(catalog string, target id.ID) bool
	name() string
}

func (r *DocumentRepo[D]) references(catalog string, target id.ID) bool {
	for _, doc := range r.rows {
		for _, ref := range doc.Refs() {
			if ref.Catalog == catalog && ref.ID == target {
				return true
			}
		}
	}
	return false
}

func (r *DocumentRepo[D]) name() string { return r.kind.String() }

func (s *Store) documentTables() []refScanner {
	return []refScanner{
		s.Openings, s.Inwards, s.Outwards, s.Productions,
		s.Transfers, s.Adjustments, s.Issues, s.Returns,
	}
}

// Usage implements domain.UsageChecker.
func (s *Store) Usage(_ context.Context, catalog string, entityID id.ID) ([]string, error) {
	var used []string
	s.read(func() {
		switch catalog {
		case domain.CatalogGroup:
			s.Items.each(func(it *item.Item) {
				if it.GroupID == entityID && !slices.Contains(used, domain.CatalogItem) {
					used = append(used, domain.CatalogItem)
				}
			})
		case domain.CatalogWarehouse:
			s.Warehouses.each(func(w *warehouse.Warehouse) {
				if w.ParentID != nil && *w.ParentID == entityID && !slices.Contains(used, domain.CatalogWarehouse) {
					used = append(used, domain.CatalogWarehouse)
				}
			})
		case domain.CatalogItem:
			for _, b := range s.BOMs.rows {
				if bomUses(b, entityID) {
					used = append(used, domain.CatalogBOM)
					break
				}
			}
		}
		for _, t := range s.documentTables() {
			if t.references(catalog, entityID) {
				used = append(used, t.name())
			}
		}
	})
	return used, nil
}

func bomUses(b *bom.BillOfMaterial, itemID id.ID) bool {
	if b.ItemID == itemID {
		return true
	}
	for _, c := range b.Components {
		if c.ItemID == itemID {
			return true
		}
	}
	return false
}

var (
	_ domain.ExistenceChecker = (*Store)(nil)
	_ domain.UsageChecker     = (*Store)(nil)
	_ numerator.Generator     = (*Numerator)(nil)
	_ audit.Logger            = (*AuditLog)(nil)
	_ audit.Reader            = (*AuditLog)(nil)
	_ period.Provider         = (*PeriodRepo)(nil)
)
