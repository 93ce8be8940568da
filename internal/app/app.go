// Package app assembles the domain services over a storage backend.
package app

import (
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents"
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/inward"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/documents/outward"
	"stockledger/internal/domain/documents/production"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres/pgstore"
)

// AuditStore writes and reads the audit trail.
type AuditStore interface {
	audit.Logger
	audit.Reader
}

// References answers existence and usage of master records.
type References interface {
	domain.ExistenceChecker
	domain.UsageChecker
}

// PeriodStore stores and resolves the active period.
type PeriodStore interface {
	period.Repository
	period.Provider
}

// Backend is one storage implementation of every repository.
type Backend struct {
	TxManager tx.Manager
	Refs      References

	Groups     group.Repository
	Warehouses warehouse.Repository
	Contacts   contact.Repository
	Items      item.Repository
	BOMs       bom.Repository

	Openings    opening.Repository
	Inwards     inward.Repository
	Outwards    outward.Repository
	Productions production.Repository
	Transfers   transfer.Repository
	Adjustments adjustment.Repository
	Issues      delivery.IssueRepository
	Returns     delivery.ReturnRepository

	Stock   stock.Repository
	Reports reports.Repository
	Periods PeriodStore
	Audit   AuditStore
	Numbers numerator.Generator
	Events  documents.EventPublisher
}

// MemoryBackend exposes an in-process store.
func MemoryBackend(s *memory.Store) Backend {
	return Backend{
		TxManager:   s.TxManager(),
		Refs:        s,
		Groups:      s.Groups,
		Warehouses:  s.Warehouses,
		Contacts:    s.Contacts,
		Items:       s.Items,
		BOMs:        s.BOMs,
		Openings:    s.Openings,
		Inwards:     s.Inwards,
		Outwards:    s.Outwards,
		Productions: s.Productions,
		Transfers:   s.Transfers,
		Adjustments: s.Adjustments,
		Issues:      s.Issues,
		Returns:     s.Returns,
		Stock:       s.Stock,
		Reports:     s.Reports,
		Periods:     s.Periods,
		Audit:       s.Audit,
		Numbers:     s.Numbers,
		Events:      s.Outbox,
	}
}

// PostgresBackend exposes a PostgreSQL store.
func PostgresBackend(s *pgstore.Store) Backend {
	return Backend{
		TxManager:   s.TxManager,
		Refs:        s,
		Groups:      s.Groups,
		Warehouses:  s.Warehouses,
		Contacts:    s.Contacts,
		Items:       s.Items,
		BOMs:        s.BOMs,
		Openings:    s.Openings,
		Inwards:     s.Inwards,
		Outwards:    s.Outwards,
		Productions: s.Productions,
		Transfers:   s.Transfers,
		Adjustments: s.Adjustments,
		Issues:      s.Issues,
		Returns:     s.Returns,
		Stock:       s.Stock,
		Reports:     s.Reports,
		Periods:     s.Periods,
		Audit:       s.Audit,
		Numbers:     s.Numbers,
		Events:      s.Outbox,
	}
}

// Classifier modes.
const (
	ClassifyByGroups     = "groups"
	ClassifyByExpression = "expression"
)

// Options tunes the services.
type Options struct {
	Retry     tx.RetryPolicy
	Numbering *numerator.Options

	// Classifier is ClassifyByGroups or ClassifyByExpression.
	Classifier     string
	ProducedGroups []id.ID
	ConsumedGroups []id.ID
	Expression     string

	// Cache backs stock lookups; nil disables caching.
	Cache stock.Cache
}

// Services are the domain services served over HTTP.
type Services struct {
	Groups     *group.Service
	Warehouses *warehouse.Service
	Contacts   *contact.Service
	Items      *item.Service
	BOMs       *bom.Service

	Openings    *opening.Service
	Inwards     *inward.Service
	Outwards    *outward.Service
	Productions *production.Service
	Transfers   *transfer.Service
	Adjustments *adjustment.Service
	Issues      *delivery.IssueService
	Returns     *delivery.ReturnService
	Delivery    *delivery.Reconciler

	Stock   *stock.Service
	Periods *period.Service
	Reports *reports.Service
	Audit   audit.Reader

	// Numbers is exposed for seeding reference counters.
	Numbers numerator.Generator
}

// Build wires every service over b.
func Build(b Backend, opts Options) (*Services, error) {
	if opts.Retry.Attempts == 0 {
		opts.Retry = tx.DefaultRetryPolicy()
	}
	if opts.Numbering == nil {
		opts.Numbering = numerator.DefaultOptions()
	}

	s := &Services{
		Groups:     group.NewService(b.Groups, b.TxManager, b.Refs),
		Warehouses: warehouse.NewService(b.Warehouses, b.TxManager, b.Refs),
		Contacts:   contact.NewService(b.Contacts, b.TxManager, b.Refs),
		Items:      item.NewService(b.Items, b.Groups, b.TxManager, b.Refs),
		BOMs:       bom.NewService(b.BOMs, b.Refs, b.TxManager),
		Stock:      stock.NewService(b.Stock, opts.Cache),
		Periods:    period.NewService(b.Periods, b.TxManager),
		Reports:    reports.NewService(b.Reports, b.Periods),
		Audit:      b.Audit,
		Numbers:    b.Numbers,
	}

	deps := documents.Deps{
		TxManager: b.TxManager,
		Periods:   b.Periods,
		Refs:      b.Refs,
		Movements: b.Stock,
		Events:    b.Events,
		Audit:     b.Audit,
		Retry:     opts.Retry,
	}
	if opts.Cache != nil {
		deps.Cache = opts.Cache
	}

	classifier, err := newClassifier(opts, s)
	if err != nil {
		return nil, err
	}

	s.Openings = opening.NewService(b.Openings, deps)
	s.Inwards = inward.NewService(b.Inwards, deps)
	s.Outwards = outward.NewService(b.Outwards, deps)
	s.Productions = production.NewService(b.Productions, deps, classifier, b.Numbers, opts.Numbering)
	s.Transfers = transfer.NewService(b.Transfers, deps, b.Numbers, opts.Numbering)
	s.Adjustments = adjustment.NewService(b.Adjustments, deps)
	s.Issues = delivery.NewIssueService(b.Issues, deps, b.Numbers, opts.Numbering)
	s.Returns = delivery.NewReturnService(b.Returns, b.Issues, deps)
	s.Delivery = delivery.NewReconciler(s.Issues, s.Returns, b.Issues, s.Items)
	return s, nil
}

func newClassifier(opts Options, s *Services) (production.Classifier, error) {
	switch opts.Classifier {
	case "", ClassifyByGroups:
		if len(opts.ProducedGroups) == 0 && len(opts.ConsumedGroups) == 0 {
			return nil, nil
		}
		return production.NewGroupRoles(s.Items, opts.ProducedGroups, opts.ConsumedGroups), nil
	case ClassifyByExpression:
		c, err := production.NewExpressionClassifier(opts.Expression, s.Items, s.Groups)
		if err != nil {
			return nil, fmt.Errorf("production classifier: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown production classifier %q", opts.Classifier)
	}
}
