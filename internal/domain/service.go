package domain

import (
	"context"
	"fmt"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

// CatalogEntity is a master record built on entity.Catalog.
type CatalogEntity interface {
	entity.Validatable
	GetCatalog() *entity.Catalog
}

// CatalogService provides business logic shared by all master catalogs:
// validation, code/name uniqueness, guarded physical delete and lifecycle hooks.
type CatalogService[T CatalogEntity] struct {
	repo      CatalogRepository[T]
	txManager tx.Manager
	usage     UsageChecker
	hooks     *HookRegistry[T]

	// entityName for error messages and reference checks
	entityName string
	uniqueName bool
}

// CatalogServiceConfig configures the catalog service.
type CatalogServiceConfig[T CatalogEntity] struct {
	Repo       CatalogRepository[T]
	TxManager  tx.Manager
	Usage      UsageChecker // optional; nil allows every delete
	EntityName string
	// UniqueName rejects a second record with the same name (case-insensitive in storage).
	UniqueName bool
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T CatalogEntity](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	return &CatalogService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		usage:      cfg.Usage,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
		uniqueName: cfg.UniqueName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// EntityName returns the catalog name used in errors.
func (s *CatalogService[T]) EntityName() string {
	return s.entityName
}

func (s *CatalogService[T]) normalizeValidationErr(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *CatalogService[T]) normalizeGetErr(err error, idOrCode any) error {
	if err == nil {
		return nil
	}
	// Preserve existing AppError, but ensure not-found is mapped to the correct entity name.
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, idOrCode)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", idOrCode)
}

// checkUnique reports duplicate code or name as field errors.
func (s *CatalogService[T]) checkUnique(ctx context.Context, e T) error {
	c := e.GetCatalog()
	var fe apperror.FieldErrors

	if c.Code != "" {
		exists, err := s.repo.ExistsByCode(ctx, c.Code, c.ID)
		if err != nil {
			return fmt.Errorf("check %s code: %w", s.entityName, err)
		}
		if exists {
			fe.Addf("code", apperror.CodeDuplicate, "%s with code %q already exists", s.entityName, c.Code)
		}
	}
	if s.uniqueName {
		exists, err := s.repo.ExistsByName(ctx, c.Name, c.ID)
		if err != nil {
			return fmt.Errorf("check %s name: %w", s.entityName, err)
		}
		if exists {
			fe.Addf("name", apperror.CodeDuplicate, "%s named %q already exists", s.entityName, c.Name)
		}
	}
	return fe.Err()
}

// Create creates a new catalog entity.
func (s *CatalogService[T]) Create(ctx context.Context, e T) error {
	// 1. Validate entity invariants
	if err := e.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	// 2. Run before-create hooks
	if err := s.hooks.Run(ctx, BeforeCreate, e); err != nil {
		return err
	}

	// 3. Create in transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkUnique(ctx, e); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// 4. Run after-create hooks (outside transaction)
	if err := s.hooks.Run(ctx, AfterCreate, e); err != nil {
		logger.Warn(ctx, "after-create hook failed", "entity", s.entityName, "error", err)
	}

	logger.Info(ctx, "catalog record created", "entity", s.entityName, "id", e.GetCatalog().ID)
	return nil
}

// GetByID retrieves entity by ID.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return e, s.normalizeGetErr(err, entityID.String())
	}
	return e, nil
}

// GetByCode retrieves entity by code.
func (s *CatalogService[T]) GetByCode(ctx context.Context, code string) (T, error) {
	e, err := s.repo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return e, s.normalizeGetErr(err, code)
	}
	return e, nil
}

// Update updates an existing entity.
func (s *CatalogService[T]) Update(ctx context.Context, e T) error {
	if err := e.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	if err := s.hooks.Run(ctx, BeforeUpdate, e); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkUnique(ctx, e); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, e); err != nil {
			if apperror.IsAppError(err) {
				return err
			}
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, AfterUpdate, e); err != nil {
		logger.Warn(ctx, "after-update hook failed", "entity", s.entityName, "error", err)
	}
	return nil
}

// Delete removes the record after checking nothing references it.
func (s *CatalogService[T]) Delete(ctx context.Context, entityID id.ID) error {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return s.normalizeGetErr(err, entityID.String())
	}

	if err := s.hooks.Run(ctx, BeforeDelete, e); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if s.usage != nil {
			used, err := s.usage.Usage(ctx, s.entityName, entityID)
			if err != nil {
				return fmt.Errorf("check %s usage: %w", s.entityName, err)
			}
			if len(used) > 0 {
				return apperror.NewReferentialIntegrity(s.entityName, entityID.String(),
					"referenced by "+strings.Join(used, ", ")).
					WithDetail("referenced_by", used)
			}
		}
		if err := s.repo.Delete(ctx, entityID); err != nil {
			if apperror.IsAppError(err) {
				return err
			}
			return fmt.Errorf("delete %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, AfterDelete, e); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "entity", s.entityName, "error", err)
	}

	logger.Info(ctx, "catalog record deleted", "entity", s.entityName, "id", entityID)
	return nil
}

// List retrieves entities with filtering.
func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	return s.repo.List(ctx, filter)
}

// Exists checks if entity exists.
func (s *CatalogService[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return s.repo.Exists(ctx, entityID)
}
