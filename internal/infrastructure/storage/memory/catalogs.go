package memory

import (
	"context"
	"slices"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
)

type catalogEntity interface {
	domain.CatalogEntity
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
}

// CatalogRepo is a master catalog table.
type CatalogRepo[T catalogEntity] struct {
	s     *Store
	name  string
	clone func(T) T
	rows  map[id.ID]T
	order []id.ID
}

func newCatalogRepo[T catalogEntity](s *Store, name string, clone func(T) T) *CatalogRepo[T] {
	return &CatalogRepo[T]{s: s, name: name, clone: clone, rows: make(map[id.ID]T)}
}

func (r *CatalogRepo[T]) Create(ctx context.Context, e T) error {
	return r.s.write(ctx, func() (func(), error) {
		key := e.GetID()
		if _, ok := r.rows[key]; ok {
			return nil, apperror.NewDuplicate(r.name, "id", key.String())
		}
		if e.GetVersion() == 0 {
			e.SetVersion(1)
		}
		r.rows[key] = r.clone(e)
		r.order = append(r.order, key)
		return func() {
			delete(r.rows, key)
			r.order = slices.DeleteFunc(r.order, func(x id.ID) bool { return x == key })
		}, nil
	})
}

func (r *CatalogRepo[T]) Update(ctx context.Context, e T) error {
	return r.s.write(ctx, func() (func(), error) {
		key := e.GetID()
		prev, ok := r.rows[key]
		if !ok {
			return nil, apperror.NewNotFound(r.name, key.String())
		}
		if prev.GetVersion() != e.GetVersion() {
			return nil, apperror.NewConcurrentModification(r.name, key.String())
		}
		e.SetVersion(e.GetVersion() + 1)
		r.rows[key] = r.clone(e)
		return func() { r.rows[key] = prev }, nil
	})
}

func (r *CatalogRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, ok := r.rows[entityID]
		if !ok {
			return nil, apperror.NewNotFound(r.name, entityID.String())
		}
		order := slices.Clone(r.order)
		delete(r.rows, entityID)
		r.order = slices.DeleteFunc(r.order, func(x id.ID) bool { return x == entityID })
		return func() {
			r.rows[entityID] = prev
			r.order = order
		}, nil
	})
}

func (r *CatalogRepo[T]) GetByID(_ context.Context, entityID id.ID) (T, error) {
	var (
		out T
		ok  bool
	)
	r.s.read(func() {
		out, ok = r.rows[entityID]
		if ok {
			out = r.clone(out)
		}
	})
	if !ok {
		return out, apperror.NewNotFound(r.name, entityID.String())
	}
	return out, nil
}

func (r *CatalogRepo[T]) GetByCode(_ context.Context, code string) (T, error) {
	var out T
	found := false
	r.s.read(func() {
		for _, key := range r.order {
			e := r.rows[key]
			if code != "" && strings.EqualFold(e.GetCatalog().Code, code) {
				out, found = r.clone(e), true
				return
			}
		}
	})
	if !found {
		return out, apperror.NewNotFound(r.name, code)
	}
	return out, nil
}

func (r *CatalogRepo[T]) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	var all []T
	r.s.read(func() {
		for _, key := range r.order {
			e := r.rows[key]
			if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, key) {
				continue
			}
			if filter.Search != "" && !matchCatalog(e, filter.Search) {
				continue
			}
			all = append(all, r.clone(e))
		}
	})
	slices.SortStableFunc(all, func(a, b T) int {
		return strings.Compare(strings.ToLower(a.GetCatalog().Name), strings.ToLower(b.GetCatalog().Name))
	})
	if filter.OrderBy == "-name" {
		slices.Reverse(all)
	}
	return page(all, filter.Limit, filter.Offset), nil
}

func (r *CatalogRepo[T]) Exists(_ context.Context, entityID id.ID) (bool, error) {
	var ok bool
	r.s.read(func() { _, ok = r.rows[entityID] })
	return ok, nil
}

func (r *CatalogRepo[T]) ExistsByCode(_ context.Context, code string, exclude id.ID) (bool, error) {
	return r.anyRow(func(e T) bool {
		return e.GetID() != exclude && strings.EqualFold(e.GetCatalog().Code, code)
	}), nil
}

func (r *CatalogRepo[T]) ExistsByName(_ context.Context, name string, exclude id.ID) (bool, error) {
	return r.anyRow(func(e T) bool {
		return e.GetID() != exclude && strings.EqualFold(e.GetCatalog().Name, name)
	}), nil
}

func (r *CatalogRepo[T]) anyRow(match func(T) bool) bool {
	found := false
	r.s.read(func() {
		for _, e := range r.rows {
			if match(e) {
				found = true
				return
			}
		}
	})
	return found
}

// each calls fn for every row in insertion order. Callers hold the read lock.
func (r *CatalogRepo[T]) each(fn func(T)) {
	for _, key := range r.order {
		fn(r.rows[key])
	}
}

func matchCatalog[T catalogEntity](e T, search string) bool {
	c := e.GetCatalog()
	q := strings.ToLower(search)
	if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Code), q) {
		return true
	}
	if it, ok := any(e).(*item.Item); ok {
		for _, values := range it.Identifiers() {
			for _, v := range values {
				if strings.Contains(strings.ToLower(v), q) {
					return true
				}
			}
		}
	}
	return false
}

func page[T any](all []T, limit, offset int) domain.ListResult[T] {
	total := len(all)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	items := all[offset:end]
	if items == nil {
		items = []T{}
	}
	return domain.ListResult[T]{Items: items, TotalCount: int64(total), Limit: limit, Offset: offset}
}

// WarehouseRepo adds the warehouse tree.
type WarehouseRepo struct {
	*CatalogRepo[*warehouse.Warehouse]
}

func cloneWarehouse(w *warehouse.Warehouse) *warehouse.Warehouse {
	c := *w
	if w.ParentID != nil {
		parent := *w.ParentID
		c.ParentID = &parent
	}
	return &c
}

// Children returns the direct children of parentID.
func (r *WarehouseRepo) Children(_ context.Context, parentID id.ID) ([]*warehouse.Warehouse, error) {
	out := []*warehouse.Warehouse{}
	r.s.read(func() {
		r.each(func(w *warehouse.Warehouse) {
			if w.ParentID != nil && *w.ParentID == parentID {
				out = append(out, cloneWarehouse(w))
			}
		})
	})
	return out, nil
}

// ItemRepo adds identifier lookups.
type ItemRepo struct {
	*CatalogRepo[*item.Item]
}

func cloneItem(it *item.Item) *item.Item {
	c := *it
	c.Aliases = slices.Clone(it.Aliases)
	c.PartNumbers = slices.Clone(it.PartNumbers)
	c.Barcodes = slices.Clone(it.Barcodes)
	return &c
}

func (r *ItemRepo) GetByBarcode(_ context.Context, barcode string) (*item.Item, error) {
	var out *item.Item
	r.s.read(func() {
		r.each(func(it *item.Item) {
			if out == nil && slices.Contains(it.Barcodes, barcode) {
				out = cloneItem(it)
			}
		})
	})
	if out == nil {
		return nil, apperror.NewNotFound(domain.CatalogItem, barcode)
	}
	return out, nil
}

func (r *ItemRepo) Search(ctx context.Context, query string, limit int) ([]*item.Item, error) {
	res, err := r.List(ctx, domain.ListFilter{Search: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (r *ItemRepo) IdentifierOwner(_ context.Context, kind item.IdentifierKind, value string, exclude id.ID) (*id.ID, error) {
	var owner *id.ID
	r.s.read(func() {
		r.each(func(it *item.Item) {
			if owner != nil || it.ID == exclude {
				return
			}
			for _, v := range it.Identifiers()[kind] {
				if strings.EqualFold(v, value) {
					itemID := it.ID
					owner = &itemID
					return
				}
			}
		})
	})
	return owner, nil
}

// BOMRepo stores bills of materials.
type BOMRepo struct {
	s    *Store
	rows map[id.ID]*bom.BillOfMaterial
}

func cloneBOM(b *bom.BillOfMaterial) *bom.BillOfMaterial {
	c := *b
	c.Components = slices.Clone(b.Components)
	return &c
}

func (r *BOMRepo) Create(ctx context.Context, b *bom.BillOfMaterial) error {
	return r.s.write(ctx, func() (func(), error) {
		r.rows[b.ID] = cloneBOM(b)
		return func() { delete(r.rows, b.ID) }, nil
	})
}

func (r *BOMRepo) Update(ctx context.Context, b *bom.BillOfMaterial) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, ok := r.rows[b.ID]
		if !ok {
			return nil, apperror.NewNotFound(domain.CatalogBOM, b.ID.String())
		}
		if prev.Version != b.Version {
			return nil, apperror.NewConcurrentModification(domain.CatalogBOM, b.ID.String())
		}
		b.Version++
		r.rows[b.ID] = cloneBOM(b)
		return func() { r.rows[b.ID] = prev }, nil
	})
}

func (r *BOMRepo) Delete(ctx context.Context, bomID id.ID) error {
	return r.s.write(ctx, func() (func(), error) {
		prev, ok := r.rows[bomID]
		if !ok {
			return nil, apperror.NewNotFound(domain.CatalogBOM, bomID.String())
		}
		delete(r.rows, bomID)
		return func() { r.rows[bomID] = prev }, nil
	})
}

func (r *BOMRepo) GetByID(_ context.Context, bomID id.ID) (*bom.BillOfMaterial, error) {
	var out *bom.BillOfMaterial
	r.s.read(func() {
		if b, ok := r.rows[bomID]; ok {
			out = cloneBOM(b)
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound(domain.CatalogBOM, bomID.String())
	}
	return out, nil
}

func (r *BOMRepo) GetByItem(_ context.Context, itemID id.ID) (*bom.BillOfMaterial, error) {
	var out *bom.BillOfMaterial
	r.s.read(func() {
		for _, b := range r.rows {
			if b.ItemID == itemID {
				out = cloneBOM(b)
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound(domain.CatalogBOM, itemID.String())
	}
	return out, nil
}

func (r *BOMRepo) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*bom.BillOfMaterial], error) {
	var all []*bom.BillOfMaterial
	r.s.read(func() {
		for _, b := range r.rows {
			if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, b.ID) {
				continue
			}
			all = append(all, cloneBOM(b))
		}
	})
	slices.SortFunc(all, func(a, b *bom.BillOfMaterial) int { return compareIDs(a.ID, b.ID) })
	return page(all, filter.Limit, filter.Offset), nil
}

func compareIDs(a, b id.ID) int {
	return slices.Compare(a[:], b[:])
}
