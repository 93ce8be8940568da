package dto

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
)

// --- Groups ---

// GroupRequest is the body of group create and update.
type GroupRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name" binding:"required"`
	Version int    `json:"version"`
}

// ToEntity converts DTO to domain entity.
func (r GroupRequest) ToEntity() *group.Group {
	return group.NewGroup(r.Code, r.Name)
}

// ApplyTo applies update DTO to existing entity.
func (r GroupRequest) ApplyTo(g *group.Group) *group.Group {
	applyCatalog(&g.Catalog, r.Code, r.Name, r.Version)
	return g
}

// --- Warehouses ---

// WarehouseRequest is the body of warehouse create and update.
type WarehouseRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name" binding:"required"`
	ParentID *id.ID `json:"parentId"`
	Address  string `json:"address"`
	Version  int    `json:"version"`
}

// ToEntity converts DTO to domain entity.
func (r WarehouseRequest) ToEntity() *warehouse.Warehouse {
	wh := warehouse.NewWarehouse(r.Code, r.Name)
	wh.ParentID = r.ParentID
	wh.Address = r.Address
	return wh
}

// ApplyTo applies update DTO to existing entity.
func (r WarehouseRequest) ApplyTo(wh *warehouse.Warehouse) *warehouse.Warehouse {
	applyCatalog(&wh.Catalog, r.Code, r.Name, r.Version)
	wh.ParentID = r.ParentID
	wh.Address = r.Address
	return wh
}

// --- Contacts ---

// ContactRequest is the body of contact create and update.
type ContactRequest struct {
	Code    string       `json:"code"`
	Name    string       `json:"name" binding:"required"`
	Type    contact.Type `json:"type" binding:"required"`
	Phone   string       `json:"phone"`
	Email   string       `json:"email"`
	Address string       `json:"address"`
	Version int          `json:"version"`
}

// ToEntity converts DTO to domain entity.
func (r ContactRequest) ToEntity() *contact.Contact {
	c := contact.NewContact(r.Name, r.Type)
	c.Code = r.Code
	c.Phone = r.Phone
	c.Email = r.Email
	c.Address = r.Address
	return c
}

// ApplyTo applies update DTO to existing entity.
func (r ContactRequest) ApplyTo(c *contact.Contact) *contact.Contact {
	applyCatalog(&c.Catalog, r.Code, r.Name, r.Version)
	c.Type = r.Type
	c.Phone = r.Phone
	c.Email = r.Email
	c.Address = r.Address
	return c
}

// --- Items ---

// ItemRequest is the body of item create and update.
type ItemRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name" binding:"required"`
	Unit        string   `json:"unit" binding:"required"`
	GroupID     id.ID    `json:"groupId" binding:"required"`
	Aliases     []string `json:"aliases"`
	PartNumbers []string `json:"partNumbers"`
	Barcodes    []string `json:"barcodes"`
	Version     int      `json:"version"`
}

// ToEntity converts DTO to domain entity.
func (r ItemRequest) ToEntity() *item.Item {
	it := item.NewItem(r.Code, r.Name, r.Unit, r.GroupID)
	it.Aliases = r.Aliases
	it.PartNumbers = r.PartNumbers
	it.Barcodes = r.Barcodes
	return it
}

// ApplyTo applies update DTO to existing entity.
func (r ItemRequest) ApplyTo(it *item.Item) *item.Item {
	applyCatalog(&it.Catalog, r.Code, r.Name, r.Version)
	it.Unit = r.Unit
	it.GroupID = r.GroupID
	it.Aliases = r.Aliases
	it.PartNumbers = r.PartNumbers
	it.Barcodes = r.Barcodes
	return it
}

// --- Bills of materials ---

// BOMComponent is one component of a BOM request.
type BOMComponent struct {
	ItemID   id.ID           `json:"itemId" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
}

// BOMRequest is the body of BOM create and update.
type BOMRequest struct {
	ItemID     id.ID          `json:"itemId" binding:"required"`
	Components []BOMComponent `json:"components" binding:"required,min=1,dive"`
	Version    int            `json:"version"`
}

func (r BOMRequest) components() []bom.Component {
	out := make([]bom.Component, len(r.Components))
	for i, c := range r.Components {
		out[i] = bom.Component{ItemID: c.ItemID, Quantity: c.Quantity}
	}
	return out
}

// ToEntity converts DTO to domain entity.
func (r BOMRequest) ToEntity() *bom.BillOfMaterial {
	return bom.NewBillOfMaterial(r.ItemID, r.components()...)
}

// ApplyTo applies update DTO to existing entity.
func (r BOMRequest) ApplyTo(b *bom.BillOfMaterial) *bom.BillOfMaterial {
	b.ItemID = r.ItemID
	b.Components = r.components()
	if r.Version > 0 {
		b.Version = r.Version
	}
	return b
}

// applyCatalog sets the shared catalog fields. A zero version keeps the
// stored one, so the update is not version-checked.
func applyCatalog(c *entity.Catalog, code, name string, version int) {
	c.Code = code
	c.Name = name
	if version > 0 {
		c.Version = version
	}
}
