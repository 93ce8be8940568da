// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockledger/internal/app"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/inward"
	"stockledger/internal/domain/documents/opening"
	"stockledger/internal/domain/documents/outward"
	"stockledger/internal/domain/documents/production"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/infrastructure/http/v1/dto"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency stores Idempotency-Key replays; nil disables replay.
	Idempotency idempotency.Store

	// Pool is reported by /health/info; nil on the in-memory store.
	Pool *pgxpool.Pool

	// HealthChecks run on /health/ready.
	HealthChecks []handlers.Check

	CORSOrigins []string
	Version     string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.Pool, cfg.HealthChecks...)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	api.Use(middleware.RequireEditorForWrites())
	api.Use(middleware.Idempotency(cfg.Idempotency))

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(api, base, cfg.Services)
	registerLedgerRoutes(api, base, cfg.Services)
	registerQueryRoutes(api, base, cfg.Services)

	return router
}

func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s *app.Services) {
	RegisterCRUDRoutes(rg.Group("/groups"), handlers.NewCatalogHandler(base,
		handlers.CatalogHandlerConfig[*group.Group, dto.GroupRequest]{
			Service:    s.Groups,
			EntityName: "group",
			MapCreate:  dto.GroupRequest.ToEntity,
			MapUpdate:  dto.GroupRequest.ApplyTo,
		}))
	RegisterCRUDRoutes(rg.Group("/warehouses"), handlers.NewCatalogHandler(base,
		handlers.CatalogHandlerConfig[*warehouse.Warehouse, dto.WarehouseRequest]{
			Service:    s.Warehouses,
			EntityName: "warehouse",
			MapCreate:  dto.WarehouseRequest.ToEntity,
			MapUpdate:  dto.WarehouseRequest.ApplyTo,
		}))
	RegisterCRUDRoutes(rg.Group("/contacts"), handlers.NewCatalogHandler(base,
		handlers.CatalogHandlerConfig[*contact.Contact, dto.ContactRequest]{
			Service:    s.Contacts,
			EntityName: "contact",
			MapCreate:  dto.ContactRequest.ToEntity,
			MapUpdate:  dto.ContactRequest.ApplyTo,
		}))

	itemHandler := handlers.NewItemHandler(base, s.Items)
	items := rg.Group("/items")
	items.GET("/search", itemHandler.Search)
	items.GET("/barcode/:code", itemHandler.ByBarcode)
	RegisterCRUDRoutes(items, itemHandler)

	bomHandler := handlers.NewBOMHandler(base, s.BOMs)
	boms := rg.Group("/boms")
	boms.GET("/:id/explode", bomHandler.Explode)
	RegisterCRUDRoutes(boms, bomHandler)
}

func header() entity.Header {
	return entity.NewHeader(time.Time{})
}

func registerLedgerRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s *app.Services) {
	RegisterCRUDRoutes(rg.Group("/opening"), handlers.NewLedgerHandler(base, s.Openings,
		func() *opening.Opening { return &opening.Opening{Header: header()} }))
	RegisterCRUDRoutes(rg.Group("/inward"), handlers.NewLedgerHandler(base, s.Inwards,
		func() *inward.Inward { return &inward.Inward{Header: header()} }))
	RegisterCRUDRoutes(rg.Group("/outward"), handlers.NewLedgerHandler(base, s.Outwards,
		func() *outward.Outward { return &outward.Outward{Header: header()} }))
	RegisterCRUDRoutes(rg.Group("/production"), handlers.NewLedgerHandler(base, s.Productions,
		func() *production.Production { return &production.Production{Header: header()} }))
	RegisterCRUDRoutes(rg.Group("/transfers"), handlers.NewLedgerHandler(base, s.Transfers,
		func() *transfer.Transfer { return &transfer.Transfer{Header: header()} }))
	RegisterCRUDRoutes(rg.Group("/adjustments"), handlers.NewLedgerHandler(base, s.Adjustments,
		func() *adjustment.Adjustment { return &adjustment.Adjustment{Header: header()} }))

	deliveryGroup := rg.Group("/delivery")
	RegisterCRUDRoutes(deliveryGroup.Group("/issues"), handlers.NewLedgerHandler(base, s.Issues,
		func() *delivery.Issue { return &delivery.Issue{Header: header()} }))
	RegisterCRUDRoutes(deliveryGroup.Group("/returns"), handlers.NewLedgerHandler(base, s.Returns,
		func() *delivery.Return { return &delivery.Return{Header: header()} }))

	deliveryHandler := handlers.NewDeliveryHandler(base, s.Delivery)
	deliveryGroup.GET("/pending", deliveryHandler.Pending)
	deliveryGroup.GET("/pending/barcode/:code", deliveryHandler.PendingByBarcode)
	deliveryGroup.POST("/pending/:lineId/return", deliveryHandler.ReturnLine)
}

func registerQueryRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s *app.Services) {
	stockHandler := handlers.NewStockHandler(base, s.Stock)
	stockGroup := rg.Group("/stock")
	{
		stockGroup.GET("", stockHandler.GetStock)
		stockGroup.GET("/ledger", stockHandler.GetLedger)
		stockGroup.GET("/items/:id", stockHandler.GetItemStock)
	}

	periodHandler := handlers.NewPeriodHandler(base, s.Periods)
	rg.GET("/period", periodHandler.Get)
	rg.PUT("/period", periodHandler.Set)

	reportsHandler := handlers.NewReportsHandler(base, s.Reports)
	reportsGroup := rg.Group("/reports")
	{
		reportsGroup.GET("/dashboard", reportsHandler.Dashboard)
		reportsGroup.GET("/turnover", reportsHandler.Turnover)
		reportsGroup.GET("/stock-summary", reportsHandler.StockSummary)
	}

	auditHandler := handlers.NewAuditHandler(base, s.Audit)
	rg.GET("/audit/:entity/:id", auditHandler.History)
}
