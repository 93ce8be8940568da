// Package main seeds a database with demo catalogs and an active period and
// prints an access token for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/fiscal"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/catalogs/bom"
	"stockledger/internal/domain/catalogs/contact"
	"stockledger/internal/domain/catalogs/group"
	"stockledger/internal/domain/catalogs/item"
	"stockledger/internal/domain/catalogs/warehouse"
	"stockledger/pkg/logger"
)

const seedUser = "seed"

func main() {
	configFile := flag.String("config", "", "path to config file")
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: seedUser, Name: "Seed", IsAdmin: true})

	if !cfg.UsePostgres() {
		log.Warn("no database.dsn configured, seeded data will not outlive this process")
	}

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize services", "error", err)
	}
	defer rt.Close()

	if err := seedDemoData(ctx, rt.Services, log); err != nil {
		log.Errorw("failed to seed demo data", "error", err)
		rt.Close()
		os.Exit(1)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtConfig.Issuer = cfg.Auth.Issuer
	token, expires, err := auth.NewJWTService(jwtConfig).IssueToken("dev-admin", "Developer", []string{appctx.RoleEditor}, true)
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}

	log.Info("seeding completed successfully")
	fmt.Printf("\nAuthorization: Bearer %s\n(expires %s)\n", token, expires.Format(time.RFC3339))
}

// byCode is the lookup half of a catalog service.
type byCode[T any] interface {
	GetByCode(ctx context.Context, code string) (T, error)
	Create(ctx context.Context, entity T) error
}

// ensure returns the entry with code, creating it when missing.
func ensure[T any](ctx context.Context, svc byCode[T], code string, build func() T) (T, error) {
	existing, err := svc.GetByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return existing, err
	}
	entry := build()
	if err := svc.Create(ctx, entry); err != nil {
		return entry, fmt.Errorf("create %s: %w", code, err)
	}
	return entry, nil
}

func seedDemoData(ctx context.Context, s *app.Services, log *logger.Logger) error {
	log.Info("seeding demo data...")

	// 1. Groups
	groups := map[string]*group.Group{}
	for _, g := range []struct{ code, name string }{
		{"RAW", "Raw Materials"},
		{"FIN", "Finished Goods"},
		{"PKG", "Packaging"},
	} {
		created, err := ensure(ctx, s.Groups, g.code, func() *group.Group { return group.NewGroup(g.code, g.name) })
		if err != nil {
			return err
		}
		groups[g.code] = created
	}

	// 2. Warehouses
	mainWH, err := ensure(ctx, s.Warehouses, "WH-MAIN", func() *warehouse.Warehouse {
		return warehouse.NewWarehouse("WH-MAIN", "Main Warehouse")
	})
	if err != nil {
		return err
	}
	if _, err := ensure(ctx, s.Warehouses, "WH-SHOP", func() *warehouse.Warehouse {
		wh := warehouse.NewWarehouse("WH-SHOP", "Shop Floor")
		wh.ParentID = &mainWH.ID
		return wh
	}); err != nil {
		return err
	}

	// 3. Contacts
	for _, c := range []struct {
		code, name string
		t          contact.Type
	}{
		{"SUP-001", "Northwind Supplies", contact.TypeSupplier},
		{"CUS-001", "Contoso Retail", contact.TypeCustomer},
	} {
		if _, err := ensure(ctx, s.Contacts, c.code, func() *contact.Contact {
			ct := contact.NewContact(c.name, c.t)
			ct.Code = c.code
			return ct
		}); err != nil {
			return err
		}
	}

	// 4. Items
	steel, err := ensure(ctx, s.Items, "STEEL-1M", func() *item.Item {
		it := item.NewItem("STEEL-1M", "Steel Rod 1m", "pcs", groups["RAW"].ID)
		it.PartNumbers = []string{"SR-1000"}
		return it
	})
	if err != nil {
		return err
	}
	box, err := ensure(ctx, s.Items, "BOX-S", func() *item.Item {
		it := item.NewItem("BOX-S", "Shipping Box S", "pcs", groups["PKG"].ID)
		it.Barcodes = []string{"4006381333931"}
		return it
	})
	if err != nil {
		return err
	}
	frame, err := ensure(ctx, s.Items, "FRAME-A", func() *item.Item {
		it := item.NewItem("FRAME-A", "Frame Assembly A", "pcs", groups["FIN"].ID)
		it.Aliases = []string{"A-Frame"}
		it.Barcodes = []string{"5901234123457"}
		return it
	})
	if err != nil {
		return err
	}

	// 5. Bill of materials for the finished item
	if _, err := s.BOMs.GetByItem(ctx, frame.ID); apperror.IsNotFound(err) {
		b := bom.NewBillOfMaterial(frame.ID,
			bom.Component{ItemID: steel.ID, Quantity: decimal.NewFromInt(4)},
			bom.Component{ItemID: box.ID, Quantity: decimal.NewFromInt(1)},
		)
		if err := s.BOMs.Create(ctx, b); err != nil {
			return fmt.Errorf("create bom: %w", err)
		}
	} else if err != nil {
		return err
	}

	// 6. Active period: the current financial year
	start, end := fiscal.Bounds(fiscal.Year(time.Now()))
	if _, err := s.Periods.SetActive(ctx, start, end); err != nil {
		return fmt.Errorf("set active period: %w", err)
	}

	log.Infow("demo data ready",
		"groups", len(groups),
		"period_start", start.Format(time.DateOnly),
		"period_end", end.Format(time.DateOnly),
	)
	return nil
}
