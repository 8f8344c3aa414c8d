// Command seed loads demo hubs, users, and open group buys into the database.
// Intended for local development and staging; refuses to run in production.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandisetu/mandisetu-backend/pkg/config"
	"github.com/mandisetu/mandisetu-backend/pkg/db"
	"github.com/mandisetu/mandisetu-backend/pkg/db/models"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
	"github.com/mandisetu/mandisetu-backend/pkg/migrate"
)

const seedBatchSize = 100

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	if err := ensureSeedable(cfg.App); err != nil {
		logg.Error(ctx, "seeding refused", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	if err := seed(ctx, dbClient.DB(), logg); err != nil {
		logg.Error(ctx, "seeding failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "seeding complete")
}

// ensureSeedable refuses to load demo data into a production database.
func ensureSeedable(app config.AppConfig) error {
	if app.IsProd() {
		return fmt.Errorf("env is %q", app.Env)
	}
	return nil
}

func seed(ctx context.Context, gdb *gorm.DB, logg *logger.Logger) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hubs := demoHubs()
		if err := tx.CreateInBatches(hubs, seedBatchSize).Error; err != nil {
			return fmt.Errorf("seed hubs: %w", err)
		}
		logg.Info(logg.WithField(ctx, "count", len(hubs)), "seeded hubs")

		users := demoUsers()
		if err := tx.CreateInBatches(users, seedBatchSize).Error; err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		logg.Info(logg.WithField(ctx, "count", len(users)), "seeded users")

		deals := demoGroupBuys(hubs)
		if err := tx.CreateInBatches(deals, seedBatchSize).Error; err != nil {
			return fmt.Errorf("seed group buys: %w", err)
		}
		logg.Info(logg.WithField(ctx, "count", len(deals)), "seeded group buys")

		return nil
	})
}

func demoHubs() []models.Hub {
	return []models.Hub{
		{ID: uuid.New(), Name: "Azadpur Mandi Gate 2", Area: "Azadpur"},
		{ID: uuid.New(), Name: "Ghazipur Wholesale Yard", Area: "Ghazipur"},
		{ID: uuid.New(), Name: "Okhla Sabzi Mandi", Area: "Okhla"},
	}
}

func demoUsers() []models.User {
	return []models.User{
		{ID: uuid.New(), Name: "Ramesh Chaat Corner", Role: enums.UserRoleVendor},
		{ID: uuid.New(), Name: "Sunita Dosa Cart", Role: enums.UserRoleVendor},
		{ID: uuid.New(), Name: "Iqbal Rolls", Role: enums.UserRoleVendor},
		{ID: uuid.New(), Name: "Verma Fresh Produce", Role: enums.UserRoleSupplier},
		{ID: uuid.New(), Name: "Khan Traders", Role: enums.UserRoleSupplier},
		{ID: uuid.New(), Name: "Ops Admin", Role: enums.UserRoleAdmin},
	}
}

func demoGroupBuys(hubs []models.Hub) []models.GroupBuy {
	expiry := time.Now().Add(48 * time.Hour)
	var deals []models.GroupBuy
	products := []struct {
		name   string
		price  string
		target string
	}{
		{"Onions (Nashik Red)", "22.50", "500"},
		{"Tomatoes (Hybrid)", "18.00", "300"},
		{"Potatoes (Jyoti)", "14.75", "750"},
		{"Green Chillies", "45.00", "80"},
	}
	for _, hub := range hubs {
		for _, p := range products {
			deals = append(deals, models.GroupBuy{
				ID:             uuid.New(),
				ProductName:    p.name,
				PricePerKg:     decimal.RequireFromString(p.price),
				TargetQuantity: decimal.RequireFromString(p.target),
				Status:         enums.GroupBuyStatusOpen,
				ExpiryDate:     expiry,
				HubID:          hub.ID,
				HubName:        hub.Name,
			})
		}
	}
	return deals
}
