// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/myecomstore/backend/internal/config"
	"github.com/myecomstore/backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.StockReservation{},
		&models.PricingSettings{},
		&models.Payment{},
		&models.PaymentItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Invoice{},
		&models.Notification{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Customer indexes
		"CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)",
		"CREATE INDEX IF NOT EXISTS idx_products_parent ON products(parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_available ON products(is_available, stock_quantity)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Reservation indexes
		"CREATE INDEX IF NOT EXISTS idx_reservations_product_expiry ON stock_reservations(product_id, reserved_until)",
		"CREATE INDEX IF NOT EXISTS idx_reservations_expiry ON stock_reservations(reserved_until)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payments_customer ON payments(customer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)",
		"CREATE INDEX IF NOT EXISTS idx_payment_items_payment ON payment_items(payment_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",

		// Notification indexes
		"CREATE INDEX IF NOT EXISTS idx_notifications_customer ON notifications(customer_id, is_read)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Pricing settings singleton
	var settingsCount int64
	db.Model(&models.PricingSettings{}).Count(&settingsCount)
	if settingsCount == 0 {
		settings := &models.PricingSettings{
			TaxPercent:     decimal.NewFromInt(18),
			ShippingCharge: decimal.NewFromInt(50),
			Currency:       "INR",
		}
		if err := db.Create(settings).Error; err != nil {
			return fmt.Errorf("failed to seed pricing settings: %w", err)
		}
		log.Println("Default pricing settings created")
	}

	// Default admin customer
	var adminCount int64
	db.Model(&models.Customer{}).Where("role = ?", models.CustomerRoleAdmin).Count(&adminCount)
	if adminCount == 0 {
		admin := &models.Customer{
			FullName: "Store Administrator",
			Email:    "admin@myecommercestore.com",
			Role:     models.CustomerRoleAdmin,
			IsActive: true,
		}
		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}
		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin customer: %w", err)
		}
		log.Println("Default admin customer created")
	}

	log.Println("Initial data seeding completed")
	return nil
}
