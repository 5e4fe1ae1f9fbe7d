package main

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedProduct struct {
	name        string
	price       string
	image       string
	description string
	category    string
	stock       int
}

var sampleProducts = []seedProduct{
	{
		name:        "Wireless Bluetooth Headphones",
		price:       "99.99",
		image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500",
		description: "High-quality wireless headphones with noise cancellation and 30-hour battery life.",
		category:    "electronics",
		stock:       50,
	},
	{
		name:        "Smartphone Case - Clear",
		price:       "19.99",
		image:       "https://images.unsplash.com/photo-1556656793-08538906a9f8?w=500",
		description: "Protective clear case for your smartphone with raised edges for screen protection.",
		category:    "electronics",
		stock:       100,
	},
	{
		name:        "Cotton T-Shirt",
		price:       "24.99",
		image:       "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=500",
		description: "Comfortable 100% cotton t-shirt available in multiple colors and sizes.",
		category:    "clothing",
		stock:       75,
	},
	{
		name:        "Denim Jeans",
		price:       "79.99",
		image:       "https://images.unsplash.com/photo-1542272604-787c3835535d?w=500",
		description: "Classic blue denim jeans with a comfortable fit and modern styling.",
		category:    "clothing",
		stock:       40,
	},
	{
		name:        "Programming Book - JavaScript",
		price:       "49.99",
		image:       "https://images.unsplash.com/photo-1544716278-ca5e3f4abd8c?w=500",
		description: "Comprehensive guide to modern JavaScript programming with practical examples.",
		category:    "books",
		stock:       30,
	},
	{
		name:        "Coffee Table Book",
		price:       "35.99",
		image:       "https://images.unsplash.com/photo-1481627834876-b7833e8f5570?w=500",
		description: "Beautiful coffee table book featuring stunning photography and design inspiration.",
		category:    "books",
		stock:       25,
	},
	{
		name:        "Ceramic Coffee Mug",
		price:       "15.99",
		image:       "https://images.unsplash.com/photo-1514228742587-6b1558fcf93a?w=500",
		description: "Handcrafted ceramic coffee mug perfect for your morning brew.",
		category:    "home",
		stock:       60,
	},
	{
		name:        "Yoga Mat",
		price:       "39.99",
		image:       "https://images.unsplash.com/photo-1544367567-0f2fcb009e0b?w=500",
		description: "Non-slip yoga mat with excellent grip and cushioning for all yoga practices.",
		category:    "sports",
		stock:       35,
	},
	{
		name:        "Face Moisturizer",
		price:       "29.99",
		image:       "https://images.unsplash.com/photo-1556228720-195a672e8a03?w=500",
		description: "Hydrating face moisturizer with natural ingredients for all skin types.",
		category:    "beauty",
		stock:       45,
	},
	{
		name:        "Wireless Mouse",
		price:       "34.99",
		image:       "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=500",
		description: "Ergonomic wireless mouse with precision tracking and long battery life.",
		category:    "electronics",
		stock:       80,
	},
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()
	db := dbService.DB()

	if err := database.RunMigrations(db, "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Clear existing catalog before inserting samples
	if _, err := db.ExecContext(ctx, "DELETE FROM products"); err != nil {
		log.Fatal("Failed to clear existing products", zap.Error(err))
	}
	log.Info("Cleared existing products")

	productRepo := repository.NewProductRepository(db)
	now := time.Now().UTC()

	for _, p := range sampleProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			log.Fatal("Invalid seed price", zap.String("product", p.name), zap.Error(err))
		}

		product := &domain.Product{
			ID:          uuid.New(),
			Name:        p.name,
			Description: p.description,
			Price:       price,
			Category:    p.category,
			ImageURL:    p.image,
			Stock:       p.stock,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := productRepo.Create(ctx, product); err != nil {
			log.Fatal("Failed to insert product", zap.String("product", p.name), zap.Error(err))
		}
	}

	log.Info("Sample products inserted successfully", zap.Int("count", len(sampleProducts)))
}
