package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func insertTestUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, id, "Test User", email, string(hash))
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}
	return id
}

func insertTestProduct(t *testing.T, name, price string, stock int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO products (id, name, description, price, category, image_url, stock, created_at, updated_at)
		VALUES ($1, $2, '', $3, 'test', 'https://example.com/p.jpg', $4, NOW(), NOW())
	`, id, name, price, stock)
	if err != nil {
		t.Fatalf("insert test product: %v", err)
	}
	return id
}

func productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var stock int
	if err := testDB.QueryRow(`SELECT stock FROM products WHERE id = $1`, id).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		Country: "USA",
	}
}

func buildOrder(userID uuid.UUID, items []domain.OrderItem) *domain.Order {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	shipping := decimal.RequireFromString("9.99")
	tax := subtotal.Mul(decimal.RequireFromString("0.08")).Round(2)

	return &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		Shipping:        shipping,
		Tax:             tax,
		Total:           subtotal.Add(shipping).Add(tax),
		Status:          domain.OrderStatusPending,
		ShippingAddress: testAddress(),
		CreatedAt:       time.Now().UTC(),
	}
}

func TestOrderCreate_ReservesStockAndPersists(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t, "order-roundtrip@example.com")
	productID := insertTestProduct(t, "Ceramic Mug", "15.99", 5)

	order := buildOrder(userID, []domain.OrderItem{
		{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  3,
			UnitPrice: decimal.RequireFromString("15.99"),
		},
	})

	shortfalls, err := repo.Create(ctx, order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if len(shortfalls) != 0 {
		t.Fatalf("expected no shortfalls, got %+v", shortfalls)
	}

	if got := productStock(t, productID); got != 2 {
		t.Errorf("expected stock 2 after reservation, got %d", got)
	}

	found, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if !found.Total.Equal(order.Total) {
		t.Errorf("expected total %s, got %s", order.Total, found.Total)
	}
	if !found.Subtotal.Equal(decimal.RequireFromString("47.97")) {
		t.Errorf("expected subtotal 47.97, got %s", found.Subtotal)
	}
	if found.Status != domain.OrderStatusPending {
		t.Errorf("expected pending status, got %s", found.Status)
	}
	if found.ShippingAddress != testAddress() {
		t.Errorf("unexpected address: %+v", found.ShippingAddress)
	}
	if len(found.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(found.Items))
	}
	if !found.Items[0].UnitPrice.Equal(decimal.RequireFromString("15.99")) {
		t.Errorf("expected frozen unit price 15.99, got %s", found.Items[0].UnitPrice)
	}
	if found.Items[0].ProductName != "Ceramic Mug" {
		t.Errorf("expected enriched product name, got %q", found.Items[0].ProductName)
	}
}

func TestOrderCreate_ShortfallRollsBackEveryLine(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t, "order-shortfall@example.com")
	plentyID := insertTestProduct(t, "T-Shirt", "24.99", 10)
	scarceID := insertTestProduct(t, "Yoga Mat", "39.99", 1)

	order := buildOrder(userID, []domain.OrderItem{
		{ID: uuid.New(), ProductID: plentyID, Quantity: 2, UnitPrice: decimal.RequireFromString("24.99")},
		{ID: uuid.New(), ProductID: scarceID, Quantity: 3, UnitPrice: decimal.RequireFromString("39.99")},
	})

	shortfalls, err := repo.Create(ctx, order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if len(shortfalls) != 1 {
		t.Fatalf("expected 1 shortfall, got %+v", shortfalls)
	}
	if shortfalls[0].ProductID != scarceID || shortfalls[0].Requested != 3 || shortfalls[0].Available != 1 {
		t.Errorf("unexpected shortfall: %+v", shortfalls[0])
	}

	// No stock changed anywhere, including the line that had enough
	if got := productStock(t, plentyID); got != 10 {
		t.Errorf("expected plentiful stock untouched at 10, got %d", got)
	}
	if got := productStock(t, scarceID); got != 1 {
		t.Errorf("expected scarce stock untouched at 1, got %d", got)
	}

	// No order row either
	if _, err := repo.FindByID(ctx, order.ID); err != ErrOrderNotFound {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderCreate_UnknownProductIsZeroAvailabilityShortfall(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t, "order-missing@example.com")
	missingID := uuid.New()

	order := buildOrder(userID, []domain.OrderItem{
		{ID: uuid.New(), ProductID: missingID, Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	})

	shortfalls, err := repo.Create(ctx, order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if len(shortfalls) != 1 || shortfalls[0].Available != 0 {
		t.Fatalf("expected one zero-availability shortfall, got %+v", shortfalls)
	}
}

func TestOrderCreate_TwoBuyersOneUnit(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerA := insertTestUser(t, "race-a@example.com")
	buyerB := insertTestUser(t, "race-b@example.com")
	productID := insertTestProduct(t, "Last Headphones", "99.99", 1)

	type result struct {
		shortfalls []domain.StockShortfall
		err        error
	}

	results := make([]result, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	for i, userID := range []uuid.UUID{buyerA, buyerB} {
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			order := buildOrder(userID, []domain.OrderItem{
				{ID: uuid.New(), ProductID: productID, Quantity: 1, UnitPrice: decimal.RequireFromString("99.99")},
			})
			shortfalls, err := repo.Create(ctx, order)
			results[i] = result{shortfalls: shortfalls, err: err}
		}(i, userID)
	}
	wg.Wait()

	successes := 0
	rejections := 0
	for _, r := range results {
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if len(r.shortfalls) == 0 {
			successes++
		} else {
			rejections++
		}
	}

	if successes != 1 || rejections != 1 {
		t.Errorf("expected exactly one success and one rejection, got %d/%d", successes, rejections)
	}
	if got := productStock(t, productID); got != 0 {
		t.Errorf("expected stock 0, got %d", got)
	}
}

func TestListByUser_NewestFirstWithFrozenPrices(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t, "order-list@example.com")
	productID := insertTestProduct(t, "Denim Jeans", "79.99", 100)

	older := buildOrder(userID, []domain.OrderItem{
		{ID: uuid.New(), ProductID: productID, Quantity: 1, UnitPrice: decimal.RequireFromString("79.99")},
	})
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)

	newer := buildOrder(userID, []domain.OrderItem{
		{ID: uuid.New(), ProductID: productID, Quantity: 2, UnitPrice: decimal.RequireFromString("79.99")},
	})

	for _, o := range []*domain.Order{older, newer} {
		if shortfalls, err := repo.Create(ctx, o); err != nil || len(shortfalls) != 0 {
			t.Fatalf("create order: %v %+v", err, shortfalls)
		}
	}

	// A later price change must not alter what history shows
	if _, err := testDB.Exec(`UPDATE products SET price = 129.99 WHERE id = $1`, productID); err != nil {
		t.Fatalf("update price: %v", err)
	}

	orders, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != newer.ID || orders[1].ID != older.ID {
		t.Error("expected orders newest first")
	}
	for _, o := range orders {
		for _, item := range o.Items {
			if !item.UnitPrice.Equal(decimal.RequireFromString("79.99")) {
				t.Errorf("expected frozen unit price 79.99, got %s", item.UnitPrice)
			}
			if item.ProductName != "Denim Jeans" {
				t.Errorf("expected enriched product name, got %q", item.ProductName)
			}
		}
	}
}
