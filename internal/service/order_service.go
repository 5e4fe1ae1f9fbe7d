package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrStoreUnavailable marks a failure to reach or commit to the
// product or order store. The order was not placed; the caller may
// retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// FieldError is one per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. No store access was
// attempted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ProductNotFoundError reports a line item whose product ID does not
// resolve. No stock was mutated and no order was created.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError reports one or more lines whose requested
// quantity exceeds available stock, whether caught at the initial
// check or lost to a concurrent buyer during reservation. Any partial
// reservation was rolled back.
type InsufficientStockError struct {
	Shortfalls []domain.StockShortfall
}

func (e *InsufficientStockError) Error() string {
	s := e.Shortfalls[0]
	name := s.ProductName
	if name == "" {
		name = s.ProductID.String()
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		name, s.Requested, s.Available)
}

// ItemInput is one requested (product, quantity) pair.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderSummary is what a successful placement returns. Line-item and
// shipping details are not echoed back.
type OrderSummary struct {
	ID        uuid.UUID          `json:"id"`
	Total     decimal.Decimal    `json:"total"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// OrderService defines the order placement and query business logic
type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, items []ItemInput, address domain.ShippingAddress) (*OrderSummary, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
}

type orderService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	pricingOpts pricing.Options
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	pricingOpts pricing.Options,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		pricingOpts: pricingOpts,
		logger:      logger,
	}
}

// PlaceOrder turns a validated cart into a durable order.
//
// Stock reservation and order persistence happen in one repository
// transaction, so a failure on any line leaves every product's stock
// untouched and creates no order. A failed call is safe to retry
// verbatim.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, items []ItemInput, address domain.ShippingAddress) (*OrderSummary, error) {
	if err := validatePlaceOrderInput(items, address); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to resolve products", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var shortfalls []domain.StockShortfall
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if product.Stock < item.Quantity {
			shortfalls = append(shortfalls, domain.StockShortfall{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.Stock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, &InsufficientStockError{Shortfalls: shortfalls}
	}

	// Prices observed here are frozen into the order; a catalog price
	// change after this point never alters it.
	lines := make([]pricing.Line, len(items))
	orderItems := make([]domain.OrderItem, len(items))
	for i, item := range items {
		product := products[item.ProductID]
		lines[i] = pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity}
		orderItems[i] = domain.OrderItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		}
	}
	totals := pricing.Calculate(lines, s.pricingOpts)

	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           orderItems,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          domain.OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       time.Now().UTC(),
	}

	raceShortfalls, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		s.logger.Error("Failed to persist order", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(raceShortfalls) > 0 {
		// A concurrent buyer consumed the stock between the check and
		// the reservation; nothing was committed.
		s.logger.Info("Order reservation lost race",
			zap.String("user_id", userID.String()),
			zap.Int("contested_lines", len(raceShortfalls)),
		)
		return nil, &InsufficientStockError{Shortfalls: raceShortfalls}
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("lines", len(order.Items)),
	)

	return &OrderSummary{
		ID:        order.ID,
		Total:     order.Total,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
	}, nil
}

// ListOrders returns the user's orders, newest first
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return orders, nil
}

func validatePlaceOrderInput(items []ItemInput, address domain.ShippingAddress) error {
	var fields []FieldError

	if len(items) == 0 {
		fields = append(fields, FieldError{Field: "items", Message: "order must contain at least one item"})
	}
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("items[%d].product_id", i),
				Message: "invalid product ID",
			})
		}
		if item.Quantity < 1 {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be at least 1",
			})
		}
	}

	addressFields := []struct {
		name  string
		value string
	}{
		{"shipping_address.street", address.Street},
		{"shipping_address.city", address.City},
		{"shipping_address.state", address.State},
		{"shipping_address.zip_code", address.ZipCode},
		{"shipping_address.country", address.Country},
	}
	for _, f := range addressFields {
		if strings.TrimSpace(f.value) == "" {
			fields = append(fields, FieldError{Field: f.name, Message: "this field is required"})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
