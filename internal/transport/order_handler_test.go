package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// stubOrderService returns canned results so handler mapping can be
// tested in isolation from the placement logic.
type stubOrderService struct {
	placeResult *service.OrderSummary
	placeErr    error
	listResult  []*domain.Order
	listErr     error

	gotUserID uuid.UUID
	gotItems  []service.ItemInput
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, items []service.ItemInput, address domain.ShippingAddress) (*service.OrderSummary, error) {
	s.gotUserID = userID
	s.gotItems = items
	return s.placeResult, s.placeErr
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	s.gotUserID = userID
	return s.listResult, s.listErr
}

func newOrderRequest(t *testing.T, userID uuid.UUID, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID.String())
	return req.WithContext(ctx)
}

func validPlaceOrderRequest(productID uuid.UUID) PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: []OrderItemRequest{
			{ProductID: productID.String(), Quantity: 2},
		},
		ShippingAddress: ShippingAddressRequest{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			ZipCode: "62701",
			Country: "USA",
		},
	}
}

func TestPlaceOrder_SuccessReturns201WithSummary(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	stub := &stubOrderService{
		placeResult: &service.OrderSummary{
			ID:        orderID,
			Total:     decimal.RequireFromString("42.39"),
			Status:    domain.OrderStatusPending,
			CreatedAt: time.Now().UTC(),
		},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := newOrderRequest(t, userID, validPlaceOrderRequest(uuid.New()))
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var summary service.OrderSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.ID != orderID {
		t.Errorf("expected order ID %s, got %s", orderID, summary.ID)
	}
	if !summary.Total.Equal(decimal.RequireFromString("42.39")) {
		t.Errorf("expected total 42.39, got %s", summary.Total)
	}
	if stub.gotUserID != userID {
		t.Errorf("expected user ID %s passed to service, got %s", userID, stub.gotUserID)
	}
	if len(stub.gotItems) != 1 || stub.gotItems[0].Quantity != 2 {
		t.Errorf("unexpected items passed to service: %+v", stub.gotItems)
	}
}

func TestPlaceOrder_ValidationErrorReturns400(t *testing.T) {
	stub := &stubOrderService{
		placeErr: &service.ValidationError{
			Fields: []service.FieldError{
				{Field: "items", Message: "order must contain at least one item"},
			},
		},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := newOrderRequest(t, uuid.New(), validPlaceOrderRequest(uuid.New()))
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var response middleware.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := response.Error.Details["validation_errors"]; !ok {
		t.Error("expected validation_errors in details")
	}
}

func TestPlaceOrder_MalformedBodyReturns400(t *testing.T) {
	stub := &stubOrderService{}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uuid.New().String())
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req.WithContext(ctx))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPlaceOrder_UnknownProductReturns400NamingProduct(t *testing.T) {
	missingID := uuid.New()
	stub := &stubOrderService{
		placeErr: &service.ProductNotFoundError{ProductID: missingID},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := newOrderRequest(t, uuid.New(), validPlaceOrderRequest(missingID))
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var response middleware.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Error.Details["product_id"] != missingID.String() {
		t.Errorf("expected product_id %s in details, got %v", missingID, response.Error.Details["product_id"])
	}
}

func TestPlaceOrder_InsufficientStockReturns409WithShortfalls(t *testing.T) {
	productID := uuid.New()
	stub := &stubOrderService{
		placeErr: &service.InsufficientStockError{
			Shortfalls: []domain.StockShortfall{
				{ProductID: productID, ProductName: "Garden Hose", Requested: 3, Available: 1},
			},
		},
	}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := newOrderRequest(t, uuid.New(), validPlaceOrderRequest(productID))
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var response middleware.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	shortfalls, ok := response.Error.Details["shortfalls"].([]interface{})
	if !ok || len(shortfalls) != 1 {
		t.Fatalf("expected one shortfall in details, got %v", response.Error.Details["shortfalls"])
	}
	first, _ := shortfalls[0].(map[string]interface{})
	if first["product_name"] != "Garden Hose" {
		t.Errorf("expected product name in shortfall, got %v", first)
	}
}

func TestPlaceOrder_StoreUnavailableReturns503(t *testing.T) {
	stub := &stubOrderService{
		placeErr: service.ErrStoreUnavailable,
	}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := newOrderRequest(t, uuid.New(), validPlaceOrderRequest(uuid.New()))
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestPlaceOrder_MissingAuthContextReturns401(t *testing.T) {
	stub := &stubOrderService{}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	body, _ := json.Marshal(validPlaceOrderRequest(uuid.New()))
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.PlaceOrder(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListOrders_ReturnsOrdersForUser(t *testing.T) {
	userID := uuid.New()
	orders := []*domain.Order{
		{
			ID:     uuid.New(),
			UserID: userID,
			Total:  decimal.RequireFromString("19.99"),
			Status: domain.OrderStatusPending,
		},
	}
	stub := &stubOrderService{listResult: orders}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID.String())
	w := httptest.NewRecorder()

	handler.ListOrders(w, req.WithContext(ctx))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got []*domain.Order
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != orders[0].ID {
		t.Errorf("unexpected orders: %+v", got)
	}
	if stub.gotUserID != userID {
		t.Errorf("expected user ID %s passed to service, got %s", userID, stub.gotUserID)
	}
}

func TestListOrders_EmptyHistoryReturnsEmptyArray(t *testing.T) {
	stub := &stubOrderService{}
	logger, _ := zap.NewDevelopment()
	handler := NewOrderHandler(stub, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uuid.New().String())
	w := httptest.NewRecorder()

	handler.ListOrders(w, req.WithContext(ctx))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := bytes.TrimSpace(w.Body.Bytes()); string(body) != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}
