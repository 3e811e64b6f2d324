package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
	"github.com/flicky/go-marketplace-api/internal/service"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProductRepo struct {
	repository.ProductRepository
	products map[uuid.UUID]*model.Product
}

func (s *stubProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return s.products[id], nil
}

type stubOrderRepo struct {
	repository.OrderRepository
	orders map[uuid.UUID]*model.Order
}

func (s *stubOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) GetForUser(_ context.Context, id, userID uuid.UUID) (*model.Order, error) {
	o, ok := s.orders[id]
	if !ok || o.UserID != userID {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, order *model.Order, from model.OrderStatus) error {
	stored := s.orders[order.ID]
	if stored.Status != from {
		return repository.ErrStatusChanged
	}
	stored.Status = order.Status
	return nil
}

type orderAPI struct {
	router   *gin.Engine
	products *stubProductRepo
	orders   *stubOrderRepo
	userID   uuid.UUID
	token    string
}

func newOrderAPI(t *testing.T) *orderAPI {
	t.Helper()
	api := &orderAPI{
		products: &stubProductRepo{products: make(map[uuid.UUID]*model.Product)},
		orders:   &stubOrderRepo{orders: make(map[uuid.UUID]*model.Order)},
		userID:   uuid.New(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewOrderHandler(service.NewOrderService(api.orders, api.products, nil, log))

	api.router = NewRouter(Handlers{Order: h}, testSecret, log)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  api.userID.String(),
		"role": model.RoleCustomer,
		"typ":  service.TokenTypeAccess,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	api.token = token
	return api
}

func (a *orderAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func orderBody(items ...map[string]any) map[string]any {
	return map[string]any{
		"full_name": "Jane Doe", "phone": "0900", "address": "1 Main St", "city": "Hanoi",
		"district": "Ba Dinh", "postal_code": "10000", "payment_method": "cod", "items": items,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateOrder(t *testing.T) {
	api := newOrderAPI(t)
	pid := uuid.New()
	api.products.products[pid] = &model.Product{ID: pid, Name: "Lamp", Price: decimal.NewFromInt(150), Stock: 5}

	w := api.do(http.MethodPost, "/api/v1/orders", orderBody(map[string]any{"product_id": pid, "quantity": 2}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode(t, w)
	assert.Equal(t, "300", resp["subtotal"])
	assert.Equal(t, "0", resp["shipping_fee"])
	assert.Equal(t, "300", resp["total"])
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "Cash on delivery", resp["payment_method_display"])
	assert.Len(t, resp["items"], 1)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	api := newOrderAPI(t)

	w := api.do(http.MethodPost, "/api/v1/orders", orderBody())
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode(t, w)
	errs, ok := resp["errors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "items required", errs["items"])
	assert.Empty(t, api.orders.orders)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	api := newOrderAPI(t)

	w := api.do(http.MethodPost, "/api/v1/orders", orderBody(map[string]any{"product_id": uuid.New(), "quantity": 1}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, api.orders.orders)
}

func TestCreateOrder_BindingErrorsAreFieldKeyed(t *testing.T) {
	api := newOrderAPI(t)
	body := orderBody(map[string]any{"product_id": uuid.New(), "quantity": 0})
	body["payment_method"] = "cash"
	delete(body, "city")

	w := api.do(http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	errs, ok := decode(t, w)["errors"].(map[string]any)
	require.True(t, ok, w.Body.String())
	assert.Contains(t, errs, "payment_method")
	assert.Contains(t, errs, "city")
	assert.Contains(t, errs, "items[0].quantity")
}

func TestCreateOrder_VariantKeepsAnyJSONValue(t *testing.T) {
	api := newOrderAPI(t)
	pid := uuid.New()
	api.products.products[pid] = &model.Product{ID: pid, Name: "Shirt", Price: decimal.NewFromInt(20), Stock: 5}

	variant := map[string]any{"size": 42, "color": "red", "gift": true}
	w := api.do(http.MethodPost, "/api/v1/orders", orderBody(map[string]any{"product_id": pid, "quantity": 1, "variant": variant}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	items, ok := decode(t, w)["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	got := items[0].(map[string]any)["variant"].(map[string]any)
	assert.Equal(t, float64(42), got["size"])
	assert.Equal(t, "red", got["color"])
	assert.Equal(t, true, got["gift"])
}

func TestCreateOrder_DecodeErrorsAreFieldKeyed(t *testing.T) {
	api := newOrderAPI(t)

	w := api.do(http.MethodPost, "/api/v1/orders", orderBody(map[string]any{"product_id": uuid.New(), "quantity": "two"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "Go struct")

	errs, ok := decode(t, w)["errors"].(map[string]any)
	require.True(t, ok, w.Body.String())
	require.Len(t, errs, 1)
	for field, msg := range errs {
		assert.Contains(t, field, "quantity")
		assert.Equal(t, "must be a number", msg)
	}
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	api := newOrderAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items": [`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+api.token)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "malformed JSON body", decode(t, w)["error"])
}

func TestCancelOrder(t *testing.T) {
	api := newOrderAPI(t)
	id := uuid.New()
	api.orders.orders[id] = &model.Order{ID: id, UserID: api.userID, Status: model.OrderStatusDelivered}

	w := api.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	api.orders.orders[id].Status = model.OrderStatusShipping
	w = api.do(http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order cancelled", decode(t, w)["message"])
	assert.Equal(t, model.OrderStatusCancelled, api.orders.orders[id].Status)
}

func TestGetOrder_OtherUserIsNotFound(t *testing.T) {
	api := newOrderAPI(t)
	id := uuid.New()
	api.orders.orders[id] = &model.Order{ID: id, UserID: uuid.New(), Status: model.OrderStatusPending}

	w := api.do(http.MethodGet, "/api/v1/orders/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.NewValidationError("items", "items required"), http.StatusBadRequest},
		{service.ErrShopNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %s", service.ErrProductNotFound, uuid.New()), http.StatusNotFound},
		{service.ErrNotShopOwner, http.StatusForbidden},
		{service.ErrOrderNotCancellable, http.StatusBadRequest},
		{service.ErrShopAlreadyExists, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	api := newOrderAPI(t)
	api.token = ""

	w := api.do(http.MethodGet, "/api/v1/orders/my_orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
