package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// ListOrders serves both /orders and /orders/my_orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	orders, total, err := h.orderService.ListByUserID(c.Request.Context(), middleware.GetUserID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderList(orders, total, page))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order cancelled", "order": toOrderResponse(order)})
}

func toOrderList(orders []model.Order, total int, page dto.PageRequest) dto.OrderListResponse {
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return dto.OrderListResponse{Orders: items, Total: total, Page: page.Page, Limit: page.Limit}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:           item.ID,
			Product:      item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice,
			ProductImage: item.ProductImage,
			Variant:      item.Variant,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
	}
	return dto.OrderResponse{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		FullName:             order.FullName,
		Phone:                order.Phone,
		Address:              order.Address,
		City:                 order.City,
		District:             order.District,
		PostalCode:           order.PostalCode,
		Subtotal:             order.Subtotal,
		ShippingFee:          order.ShippingFee,
		Discount:             order.Discount,
		Total:                order.Total,
		Status:               order.Status,
		StatusDisplay:        order.Status.Label(),
		PaymentMethod:        order.PaymentMethod,
		PaymentMethodDisplay: order.PaymentMethod.Label(),
		PaymentStatus:        order.PaymentStatus,
		PaymentStatusDisplay: order.PaymentStatus.Label(),
		Items:                items,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}
