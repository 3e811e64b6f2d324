package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/middleware"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type ShopHandler struct {
	shopService *service.ShopService
}

func NewShopHandler(shopService *service.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

func (h *ShopHandler) Create(c *gin.Context) {
	var req dto.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.shopService.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ShopHandler) List(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := h.shopService.List(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetBySlug runs behind OptionalAuth so is_following reflects the viewer.
func (h *ShopHandler) GetBySlug(c *gin.Context) {
	resp, err := h.shopService.GetBySlug(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ShopHandler) MyShop(c *gin.Context) {
	resp, err := h.shopService.MyShop(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ShopHandler) Update(c *gin.Context) {
	var req dto.UpdateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.shopService.Update(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ShopHandler) Products(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	resp, err := h.shopService.Products(c.Request.Context(), c.Param("slug"), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ShopHandler) AddProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.shopService.AddProduct(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ShopHandler) Orders(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	orders, total, err := h.shopService.Orders(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderList(orders, total, page))
}

func (h *ShopHandler) AdvanceOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.shopService.AdvanceOrder(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c), orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *ShopHandler) Follow(c *gin.Context) {
	created, err := h.shopService.Follow(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, dto.MessageResponse{Message: "already following this shop"})
		return
	}
	c.JSON(http.StatusCreated, dto.MessageResponse{Message: "now following this shop"})
}

func (h *ShopHandler) Unfollow(c *gin.Context) {
	if err := h.shopService.Unfollow(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "unfollowed this shop"})
}

func (h *ShopHandler) Stats(c *gin.Context) {
	resp, err := h.shopService.Stats(c.Request.Context(), c.Param("slug"), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
