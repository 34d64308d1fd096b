package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	auth     *services.AuthService
	orders   *services.OrderService
	payments *services.PaymentService
	carts    *services.CartService
	products *services.ProductService
}

func NewHandler(auth *services.AuthService, orders *services.OrderService, payments *services.PaymentService, carts *services.CartService, products *services.ProductService) *Handler {
	return &Handler{
		auth:     auth,
		orders:   orders,
		payments: payments,
		carts:    carts,
		products: products,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/payment/webhook", h.PaymentWebhook)

	authed := api.Group("", AuthRequired(h.auth))
	authed.POST("/orders", h.CreateOrder)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)
	authed.GET("/cart", h.GetCart)
	authed.POST("/cart", h.AddCartItem)
	authed.PUT("/cart", h.UpdateCartItem)
	authed.DELETE("/cart/:itemId", h.RemoveCartItem)
	authed.DELETE("/cart", h.ClearCart)
	authed.POST("/payment/initialize", h.InitializePayment)
	authed.GET("/payment/verify", h.VerifyPayment)

	admin := authed.Group("/admin", AdminRequired())
	admin.PATCH("/orders/:id", h.UpdateOrderStatus)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user, "token": token}, "Registration successful")
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user, "token": token}, "Login successful")
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, product, "")
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	in := services.CreateOrderInput{
		ShippingAddress: domain.ShippingAddress{
			FullName: req.ShippingAddress.FullName,
			Phone:    req.ShippingAddress.Phone,
			Street:   req.ShippingAddress.Street,
			City:     req.ShippingAddress.City,
			State:    req.ShippingAddress.State,
			ZipCode:  req.ShippingAddress.ZipCode,
			Country:  req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, services.OrderItemInput{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), c.GetString(ctxUserID), in)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, order, "Order created successfully")
}

func (h *Handler) ListOrders(c *gin.Context) {
	// Atoi failures leave zero values; clamp here so the pages arithmetic and
	// the reported pagination match what the service actually used.
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), c.GetString(ctxUserID), page, limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	}, "")
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, order, "")
}

func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cart, "")
}

func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.carts.AddItem(c.Request.Context(), c.GetString(ctxUserID), services.AddCartItemInput{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cart, "Item added to cart")
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.carts.UpdateItem(c.Request.Context(), c.GetString(ctxUserID), req.ItemID, req.Quantity)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cart, "Cart updated")
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("itemId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid item id")
		return
	}

	cart, err := h.carts.RemoveItem(c.Request.Context(), c.GetString(ctxUserID), itemID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cart, "Item removed from cart")
}

func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.carts.ClearCart(c.Request.Context(), c.GetString(ctxUserID)); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, nil, "Cart cleared")
}

func (h *Handler) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.payments.InitializePayment(c.Request.Context(), c.GetString(ctxUserID), req.OrderID, req.Email)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, payment, "")
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		reference = c.Query("trxref") // provider's alternate parameter
	}
	if reference == "" {
		respondError(c, http.StatusBadRequest, "Reference is required")
		return
	}

	order, alreadyVerified, err := h.payments.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	message := "Payment verified successfully"
	if alreadyVerified {
		message = "Payment already verified"
	}
	respondSuccess(c, http.StatusOK, gin.H{"order": order}, message)
}

// PaymentWebhook is authenticated by the body signature alone; it never sees
// a bearer token.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid body")
		return
	}

	err = h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader("x-paystack-signature"))
	if errors.Is(err, services.ErrInvalidSignature) {
		c.String(http.StatusBadRequest, "Invalid signature")
		return
	}
	if err != nil {
		log.Errorf("Webhook error: %v", err)
		c.String(http.StatusInternalServerError, "Webhook failed")
		return
	}
	c.String(http.StatusOK, "Webhook received")
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status), req.TrackingNumber)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, order, "Order updated")
}

func (h *Handler) respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondError(c, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrCartItemNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrEmailTaken):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPaymentNotSuccessful):
		respondError(c, http.StatusBadRequest, "Payment was not successful. Contact support if you were debited.")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotOrderOwner):
		respondError(c, http.StatusForbidden, err.Error())
	default:
		log.Errorf("Unhandled service error: %v", err)
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
