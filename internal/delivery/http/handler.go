package http

import (
	"encoding/json"
	"net/http"

	"tokosnap-be/internal/order"
	"tokosnap-be/internal/payment/webhook"
	"tokosnap-be/internal/product"
	"tokosnap-be/internal/user"
)

type Handler struct {
	products product.Service
	orders   order.Service
	users    user.Service
	webhook  *webhook.Handler
}

func NewHandler(products product.Service, orders order.Service, users user.Service, wh *webhook.Handler) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		users:    users,
		webhook:  wh,
	}
}

// Register wires every route onto the mux using method patterns.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.health)
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("POST /products", h.createProduct)
	mux.HandleFunc("PUT /products/{id}", h.updateProduct)
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("POST /checkout", h.checkout)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.Handle("POST /midtrans/webhook", h.webhook)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Backend OK"})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to fetch products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var input product.NewProduct
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.products.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err, "Failed to create product")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var input product.UpdateProduct
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.products.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondServiceError(w, err, "Failed to update product")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), input)
	if err != nil {
		respondServiceError(w, err, "Failed to create order")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var input order.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.orders.Checkout(r.Context(), input)
	if err != nil {
		respondServiceError(w, err, "Checkout failed")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err, "Failed to fetch order")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":    u.ID,
			"email": u.Email,
			"role":  u.Role,
		},
	})
}
