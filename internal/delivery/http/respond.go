package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tokosnap-be/internal/order"
	"tokosnap-be/internal/product"
	"tokosnap-be/internal/user"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps domain sentinels onto the HTTP surface. Anything
// unmapped is a 500 with the caller-provided fallback message; internals never
// leak into the body.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, order.ErrMissingFields):
		respondError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, order.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "Invalid quantity")
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, product.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, product.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "Invalid product")
	case errors.Is(err, product.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "Admin access required")
	case errors.Is(err, user.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
