package product

import "time"

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Image       *string `json:"image,omitempty"`
	Description *string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewProduct struct {
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Image       *string `json:"image,omitempty"`
	Description *string `json:"description,omitempty"`
}

type UpdateProduct struct {
	Name        *string `json:"name,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	Image       *string `json:"image,omitempty"`
	Description *string `json:"description,omitempty"`
}
