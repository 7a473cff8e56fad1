package domain

import "time"

// CartItem es una linea de carrito: un producto unico con cantidad.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// RetailerLink agrupa un retailer con un link representativo de compra.
type RetailerLink struct {
	Retailer string `json:"retailer"`
	Link     string `json:"link"`
}

// Cart es el agregado de compra derivado de una rutina.
// Nunca contiene el mismo producto dos veces.
type Cart struct {
	ID         string         `json:"id"`
	Items      []CartItem     `json:"items"`
	TotalPrice float64        `json:"total_price"`
	Retailers  []RetailerLink `json:"retailers,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
