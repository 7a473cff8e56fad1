package service

import (
	"time"

	"github.com/google/uuid"

	"glow-llm/internal/domain"
)

// BuildCart agrega los productos ligados de una rutina en un carrito:
// una linea por producto unico con cantidad 1, total como suma de precios
// distintos y un link representativo por retailer.
func BuildCart(routine domain.Routine) domain.Cart {
	seen := make(map[string]bool)
	retailerSeen := make(map[string]bool)

	cart := domain.Cart{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	for _, step := range routine.AllSteps() {
		if step.Product == nil || step.Product.ID == "" {
			continue
		}
		product := step.Product.Product
		if seen[product.ID] {
			continue
		}
		seen[product.ID] = true

		cart.Items = append(cart.Items, domain.CartItem{Product: product, Quantity: 1})
		cart.TotalPrice += product.Price

		if product.Retailer != "" && !retailerSeen[product.Retailer] {
			retailerSeen[product.Retailer] = true
			cart.Retailers = append(cart.Retailers, domain.RetailerLink{
				Retailer: product.Retailer,
				Link:     product.PurchaseLink,
			})
		}
	}

	return cart
}
