package bot

import (
	"fmt"
	"math"
	"strings"

	"jhimki-stock-backend/internal/search"
	"jhimki-stock-backend/internal/types"
)

// formatProducts reshapes candidates into the UI's display schema. The
// returned slice is never nil so the products field always encodes as [].
func formatProducts(candidates []search.Candidate) []types.Product {
	products := make([]types.Product, 0, len(candidates))
	for _, c := range candidates {
		name := c.Name
		if name == "" {
			name = "Unknown"
		}
		products = append(products, types.Product{
			ID:              c.ID,
			ProductID:       c.ProductID,
			Name:            name,
			Price:           formatPrice(c.Price),
			Category:        c.Category,
			Subcategory:     c.Subcategory,
			Color:           c.Color,
			Fabric:          c.Fabric,
			Technique:       c.Technique,
			Pattern:         c.Pattern,
			Description:     c.Description,
			InStock:         c.InStock,
			ColorsAvailable: c.ColorsAvailable,
			Score:           math.Round(c.Score*10000) / 10000,
		})
	}
	return products
}

// formatPrice renders a rupee amount with thousands grouping ("₹2,850").
func formatPrice(price float64) string {
	if price <= 0 {
		return "N/A"
	}
	whole := fmt.Sprintf("%.0f", price)
	var b strings.Builder
	b.WriteString("₹")
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
		if len(whole) > lead {
			b.WriteString(",")
		}
	}
	for i := lead; i < len(whole); i += 3 {
		b.WriteString(whole[i : i+3])
		if i+3 < len(whole) {
			b.WriteString(",")
		}
	}
	return b.String()
}
