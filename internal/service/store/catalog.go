// Package store lists the company store items that can go into the cart.
package store

import (
	"farmsmart/internal/domain"
	"github.com/shopspring/decimal"
)

var items = []domain.StoreItem{
	{ID: "fertilizer_storeitem", Name: "Premium Organic Fertilizer", Stock: 100, Price: decimal.RequireFromString("29.99")},
	{ID: "seeds_storeitem", Name: "Hybrid Corn Seeds (5kg)", Stock: 50, Price: decimal.RequireFromString("45.00")},
	{ID: "pesticide_storeitem", Name: "Bio Pesticide Spray", Stock: 75, Price: decimal.RequireFromString("18.50")},
	{ID: "tools_storeitem", Name: "Garden Tool Set", Stock: 30, Price: decimal.RequireFromString("65.00")},
	{ID: "soil_storeitem", Name: "Enriched Potting Soil (20L)", Stock: 60, Price: decimal.RequireFromString("22.00")},
	{ID: "irrigation_storeitem", Name: "Drip Irrigation Kit", Stock: 20, Price: decimal.RequireFromString("89.99")},
}

// Items returns a copy of the catalog in display order.
func Items() []domain.StoreItem {
	return append([]domain.StoreItem(nil), items...)
}

func Lookup(id string) (domain.StoreItem, error) {
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.StoreItem{}, domain.ErrNotFound
}
