// Package seed fills the in-process dev backend with sample marketplace data
// so a local run has something to browse.
package seed

import (
	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"github.com/shopspring/decimal"
)

const demoFarmer = "dev-demo-farmer"

// Products returns the sample marketplace products.
func Products() []domain.Product {
	return []domain.Product{
		{
			ID:          "demo-product-compost",
			Name:        "Organic Compost",
			Description: "Well rotted manure compost, 50kg bag",
			Seller:      demoFarmer,
			Price:       decimal.RequireFromString("12.50"),
			Location:    "Nairobi",
		},
		{
			ID:          "demo-product-seedlings",
			Name:        "Tomato Seedlings",
			Description: "Tray of 100 hardened seedlings",
			Seller:      demoFarmer,
			Price:       decimal.RequireFromString("8.00"),
			Location:    "Nakuru",
		},
	}
}

// Listings returns the sample crop listings.
func Listings() []domain.CropListing {
	return []domain.CropListing{
		{
			ID:           "demo-listing-maize",
			CropName:     "Maize",
			Quantity:     500,
			PricePerUnit: decimal.RequireFromString("0.40"),
			Location:     "Eldoret",
			Farmer:       demoFarmer,
		},
		{
			ID:           "demo-listing-beans",
			CropName:     "Beans",
			Quantity:     120,
			PricePerUnit: decimal.RequireFromString("1.10"),
			Location:     "Nairobi",
			Farmer:       demoFarmer,
		},
	}
}

// Apply seeds m. Calling it twice adds the entries twice.
func Apply(m *backend.Memory) {
	m.SeedProducts(Products()...)
	m.SeedListings(Listings()...)
}
