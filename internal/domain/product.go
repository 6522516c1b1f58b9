package domain

import "github.com/shopspring/decimal"

// Owned is implemented by catalog entries that belong to a principal.
type Owned interface {
	OwnerID() string
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Seller      string          `json:"seller"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location"`
}

func (p Product) OwnerID() string { return p.Seller }

// Line normalizes the product into a single-quantity cart line.
func (p Product) Line() CartLine {
	return CartLine{ItemID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: 1}
}

type NewProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location"`
}

type CropListing struct {
	ID           string          `json:"id"`
	CropName     string          `json:"cropName"`
	Quantity     float64         `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Location     string          `json:"location"`
	Farmer       string          `json:"farmer"`
}

func (l CropListing) OwnerID() string { return l.Farmer }

// Line normalizes the listing into a single-unit cart line.
func (l CropListing) Line() CartLine {
	return CartLine{ItemID: l.ID, Name: l.CropName, UnitPrice: l.PricePerUnit, Quantity: 1}
}

type NewCropListing struct {
	CropName     string          `json:"cropName"`
	Quantity     float64         `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Location     string          `json:"location"`
}
