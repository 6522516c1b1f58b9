package domain

import "github.com/shopspring/decimal"

// CartLine is one item awaiting checkout. Quantity is at least 1 while the
// line is present.
type CartLine struct {
	ItemID    string          `json:"itemId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// StoreItem is the backend's item shape. On checkout Stock carries the
// purchased quantity.
type StoreItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Stock int64           `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// LineFromStoreItem normalizes a store item into a single-quantity cart line.
func LineFromStoreItem(it StoreItem) CartLine {
	return CartLine{ItemID: it.ID, Name: it.Name, UnitPrice: it.Price, Quantity: 1}
}
