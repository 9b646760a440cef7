package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a pedido row. Total is always derived from the lines at creation
// time; callers never supply it.
type Order struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"iduser"`
	Fecha  time.Time       `json:"fecha"`
	Total  decimal.Decimal `json:"total"`
	Lines  []OrderLine     `json:"lineas"`
}

// OrderLine is a lineapedido row. Name keeps the product name as it was at
// order time so later catalog edits do not alter historical orders.
type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"idpedido"`
	ProductID int64           `json:"idprod"`
	Color     string          `json:"color"`
	Quantity  int32           `json:"cant"`
	Name      string          `json:"nombre,omitempty"`
	Price     decimal.Decimal `json:"precio"`
}

// User is read-only from this service's perspective: it only resolves who to
// notify and with what shipping address.
type User struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Email     string `json:"email,omitempty"`
	Direccion string `json:"direccion,omitempty"`
	Ciudad    string `json:"ciudad,omitempty"`
	CP        string `json:"cp,omitempty"`
}
