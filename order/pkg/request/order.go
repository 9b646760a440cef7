package request

import (
	"github.com/shopspring/decimal"
)

type CreateOrder struct {
	Lines  []OrderLine `validate:"required,gt=0,dive" json:"lines"`
	UserID int64       `validate:"required,gt=0"      json:"userId"`
}

type OrderLine struct {
	Name      string          `                               json:"name,omitempty"`
	Color     string          `validate:"required"            json:"color"`
	Price     decimal.Decimal `validate:"required"            json:"price"`
	ProductID int64           `validate:"required,gt=0"       json:"productId"`
	Quantity  int32           `validate:"required,gte=1"      json:"quantity"`
}
