package response

import (
	"github.com/tatoodenda/backend/order/internal/repository"
)

type Order struct {
	ID     int64       `json:"id"`
	UserID int64       `json:"iduser"`
	Fecha  string      `json:"fecha"`
	Total  string      `json:"total"`
	Lines  []OrderLine `json:"lineas"`
}

type OrderLine struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"idpedido"`
	ProductID int64  `json:"idprod"`
	Color     string `json:"color"`
	Quantity  int32  `json:"cant"`
	Name      string `json:"nombre,omitempty"`
	Price     string `json:"precio"`
}

func NewOrder(order repository.Order) Order {
	lines := make([]OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, OrderLine{
			ID:        line.ID,
			OrderID:   line.OrderID,
			ProductID: line.ProductID,
			Color:     line.Color,
			Quantity:  line.Quantity,
			Name:      line.Name,
			Price:     line.Price.StringFixed(2),
		})
	}
	return Order{
		ID:     order.ID,
		UserID: order.UserID,
		Fecha:  order.Fecha.Format("2006-01-02"),
		Total:  order.Total.StringFixed(2),
		Lines:  lines,
	}
}

func NewOrders(orders []repository.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrder(order))
	}
	return out
}
