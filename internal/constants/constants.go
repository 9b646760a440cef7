package constants

const (
	AppOrderService = "order-service"
	StoreName       = "TatooDenda"
)
