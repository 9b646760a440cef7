package log

const (
	KeyAppName       = "app"
	KeyRequestID     = "requestId"
	KeyProcess       = "process"
	KeyTag           = "tag"
	KeyConfig        = "config"
	KeyEmail         = "email"
	KeyOrder         = "order"
	KeyOrders        = "orders"
	KeyOrderID       = "orderId"
	KeyOrderLines    = "orderLines"
	KeyUserID        = "userId"
	KeyCacheKey      = "cacheKey"
	KeyEmailSent     = "emailSent"
	KeyTotal         = "total"
	KeyDbURL         = "dbUrl"
	KeyRequestBody   = "requestBody"
	KeyRequestHeader = "requestHeader"
	KeyRequestHost   = "host"
	KeyRequestIp     = "requesterIP"
	KeyRequestMethod = "requestMethod"
	KeyRequestURI    = "requestURI"
	KeyRequestURL    = "requestURL"
	KeyTraceID       = "traceId"
	KeySpanID        = "spanId"
)
