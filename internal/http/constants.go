package http

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderRequestID          = "X-Request-Id"
	ValueJson                = "application/json"
	ValuePdf                 = "application/pdf"
)
