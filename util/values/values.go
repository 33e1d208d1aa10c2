package values

// Response statuses shared by helpers and handlers. util.StatusCode maps
// each one to an HTTP status code.
const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	Failed         = "failed"
	SystemErr      = "system error"
	BadRequestBody = "bad request body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not allowed"
	Conflict       = "conflict"
	NotFound       = "not found"
	NotAuthorised  = "not authorised"
	TokenExpired   = "token expired"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
)

type contextKey string

const (
	ContextTracingKey contextKey = "tracing"
	ContextUserKey    contextKey = "user"
)
