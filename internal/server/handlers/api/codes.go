package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeNotFound       = "E_NOT_FOUND"       // route does not exist
	CodeNotAllowed     = "E_METHOD_NOT_ALLOWED"
	CodeQueueFull      = "E_QUEUE_FULL" // background event queue is at capacity

	// Auth errors
	CodeAuthInvalidCredentials = "E_AUTH_INVALID_CREDENTIALS" // bearer token missing, expired or malformed

	// Notifier errors
	CodeTicketLoadFailed = "E_TICKET_LOAD_FAILED" // the ticket named by the event could not be loaded
)
