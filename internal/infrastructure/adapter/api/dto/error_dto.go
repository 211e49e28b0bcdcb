package dto

// ErrorResponse is the body returned for any failed request. Code is the
// domain error code from the 4xxx/5xxx taxonomy, not the HTTP status.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
