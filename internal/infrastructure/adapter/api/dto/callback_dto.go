package dto

// CallbackAck is the acknowledgement body the provider expects after a
// webhook delivery
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
