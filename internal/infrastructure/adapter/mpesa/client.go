package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mwangikim/nyumbapay/internal/domain/entity"
	domainErr "github.com/mwangikim/nyumbapay/internal/domain/error"
	"github.com/mwangikim/nyumbapay/internal/domain/port/core"
	"github.com/mwangikim/nyumbapay/internal/domain/port/gateway"
)

const (
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"

	// timestampLayout is the format the gateway expects in signatures
	timestampLayout = "20060102150405"

	transactionTypePayBill = "CustomerPayBillOnline"
)

// Config carries the gateway connection settings
type Config struct {
	BaseURL        string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	RequestTimeout time.Duration
}

// Client talks to the M-Pesa STK push API. It implements
// gateway.PaymentGateway.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	tokens       TokenSource
	timeProvider core.TimeProvider
	logger       core.Logger
}

// NewClient creates a gateway client. The token source is injected so
// callers control credential caching.
func NewClient(
	cfg Config,
	httpClient *http.Client,
	tokens TokenSource,
	timeProvider core.TimeProvider,
	logger core.Logger,
) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:          cfg,
		httpClient:   httpClient,
		tokens:       tokens,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
	ErrorCode         string `json:"errorCode"`
	ErrorMessage      string `json:"errorMessage"`
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Initiate sends an STK push request for the given payment
func (c *Client) Initiate(ctx context.Context, req entity.PaymentRequest) (*gateway.InitiationResult, error) {
	timestamp := c.timeProvider.Now().Format(timestampLayout)

	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionTypePayBill,
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	var parsed stkPushResponse
	status, err := c.post(ctx, "stk_push", stkPushPath, payload, &parsed)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, domainErr.NewGatewayRejectedError(
			"stk_push", status, parsed.ErrorCode, rejectionMessage(parsed.ErrorMessage, status))
	}
	if parsed.ResponseCode != "0" {
		return nil, domainErr.NewGatewayRejectedError(
			"stk_push", status, parsed.ResponseCode, parsed.ResponseDesc)
	}
	if parsed.CheckoutRequestID == "" {
		return nil, domainErr.NewGatewayRejectedError(
			"stk_push", status, parsed.ResponseCode, "gateway accepted request without a checkout id")
	}

	c.logger.Info("stk push accepted", map[string]any{
		"checkoutId":        parsed.CheckoutRequestID,
		"merchantRequestId": parsed.MerchantRequestID,
	})

	return &gateway.InitiationResult{
		CheckoutID:        parsed.CheckoutRequestID,
		MerchantRequestID: parsed.MerchantRequestID,
		CustomerMessage:   parsed.CustomerMessage,
	}, nil
}

// QueryStatus asks the gateway for the outcome of a previously sent push
func (c *Client) QueryStatus(ctx context.Context, checkoutID string) (*gateway.QueryResult, error) {
	timestamp := c.timeProvider.Now().Format(timestampLayout)

	payload := stkQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutID,
	}

	var parsed stkQueryResponse
	status, err := c.post(ctx, "stk_query", stkQueryPath, payload, &parsed)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		// The gateway answers 500 with a "transaction is being processed"
		// error code while the push is still in flight
		if parsed.ErrorCode == "500.001.1001" {
			return &gateway.QueryResult{Pending: true}, nil
		}
		return nil, domainErr.NewGatewayRejectedError(
			"stk_query", status, parsed.ErrorCode, rejectionMessage(parsed.ErrorMessage, status))
	}

	resultCode, err := strconv.Atoi(parsed.ResultCode)
	if err != nil {
		return nil, domainErr.NewGatewayRejectedError(
			"stk_query", status, parsed.ResultCode, "gateway returned non-numeric result code")
	}

	return &gateway.QueryResult{
		Pending:       false,
		ResultCode:    resultCode,
		ResultMessage: parsed.ResultDesc,
	}, nil
}

// password builds the request signature from short code, passkey and timestamp
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

// post sends an authenticated JSON request and decodes the response body
// into out regardless of status, returning the status code
func (c *Client) post(ctx context.Context, operation, path string, payload, out any) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, domainErr.NewGatewayTransportError(operation, err)
	}

	callCtx := ctx
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = c.timeProvider.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, domainErr.NewGatewayTransportError(operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, domainErr.NewGatewayTransportError(operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// An expired token comes back as 401, drop the cache so the next
	// attempt refreshes
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, domainErr.NewGatewayTransportError(operation, err)
	}
	if len(raw) > 0 {
		// Tolerate non-JSON error bodies, status handling decides
		_ = json.Unmarshal(raw, out)
	}

	return resp.StatusCode, nil
}

func rejectionMessage(message string, status int) string {
	if message != "" {
		return message
	}
	return fmt.Sprintf("gateway returned status %d", status)
}
