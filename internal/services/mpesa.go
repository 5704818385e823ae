package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"homeworkhelper/internal/logger"

	"go.uber.org/zap"
)

var (
	// ErrGatewayAuth means the provider rejected or never answered the token
	// exchange. Fatal to the enclosing payment attempt, not retried.
	ErrGatewayAuth = errors.New("payment gateway authentication failed")
	// ErrGatewayRequest means the push request itself failed; no payment was
	// initiated on the provider side.
	ErrGatewayRequest = errors.New("payment gateway request failed")
)

// tokenSafetyMargin is subtracted from expires_in so a token is refreshed
// before the provider considers it stale.
const tokenSafetyMargin = 60 * time.Second

type MpesaGateway struct {
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	baseURL        string
	httpClient     *http.Client
	now            func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewMpesaGateway(consumerKey, consumerSecret, shortcode, passkey, callbackURL, baseURL string) *MpesaGateway {
	return &MpesaGateway{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		shortcode:      shortcode,
		passkey:        passkey,
		callbackURL:    callbackURL,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		now:            time.Now,
	}
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in,string"`
}

type stkPushRequest struct {
	BusinessShortCode string  `json:"BusinessShortCode"`
	Password          string  `json:"Password"`
	Timestamp         string  `json:"Timestamp"`
	TransactionType   string  `json:"TransactionType"`
	Amount            float64 `json:"Amount"`
	PartyA            string  `json:"PartyA"`
	PartyB            string  `json:"PartyB"`
	PhoneNumber       string  `json:"PhoneNumber"`
	CallBackURL       string  `json:"CallBackURL"`
	AccountReference  string  `json:"AccountReference"`
	TransactionDesc   string  `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Dispatched reports whether the provider accepted the push request. This is
// proof the prompt reached the payer's phone, not proof of payment.
func (r *STKPushResponse) Dispatched() bool {
	return r.ResponseCode == "0"
}

// AccessToken returns the cached bearer token while it is still valid,
// otherwise re-authenticates against the provider.
func (g *MpesaGateway) AccessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && g.now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	req.SetBasicAuth(g.consumerKey, g.consumerSecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.Log.Error("token exchange failed (mpesa)", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Error("token exchange rejected (mpesa)", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: status %d", ErrGatewayAuth, resp.StatusCode)
	}

	var tok accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrGatewayAuth)
	}

	g.accessToken = tok.AccessToken
	g.tokenExpiry = g.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSafetyMargin)
	logger.Log.Debug("access token refreshed (mpesa)", zap.Time("expiry", g.tokenExpiry))
	return g.accessToken, nil
}

// STKPush asks the provider to push a payment prompt to the payer's phone.
// The returned acknowledgement carries the correlation ids for the
// asynchronous result callback.
func (g *MpesaGateway) STKPush(ctx context.Context, phone string, amount float64, reference, description string) (*STKPushResponse, error) {
	token, err := g.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := g.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(g.shortcode + g.passkey + timestamp),
	)

	payload := stkPushRequest{
		BusinessShortCode: g.shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            g.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       g.callbackURL,
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.Log.Error("stk push failed (mpesa)", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Log.Error("stk push rejected (mpesa)",
			zap.String("reference", reference), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrGatewayRequest, resp.StatusCode)
	}

	var res STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}

	logger.Log.Info("stk push dispatched (mpesa)",
		zap.String("reference", reference),
		zap.String("response_code", res.ResponseCode),
		zap.String("checkout_request_id", res.CheckoutRequestID))
	return &res, nil
}

// STKCallbackPayload is the asynchronous result notification delivered by the
// provider to the callback endpoint.
type STKCallbackPayload struct {
	Body struct {
		StkCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []STKCallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type STKCallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Succeeded reports whether the payer completed the payment. The callback's
// result code is numeric while the push acknowledgement uses a string; both
// are normalized behind semantic predicates.
func (c *STKCallback) Succeeded() bool {
	return c.ResultCode == 0
}

// ReceiptNumber extracts the MpesaReceiptNumber metadata item, when present.
func (c *STKCallback) ReceiptNumber() string {
	for _, item := range c.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
