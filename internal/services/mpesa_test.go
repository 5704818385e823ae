package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayFixture struct {
	server     *httptest.Server
	gateway    *MpesaGateway
	tokenCalls int
	lastPush   map[string]any
	clock      *time.Time
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.tokenCalls++
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":"3599"}`, f.tokenCalls)
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body["_authorization"] = r.Header.Get("Authorization")
		f.lastPush = body
		fmt.Fprint(w, `{"MerchantRequestID":"mr-1","CheckoutRequestID":"co-1","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing"}`)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.clock = &start

	f.gateway = NewMpesaGateway("key", "secret", "174379", "passkey", "https://example.com/api/payments/callback", f.server.URL)
	f.gateway.now = func() time.Time { return *f.clock }
	return f
}

func TestAccessToken_CachedWithinValidity(t *testing.T) {
	f := newGatewayFixture(t)

	tok1, err := f.gateway.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok1)

	// Still well inside the validity window.
	*f.clock = f.clock.Add(30 * time.Minute)
	tok2, err := f.gateway.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
	assert.Equal(t, 1, f.tokenCalls, "a valid cached token must be reused")
}

func TestAccessToken_RefreshedAfterExpiry(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.gateway.AccessToken(context.Background())
	require.NoError(t, err)

	// Past expires_in minus the safety margin.
	*f.clock = f.clock.Add(time.Hour)
	tok, err := f.gateway.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, f.tokenCalls)
}

func TestAccessToken_BadCredentials(t *testing.T) {
	f := newGatewayFixture(t)
	f.gateway.consumerSecret = "wrong"

	_, err := f.gateway.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrGatewayAuth)
}

func TestSTKPush_RequestFormat(t *testing.T) {
	f := newGatewayFixture(t)

	resp, err := f.gateway.STKPush(context.Background(), "254700000001", 10, "HW1", "Homework Question")
	require.NoError(t, err)
	assert.True(t, resp.Dispatched())
	assert.Equal(t, "co-1", resp.CheckoutRequestID)

	push := f.lastPush
	assert.Equal(t, "Bearer tok-1", push["_authorization"])
	assert.Equal(t, "174379", push["BusinessShortCode"])
	assert.Equal(t, "CustomerPayBillOnline", push["TransactionType"])
	assert.Equal(t, 10.0, push["Amount"])
	assert.Equal(t, "254700000001", push["PartyA"])
	assert.Equal(t, "254700000001", push["PhoneNumber"])
	assert.Equal(t, "HW1", push["AccountReference"])
	assert.Equal(t, "https://example.com/api/payments/callback", push["CallBackURL"])

	timestamp := f.clock.Format("20060102150405")
	assert.Equal(t, timestamp, push["Timestamp"])
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + timestamp))
	assert.Equal(t, wantPassword, push["Password"])
}

func TestSTKPush_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			fmt.Fprint(w, `{"access_token":"tok","expires_in":"3599"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewMpesaGateway("key", "secret", "174379", "passkey", "https://example.com/cb", server.URL)
	_, err := g.STKPush(context.Background(), "254700000001", 10, "HW1", "Homework Question")
	assert.ErrorIs(t, err, ErrGatewayRequest)
}

func TestSTKPushResponse_Dispatched(t *testing.T) {
	assert.True(t, (&STKPushResponse{ResponseCode: "0"}).Dispatched())
	assert.False(t, (&STKPushResponse{ResponseCode: "1"}).Dispatched())
	assert.False(t, (&STKPushResponse{}).Dispatched())
}

func TestSTKCallback_ReceiptNumber(t *testing.T) {
	cb := successCallback("co-1")
	assert.Equal(t, "QK12XYZ9AB", cb.ReceiptNumber())

	empty := &STKCallback{}
	assert.Equal(t, "", empty.ReceiptNumber())
}
