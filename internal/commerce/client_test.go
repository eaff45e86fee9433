package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signingKey = "commerce-secret"

var learner = User{Username: "learner", Email: "learner@example.com"}

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api/v2/", signingKey, timeout)
	require.NoError(t, err)
	return c
}

func claimsOf(t *testing.T, r *http.Request) jwt.MapClaims {
	t.Helper()
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "JWT ")
	require.True(t, ok, "authorization scheme")
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	return claims
}

func TestNewClientRequiresConfiguration(t *testing.T) {
	_, err := NewClient("", signingKey, time.Second)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewClient("http://commerce.local", "", time.Second)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestGetOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v2/orders/EDX-100001/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		claims := claimsOf(t, r)
		assert.Equal(t, "learner", claims["username"])
		assert.Equal(t, "learner@example.com", claims["email"])
		_, _ = io.WriteString(w, `{"number":"EDX-100001","status":"Complete","total_excl_tax":"49.00"}`)
	}, time.Second)

	order, err := c.GetOrder(context.Background(), learner, "EDX-100001")
	require.NoError(t, err)
	assert.Equal(t, "EDX-100001", order.Number)
	assert.Equal(t, "Complete", order.Status)
	assert.Equal(t, "49.00", order.Data["total_excl_tax"])
}

func TestGetProcessors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/payment/processors/", r.URL.Path)
		_, _ = io.WriteString(w, `["cybersource","paypal"]`)
	}, time.Second)

	processors, err := c.GetProcessors(context.Background(), learner)
	require.NoError(t, err)
	assert.Equal(t, []string{"cybersource", "paypal"}, processors)
}

func TestCreateBasket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/baskets/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["checkout"])
		assert.Equal(t, "paypal", body["payment_processor_name"])
		assert.Equal(t, []any{map[string]any{"sku": "VERIFIED-SKU"}}, body["products"])
		_, _ = io.WriteString(w, `{"id":7,"order":null,"payment_data":{"payment_processor_name":"paypal"}}`)
	}, time.Second)

	basket, err := c.CreateBasket(context.Background(), learner, "VERIFIED-SKU", "paypal")
	require.NoError(t, err)
	assert.Equal(t, 7, basket.ID)
	assert.Equal(t, "paypal", basket.PaymentData["payment_processor_name"])
}

func TestCreateBasketWithoutProcessorSendsNull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		v, ok := body["payment_processor_name"]
		assert.True(t, ok)
		assert.Nil(t, v)
		_, _ = io.WriteString(w, `{"id":8}`)
	}, time.Second)

	_, err := c.CreateBasket(context.Background(), learner, "VERIFIED-SKU", "")
	require.NoError(t, err)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		want    error
		msg     string
	}{
		{
			name: "non-200 carries user message",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"user_message":"Order not found."}`)
			},
			want: ErrInvalidResponse,
			msg:  "(400) - Order not found.",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `<html>`)
			},
			want: ErrInvalidResponse,
		},
		{
			name: "slow upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
			want:    ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			c := newTestClient(t, tt.handler, timeout)
			_, err := c.GetOrder(context.Background(), learner, "EDX-1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}
