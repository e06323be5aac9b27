package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/quickodds/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, ClientConfig{APIKey: "demo-key"})
}

func TestFetchSpotPrice_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":64123.45}}`))
	})

	p, err := c.FetchSpotPrice(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 64123.45, p, 1e-9)
}

func TestFetchSpotPrice_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `oops`, models.ErrFeedUnavailable},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"not json", http.StatusOK, `<html>`, models.ErrFeedUnavailable},
		{"missing asset", http.StatusOK, `{}`, models.ErrInvalidSample},
		{"missing currency", http.StatusOK, `{"bitcoin":{"eur":1}}`, models.ErrInvalidSample},
		{"zero price", http.StatusOK, `{"bitcoin":{"usd":0}}`, models.ErrInvalidSample},
		{"negative price", http.StatusOK, `{"bitcoin":{"usd":-3}}`, models.ErrInvalidSample},
		{"string price", http.StatusOK, `{"bitcoin":{"usd":"abc"}}`, models.ErrFeedUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.FetchSpotPrice(context.Background(), "bitcoin")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetchSpotPrice_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, ClientConfig{})
	_, err := c.FetchSpotPrice(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, models.ErrFeedUnavailable)
}

func TestFetchSpotPrice_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchSpotPrice(ctx, "bitcoin")
	assert.ErrorIs(t, err, models.ErrFeedUnavailable)
}

func TestFetchSpotPrices_Batch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bitcoin,ethereum,nope", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":64000},"ethereum":{"usd":3100.5}}`))
	})

	prices, err := c.FetchSpotPrices(context.Background(), []string{"bitcoin", "ethereum", "nope"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"bitcoin": 64000, "ethereum": 3100.5}, prices)

	empty, err := c.FetchSpotPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
