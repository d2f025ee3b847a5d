package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoca-dev/Tomo-web/pkg/circuitbreaker"
)

type row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		URL:        srv.URL + "/",
		ServiceKey: "service-key",
		Breaker:    circuitbreaker.Config{ConsecutiveFailures: 2, Timeout: time.Minute},
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{ServiceKey: "k"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewClient(Config{URL: "https://x.supabase.co"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSelect_BuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Prefer"))

		q := r.URL.Query()
		assert.Equal(t, "id,name", q.Get("select"))
		assert.Equal(t, "eq.true", q.Get("is_active"))
		assert.Equal(t, "eq.coffee", q.Get("category"))
		assert.Equal(t, "name.asc", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))

		_, _ = w.Write([]byte(`[{"id":"1","name":"Sidamo"},{"id":"2","name":"Yirgacheffe"}]`))
	})

	var rows []row
	err := c.From("products").
		Select("id,name").
		Eq("is_active", true).
		Eq("category", "coffee").
		Order("name", true).
		Limit(5).
		Execute(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Yirgacheffe", rows[1].Name)
}

func TestInsert_ReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload []map[string]string
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "new", payload[0]["status"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"o-1","name":"order"}]`))
	})

	var rows []row
	err := c.From("orders").
		Select("*").
		Insert([]map[string]string{{"status": "new"}}).
		Execute(context.Background(), &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "o-1", rows[0].ID)
}

func TestUpdate_AppliesFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.o-1", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`[]`))
	})

	err := c.From("orders").Update(map[string]string{"phone": "+251911000000"}).Eq("id", "o-1").Execute(context.Background(), nil)
	assert.NoError(t, err)
}

func TestExecute_DecodesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"22P02","message":"invalid input syntax for type uuid","details":null,"hint":null}`))
	})

	err := c.From("products").Eq("id", "nope").Execute(context.Background(), &[]row{})
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "22P02", apiErr.Code)
	assert.Contains(t, err.Error(), "invalid input syntax")
}

func TestExecute_PlainTextError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
	})

	err := c.From("products").Execute(context.Background(), nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream timeout", apiErr.Message)
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	status := http.StatusNotFound
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"x"}`))
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, c.From("products").Execute(ctx, nil))
	}
	assert.Equal(t, 3, calls)

	status = http.StatusInternalServerError
	for i := 0; i < 2; i++ {
		require.Error(t, c.From("products").Execute(ctx, nil))
	}

	err := c.From("products").Execute(ctx, nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 5, calls)
}
