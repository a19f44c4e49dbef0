package order

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/cache"
	"github.com/Additional-Code/restaurant/internal/clock"
	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/database"
	"github.com/Additional-Code/restaurant/internal/dto"
	"github.com/Additional-Code/restaurant/internal/kitchen"
	repo "github.com/Additional-Code/restaurant/internal/repository/order"
	service "github.com/Additional-Code/restaurant/internal/service/order"
	"github.com/Additional-Code/restaurant/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
}

type testServer struct {
	e     *echo.Echo
	conns *database.Connections
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	conns := testutil.NewTestDB(t)
	noCache, err := cache.NewStore(nil, config.Config{Cache: config.Cache{Driver: "noop"}}, zap.NewNop())
	require.NoError(t, err)
	prep, err := kitchen.NewUniform(5, 15)
	require.NoError(t, err)

	svc, err := service.NewService(service.Params{
		Repository: repo.NewRepository(conns),
		Cache:      noCache,
		Logger:     zap.NewNop(),
		Clock:      clock.NewSystem(),
		PrepTimer:  prep,
	})
	require.NoError(t, err)

	e := echo.New()
	Register(e, NewHandler(svc))
	return testServer{e: e, conns: conns}
}

func (s testServer) do(t *testing.T, method, target string, form url.Values) (int, envelope) {
	t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s testServer) submit(t *testing.T, tableNo, item, quantity string) (int, envelope) {
	t.Helper()
	return s.do(t, http.MethodPost, "/order", url.Values{
		"table_no": {tableNo},
		"item":     {item},
		"quantity": {quantity},
	})
}

func decodeOrders(t *testing.T, env envelope) []dto.OrderResponse {
	t.Helper()
	var orders []dto.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.NotNil(t, orders, "data must be a JSON array")
	return orders
}

func TestSubmitOrder(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantField  string
	}{
		{
			name:       "valid form",
			form:       url.Values{"table_no": {"1"}, "item": {"hamburger"}, "quantity": {"1"}},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown item",
			form:       url.Values{"table_no": {"1"}, "item": {"unicorn"}, "quantity": {"1"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "item",
		},
		{
			name:       "negative table",
			form:       url.Values{"table_no": {"-1"}, "item": {"hamburger"}, "quantity": {"1"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "table_no",
		},
		{
			name:       "missing quantity",
			form:       url.Values{"table_no": {"1"}, "item": {"hamburger"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "quantity",
		},
		{
			name:       "non numeric table",
			form:       url.Values{"table_no": {"one"}, "item": {"hamburger"}, "quantity": {"1"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "table_no",
		},
		{
			name:       "quantity wider than 32 bits",
			form:       url.Values{"table_no": {"1"}, "item": {"hamburger"}, "quantity": {"4294967296"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "quantity",
		},
		{
			name:       "empty item",
			form:       url.Values{"table_no": {"1"}, "item": {""}, "quantity": {"1"}},
			wantStatus: http.StatusBadRequest,
			wantField:  "item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)

			status, env := srv.do(t, http.MethodPost, "/order", tt.form)
			assert.Equal(t, tt.wantStatus, status)

			if tt.wantField != "" {
				assert.False(t, env.Success)
				assert.Equal(t, "bad_request", env.Error.Kind)
				assert.Equal(t, tt.wantField, env.Error.Details["field"])
				assert.Equal(t, 0, testutil.CountOrders(t, t.Context(), srv.conns))
				return
			}

			assert.True(t, env.Success)
			var placed dto.OrderPlacedResponse
			require.NoError(t, json.Unmarshal(env.Data, &placed))
			assert.NotEqual(t, uuid.Nil, placed.ID)
			assert.Equal(t, 1, testutil.CountOrders(t, t.Context(), srv.conns))
		})
	}
}

func TestQueryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.submit(t, "1", "hamburger", "1")
	require.Equal(t, http.StatusCreated, status)
	status, env := srv.submit(t, "1", "fries", "2")
	require.Equal(t, http.StatusCreated, status)
	var placed dto.OrderPlacedResponse
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	status, _ = srv.submit(t, "2", "fries", "3")
	require.Equal(t, http.StatusCreated, status)

	status, env = srv.do(t, http.MethodGet, "/query_all", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeOrders(t, env), 3)
	assert.Equal(t, 3, env.Meta.Count)

	status, env = srv.do(t, http.MethodGet, "/query_table/1", nil)
	require.Equal(t, http.StatusOK, status)
	byTable := decodeOrders(t, env)
	require.Len(t, byTable, 2)
	for _, o := range byTable {
		assert.Equal(t, int32(1), o.TableNo)
	}

	status, env = srv.do(t, http.MethodGet, "/query_item/1/fries", nil)
	require.Equal(t, http.StatusOK, status)
	byItem := decodeOrders(t, env)
	require.Len(t, byItem, 1)
	assert.Equal(t, placed.ID, byItem[0].ID)
	assert.Equal(t, int32(2), byItem[0].Quantity)
	assert.GreaterOrEqual(t, byItem[0].PreparationTime, int32(5))
	assert.Less(t, byItem[0].PreparationTime, int32(15))
	assert.WithinDuration(t, time.Now(), byItem[0].PlacedAt, time.Minute)

	status, env = srv.do(t, http.MethodGet, "/query_id/"+placed.ID.String(), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeOrders(t, env), 1)

	status, env = srv.do(t, http.MethodGet, "/query_table/42", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeOrders(t, env))
	assert.Zero(t, env.Meta.Count)

	status, env = srv.do(t, http.MethodGet, "/query_id/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeOrders(t, env))
}

func TestBadPathParameters(t *testing.T) {
	srv := newTestServer(t)

	for _, target := range []string{"/query_id/not-a-uuid", "/query_table/abc", "/query_item/x/fries"} {
		status, env := srv.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.Equal(t, "bad_request", env.Error.Kind, target)
	}

	status, _ := srv.do(t, http.MethodDelete, "/delete/123", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDeleteEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, qty := range []string{"1", "2", "3"} {
		status, _ := srv.submit(t, "1", "fries", qty)
		require.Equal(t, http.StatusCreated, status)
	}
	status, _ := srv.submit(t, "2", "fries", "1")
	require.Equal(t, http.StatusCreated, status)
	status, env := srv.submit(t, "2", "cola", "1")
	require.Equal(t, http.StatusCreated, status)
	var cola dto.OrderPlacedResponse
	require.NoError(t, json.Unmarshal(env.Data, &cola))

	status, env = srv.do(t, http.MethodDelete, "/delete_item/1/fries", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	_, env = srv.do(t, http.MethodGet, "/query_table/1", nil)
	assert.Empty(t, decodeOrders(t, env))
	_, env = srv.do(t, http.MethodGet, "/query_item/2/fries", nil)
	assert.Len(t, decodeOrders(t, env), 1)

	for range 2 {
		status, env = srv.do(t, http.MethodDelete, "/delete/"+cola.ID.String(), nil)
		require.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)
	}
	_, env = srv.do(t, http.MethodGet, "/query_id/"+cola.ID.String(), nil)
	assert.Empty(t, decodeOrders(t, env))

	status, _ = srv.do(t, http.MethodDelete, "/delete_item/7/water", nil)
	assert.Equal(t, http.StatusOK, status)
}
