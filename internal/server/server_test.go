package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicehouse/pizzeria/internal/config"
	"github.com/slicehouse/pizzeria/internal/domain"
	"github.com/slicehouse/pizzeria/internal/repository/memory"
	"github.com/slicehouse/pizzeria/internal/service"
)

const webhookSecret = "whsec_test"

type testEnv struct {
	t       *testing.T
	srv     *Server
	store   *memory.Store
	catalog map[string]domain.CatalogItem
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "pizzeria-test", Env: "test", Version: "test"},
		Auth: config.AuthConfig{
			SessionSecret:        "test-secret",
			SessionTTLMinutes:    60,
			CookieName:           "pizza_session",
			ResetTokenTTLMinutes: 60,
		},
		Notification: config.NotificationConfig{Fanout: config.FanoutLocal},
		Loyalty:      config.LoyaltyConfig{RedeemPolicy: config.RedeemPolicyFull},
		Payment:      config.PaymentConfig{WebhookSecret: webhookSecret},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	srv := New(testConfig(), Infra{Store: store, StoreDriver: "memory"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.Start(ctx)

	env := &testEnv{t: t, srv: srv, store: store, catalog: map[string]domain.CatalogItem{}}
	seed := []struct {
		kind  domain.CatalogKind
		name  string
		stock int
	}{
		{domain.KindBase, "Thin Crust", 20},
		{domain.KindSauce, "Tomato", 20},
		{domain.KindCheese, "Mozzarella", 20},
		{domain.KindTopping, "Basil", 20},
		{domain.KindTopping, "Truffle", 0},
	}
	for _, s := range seed {
		item := &domain.CatalogItem{Name: s.name, Price: 1, Stock: s.stock, Threshold: 5}
		require.NoError(t, store.Repositories().Catalog.Kind(s.kind).Create(ctx, item))
		env.catalog[s.name] = *item
	}
	return env
}

type apiResponse struct {
	Status int
	Body   map[string]any
	Header http.Header
}

func (r apiResponse) data() map[string]any {
	m, _ := r.Body["data"].(map[string]any)
	return m
}

func (r apiResponse) list() []any {
	l, _ := r.Body["data"].([]any)
	return l
}

func (e *testEnv) do(method, path, token string, body any) apiResponse {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.App.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	out := apiResponse{Status: resp.StatusCode, Header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

// register creates an account and returns its id and bearer token.
func (e *testEnv) register(username string) (string, string) {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "pizza123",
	})
	require.Equal(e.t, http.StatusCreated, resp.Status, resp.Body)
	user := resp.data()["user"].(map[string]any)
	return user["id"].(string), resp.data()["token"].(string)
}

func (e *testEnv) admin(username string) string {
	e.t.Helper()
	id, token := e.register(username)
	ctx := context.Background()
	user, err := e.store.Repositories().Users.GetByID(ctx, id)
	require.NoError(e.t, err)
	user.IsAdmin = true
	require.NoError(e.t, e.store.Repositories().Users.Update(ctx, user))
	return token
}

func (e *testEnv) orderBody(address string) map[string]any {
	return map[string]any{
		"delivery_address": address,
		"contact_number":   "+44 20 7946 0000",
		"items": []map[string]any{{
			"pizza": map[string]any{
				"base_id":     e.catalog["Thin Crust"].ID,
				"sauce_id":    e.catalog["Tomato"].ID,
				"cheese_id":   e.catalog["Mozzarella"].ID,
				"topping_ids": []string{e.catalog["Basil"].ID},
			},
			"price":    250,
			"quantity": 1,
		}},
	}
}

func TestRegisterLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/register", "", map[string]any{
		"username": "dana", "email": "dana@example.com", "password": "pizza123",
	})
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "pizza_session=")
	assert.Contains(t, strings.ToLower(resp.Header.Get("Set-Cookie")), "httponly")

	dup := env.do(http.MethodPost, "/api/register", "", map[string]any{
		"username": "dana", "email": "dana2@example.com", "password": "pizza123",
	})
	assert.Equal(t, http.StatusConflict, dup.Status)
	assert.NotEmpty(t, dup.Body["message"])

	login := env.do(http.MethodPost, "/api/login", "", map[string]any{"email": "dana@example.com", "password": "pizza123"})
	require.Equal(t, http.StatusOK, login.Status)
	token := login.data()["token"].(string)

	me := env.do(http.MethodGet, "/api/user", token, nil)
	require.Equal(t, http.StatusOK, me.Status)
	assert.Equal(t, "dana", me.data()["username"])
	assert.NotContains(t, me.data(), "password")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/logout", token, nil).Status)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/user", token, nil).Status)
}

func TestValidationErrorsCarryFields(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/register", "", map[string]any{"username": "ab", "email": "nope", "password": "123"})
	require.Equal(t, http.StatusBadRequest, resp.Status)
	fields := resp.Body["errors"].(map[string]any)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	_, token := env.register("erin")
	resp = env.do(http.MethodPost, "/api/orders", token, env.orderBody("short"))
	require.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_FAILED", resp.Body["code"])
	assert.Contains(t, resp.Body["errors"].(map[string]any), "delivery_address")

	body := env.orderBody("221B Baker Street, London")
	body["items"].([]map[string]any)[0]["quantity"] = 0
	resp = env.do(http.MethodPost, "/api/orders", token, body)
	require.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.Body["errors"].(map[string]any), "items[0].quantity")
}

func TestAccessControl(t *testing.T) {
	env := newTestEnv(t)
	_, customer := env.register("fay")

	resp := env.do(http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "UNAUTHORIZED", resp.Body["code"])

	resp = env.do(http.MethodGet, "/api/admin/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.NotEmpty(t, resp.Body["message"])

	admin := env.admin("gus")
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/admin/orders", admin, nil).Status)

	resp = env.do(http.MethodGet, "/api/does-not-exist", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.NotEmpty(t, resp.Body["message"])
}

func TestCatalogVisibility(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/pizza-toppings", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, resp.list(), 1)

	admin := env.admin("hana")
	resp = env.do(http.MethodGet, "/api/pizza-toppings", admin, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, resp.list(), 2)

	resp = env.do(http.MethodPatch, "/api/admin/inventory/toppings/"+env.catalog["Truffle"].ID, admin, map[string]any{"stock": 3})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 3, resp.data()["stock"])

	resp = env.do(http.MethodGet, "/api/admin/inventory/low-stock", admin, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, resp.list(), 1)
}

func TestOrderPromotionPaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	admin := env.admin("ivan")
	_, customer := env.register("jill")

	now := time.Now().UTC()
	resp := env.do(http.MethodPost, "/api/admin/promotions", admin, map[string]any{
		"code":           "save10",
		"discount_type":  "percentage",
		"discount_value": 10,
		"max_uses":       5,
		"start_date":     now.Add(-time.Hour),
		"end_date":       now.Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	assert.Equal(t, "SAVE10", resp.data()["code"])

	resp = env.do(http.MethodPost, "/api/orders", customer, env.orderBody("221B Baker Street, London"))
	require.Equal(t, http.StatusCreated, resp.Status, resp.Body)
	order := resp.data()["order"].(map[string]any)
	orderID := order["id"].(string)
	assert.Equal(t, "pending", order["status"])
	assert.EqualValues(t, 250, order["total_amount"])

	resp = env.do(http.MethodPost, "/api/orders/"+orderID+"/apply-promotion", customer, map[string]any{"code": "SAVE10"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.EqualValues(t, 225, resp.data()["final_amount"])

	resp = env.do(http.MethodPost, "/api/process-payment", customer, map[string]any{"order_id": orderID})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.EqualValues(t, 22, resp.data()["points_earned"])
	assert.Equal(t, "received", resp.data()["order"].(map[string]any)["status"])

	resp = env.do(http.MethodPost, "/api/process-payment", customer, map[string]any{"order_id": orderID})
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp = env.do(http.MethodGet, "/api/loyalty-points", customer, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 22, resp.data()["points"])

	resp = env.do(http.MethodPatch, "/api/admin/orders/"+orderID+"/status", admin, map[string]any{"status": "delivered"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Body)
	assert.NotNil(t, resp.data()["actual_delivery_time"])

	resp = env.do(http.MethodGet, "/api/notifications", customer, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.GreaterOrEqual(t, len(resp.list()), 3)
}

func TestWebhookRequiresSignature(t *testing.T) {
	env := newTestEnv(t)
	_, customer := env.register("kim")
	resp := env.do(http.MethodPost, "/api/orders", customer, env.orderBody("221B Baker Street, London"))
	require.Equal(t, http.StatusCreated, resp.Status)
	orderID := resp.data()["order"].(map[string]any)["id"].(string)

	payload, err := json.Marshal(map[string]any{
		"event": service.WebhookPaymentCaptured,
		"payload": map[string]any{"payment": map[string]any{"entity": map[string]any{
			"id":    "pay_webhook",
			"notes": map[string]string{"order_id": orderID},
		}}},
	})
	require.NoError(t, err)

	send := func(signature string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/razorpay-webhook", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Razorpay-Signature", signature)
		res, err := env.srv.App.Test(req, -1)
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, send("bogus"))
	assert.Equal(t, http.StatusOK, send(service.SignWebhook(webhookSecret, payload)))

	resp = env.do(http.MethodGet, "/api/orders/"+orderID, customer, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "completed", resp.data()["payment_status"])
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	deps := resp.Body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["memory"])
	assert.Equal(t, "disabled", deps["redis"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res, err := env.srv.App.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(raw), "pizzeria_http_requests_total")
}

func TestNotificationStreamPushesOrderEvents(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.register("lena")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/ws/notifications", "", nil).Status)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.srv.App.Listener(ln) }()
	t.Cleanup(func() { _ = env.srv.App.Shutdown() })

	url := "ws://" + ln.Addr().String() + "/api/ws/notifications?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.srv.Registry.Count(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := env.do(http.MethodPost, "/api/orders", token, env.orderBody("221B Baker Street, London"))
	require.Equal(t, http.StatusCreated, resp.Status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg struct {
		Type string              `json:"type"`
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, domain.NotificationOrderCreated, msg.Data.Type)
	assert.Equal(t, userID, msg.Data.UserID)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.srv.Registry.Count(userID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
