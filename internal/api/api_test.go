package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/auth"
	"github.com/erazemk/resale/internal/db"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewHandler(database, testJWTSecret, nil))
	t.Cleanup(server.Close)
	return &testEnv{server: server, db: database}
}

// account creates a user with the given role and returns its id and token.
func (e *testEnv) account(t *testing.T, email, role, location string) (int64, string) {
	t.Helper()
	hash, _ := auth.HashPassword("password1")
	user, err := store.CreateUser(context.Background(), e.db, email, email, hash, role, location)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	resp := e.do(t, "POST", "/api/auth/login", "", model.Credentials{Email: email, Password: "password1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}
	var login model.AuthResponse
	json.NewDecoder(resp.Body).Decode(&login)
	if login.Token == "" {
		t.Fatal("empty token from login")
	}
	return user.ID, login.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// expect checks the status and decodes the body into out when non-nil.
func (e *testEnv) expect(t *testing.T, status int, out any, method, path, token string, body any) {
	t.Helper()
	resp := e.do(t, method, path, token, body)
	defer resp.Body.Close()
	if resp.StatusCode != status {
		var msg map[string]string
		json.NewDecoder(resp.Body).Decode(&msg)
		t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, status, resp.StatusCode, msg["error"])
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.account(t, "admin@example.com", model.RoleAdmin, "")

	resp := env.do(t, "POST", "/api/auth/login", "", model.Credentials{Email: "admin@example.com", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	var login model.AuthResponse
	env.expect(t, http.StatusOK, &login, "POST", "/api/auth/login", "",
		model.Credentials{Email: "ADMIN@example.com", Password: "password1"})
	if login.User == nil || login.User.Role != model.RoleAdmin {
		t.Errorf("expected user snapshot in login response, got %+v", login.User)
	}
}

func TestRegister(t *testing.T) {
	env := setupTestServer(t)

	var msg map[string]string
	env.expect(t, http.StatusCreated, &msg, "POST", "/api/auth/register", "",
		model.Registration{Name: "Ana", Email: "ana@example.com", Password: "longenough"})
	if msg["message"] == "" {
		t.Error("expected a message")
	}

	env.expect(t, http.StatusConflict, nil, "POST", "/api/auth/register", "",
		model.Registration{Name: "Ana", Email: "ana@example.com", Password: "longenough"})
	env.expect(t, http.StatusBadRequest, nil, "POST", "/api/auth/register", "",
		model.Registration{Name: "Bo", Email: "bo@example.com", Password: "short"})
	env.expect(t, http.StatusForbidden, nil, "POST", "/api/auth/register", "",
		model.Registration{Name: "Eve", Email: "eve@example.com", Password: "longenough", Role: model.RoleAdmin})
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)
	_, token := env.account(t, "c@example.com", model.RoleCustomer, "")

	env.expect(t, http.StatusOK, nil, "GET", "/api/orders", token, nil)
	env.expect(t, http.StatusOK, nil, "POST", "/api/auth/logout", token, nil)
	env.expect(t, http.StatusUnauthorized, nil, "GET", "/api/orders", token, nil)
}

func TestRequestIDEchoed(t *testing.T) {
	env := setupTestServer(t)

	req, _ := http.NewRequest("GET", env.server.URL+"/api/items", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected request id echoed, got %q", got)
	}

	resp = env.do(t, "GET", "/api/items", "", nil)
	resp.Body.Close()
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestServer(t)
	partnerID, partner := env.account(t, "p@example.com", model.RolePartner, "Austin, TX")
	_, other := env.account(t, "p2@example.com", model.RolePartner, "Miami, FL")
	_, customer := env.account(t, "c@example.com", model.RoleCustomer, "")

	body := map[string]any{"name": "Espresso Machine", "price": 120, "originalPrice": 300, "qty": 2, "condition": "open-box", "category": "Home"}
	env.expect(t, http.StatusForbidden, nil, "POST", "/api/items", customer, body)

	var item model.Item
	env.expect(t, http.StatusCreated, &item, "POST", "/api/items", partner, body)
	if item.PartnerID != partnerID || item.Location != "Austin, TX" || item.Quantity != 2 {
		t.Errorf("unexpected item: %+v", item)
	}

	env.expect(t, http.StatusBadRequest, nil, "POST", "/api/items", partner,
		map[string]any{"name": "Overpriced", "price": 50, "originalPrice": 40})

	var items []model.Item
	env.expect(t, http.StatusOK, &items, "GET", "/api/items?condition=open-box&maxPrice=150", "", nil)
	if len(items) != 1 {
		t.Errorf("expected 1 filtered item, got %d", len(items))
	}
	env.expect(t, http.StatusOK, &items, "GET", "/api/items?minPrice=200", "", nil)
	if len(items) != 0 {
		t.Errorf("expected no items above 200, got %d", len(items))
	}

	path := "/api/items/" + itoa(item.ID)
	env.expect(t, http.StatusForbidden, nil, "PUT", path, other, map[string]any{"price": 100})

	var updated model.Item
	env.expect(t, http.StatusOK, &updated, "PUT", path, partner, map[string]any{"price": 99.5})
	if !updated.Price.Equal(decimal.RequireFromString("99.5")) || updated.Name != "Espresso Machine" {
		t.Errorf("partial update not applied: %+v", updated)
	}

	env.expect(t, http.StatusOK, nil, "DELETE", path, partner, nil)
	env.expect(t, http.StatusNotFound, nil, "GET", path, "", nil)
}

func TestItemImageUpload(t *testing.T) {
	env := setupTestServer(t)
	_, partner := env.account(t, "p@example.com", model.RolePartner, "")

	var item model.Item
	env.expect(t, http.StatusCreated, &item, "POST", "/api/items", partner, map[string]any{"name": "Lamp", "price": 10, "qty": 1})

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	png.Encode(&buf, img)

	req, _ := http.NewRequest("PUT", env.server.URL+"/api/items/"+itoa(item.ID)+"/image", &buf)
	req.Header.Set("Authorization", "Bearer "+partner)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", resp.StatusCode)
	}

	resp = env.do(t, "GET", "/api/items/"+itoa(item.ID)+"/image", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected stored JPEG, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

// placeOrder lists one item for partner and has customer buy qty of it.
func placeOrder(t *testing.T, env *testEnv, partner, customer string, stock, qty int) (model.Item, model.Order) {
	t.Helper()
	var item model.Item
	env.expect(t, http.StatusCreated, &item, "POST", "/api/items", partner,
		map[string]any{"name": "Jacket", "price": 40, "originalPrice": 90, "qty": stock})

	var order model.Order
	env.expect(t, http.StatusCreated, &order, "POST", "/api/orders", customer, model.OrderRequest{
		Items:           []model.OrderRequestLine{{ItemID: item.ID, Qty: qty}},
		ShippingAddress: "1 Main St",
	})
	return item, order
}

func TestOrderLifecycle(t *testing.T) {
	env := setupTestServer(t)
	_, partner := env.account(t, "p@example.com", model.RolePartner, "")
	_, customer := env.account(t, "c@example.com", model.RoleCustomer, "")
	_, stranger := env.account(t, "s@example.com", model.RoleCustomer, "")
	_, admin := env.account(t, "a@example.com", model.RoleAdmin, "")

	item, order := placeOrder(t, env, partner, customer, 3, 2)
	if order.Status != model.OrderPlaced || !order.TotalAmount.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected order: %+v", order)
	}

	env.expect(t, http.StatusConflict, nil, "POST", "/api/orders", customer, model.OrderRequest{
		Items: []model.OrderRequestLine{{ItemID: item.ID, Qty: 2}},
	})
	env.expect(t, http.StatusForbidden, nil, "POST", "/api/orders", partner, model.OrderRequest{
		Items: []model.OrderRequestLine{{ItemID: item.ID, Qty: 1}},
	})

	base := "/api/orders/" + itoa(order.ID)
	env.expect(t, http.StatusNotFound, nil, "GET", base, stranger, nil)
	env.expect(t, http.StatusForbidden, nil, "PUT", base+"/ship", customer, nil)
	env.expect(t, http.StatusConflict, nil, "PUT", base+"/deliver", partner, nil)

	var got model.Order
	env.expect(t, http.StatusOK, &got, "PUT", base+"/ship", partner, nil)
	if got.Status != model.OrderShipped {
		t.Errorf("expected shipped, got %q", got.Status)
	}
	env.expect(t, http.StatusConflict, nil, "PUT", base+"/cancel", customer, nil)
	env.expect(t, http.StatusOK, &got, "PUT", base+"/deliver", admin, nil)
	env.expect(t, http.StatusOK, &got, "PUT", base+"/returned", partner, nil)
	if got.Status != model.OrderReturned {
		t.Errorf("expected returned, got %q", got.Status)
	}
	env.expect(t, http.StatusConflict, nil, "PUT", base+"/ship", admin, nil)

	var orders []model.Order
	env.expect(t, http.StatusOK, &orders, "GET", "/api/orders", stranger, nil)
	if len(orders) != 0 {
		t.Errorf("expected no orders for stranger, got %d", len(orders))
	}
	env.expect(t, http.StatusOK, &orders, "GET", "/api/orders", partner, nil)
	if len(orders) != 1 {
		t.Errorf("expected partner to see 1 order, got %d", len(orders))
	}
}

func TestCancelRestocks(t *testing.T) {
	env := setupTestServer(t)
	_, partner := env.account(t, "p@example.com", model.RolePartner, "")
	_, customer := env.account(t, "c@example.com", model.RoleCustomer, "")
	_, admin := env.account(t, "a@example.com", model.RoleAdmin, "")

	item, order := placeOrder(t, env, partner, customer, 3, 3)
	base := "/api/orders/" + itoa(order.ID)

	env.expect(t, http.StatusForbidden, nil, "PUT", base+"/cancel", admin, nil)
	env.expect(t, http.StatusOK, nil, "PUT", base, admin, map[string]string{"shippingAddress": "2 Side St"})
	env.expect(t, http.StatusOK, nil, "PUT", base+"/cancel", customer, nil)

	var after model.Item
	env.expect(t, http.StatusOK, &after, "GET", "/api/items/"+itoa(item.ID), "", nil)
	if after.Quantity != 3 {
		t.Errorf("expected stock restored to 3, got %d", after.Quantity)
	}
}

func TestReturnsFlow(t *testing.T) {
	env := setupTestServer(t)
	_, partner := env.account(t, "p@example.com", model.RolePartner, "")
	_, other := env.account(t, "p2@example.com", model.RolePartner, "")
	_, customer := env.account(t, "c@example.com", model.RoleCustomer, "")

	item, order := placeOrder(t, env, partner, customer, 2, 2)
	req := model.ReturnRequest{OrderID: order.ID, ItemID: item.ID, Reason: "too small", Condition: model.ConditionLikeNew}

	env.expect(t, http.StatusConflict, nil, "POST", "/api/returns", customer, req)

	base := "/api/orders/" + itoa(order.ID)
	env.expect(t, http.StatusOK, nil, "PUT", base+"/ship", partner, nil)
	env.expect(t, http.StatusOK, nil, "PUT", base+"/deliver", partner, nil)

	var ret model.Return
	env.expect(t, http.StatusCreated, &ret, "POST", "/api/returns", customer, req)
	if ret.Status != model.ReturnPending || len(ret.Items) != 1 || ret.Items[0].Quantity != 2 {
		t.Fatalf("unexpected return: %+v", ret)
	}
	env.expect(t, http.StatusConflict, nil, "POST", "/api/returns", customer, req)

	var pending []model.Return
	env.expect(t, http.StatusOK, &pending, "GET", "/api/returns/pending", partner, nil)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending return, got %d", len(pending))
	}
	env.expect(t, http.StatusOK, &pending, "GET", "/api/returns/pending", other, nil)
	if len(pending) != 0 {
		t.Errorf("expected other partner to see none, got %d", len(pending))
	}

	path := "/api/returns/" + itoa(ret.ID)
	env.expect(t, http.StatusForbidden, nil, "PUT", path+"/approve", customer, nil)
	env.expect(t, http.StatusNotFound, nil, "PUT", path+"/approve", other, nil)

	var approved model.Return
	env.expect(t, http.StatusOK, &approved, "PUT", path+"/approve", partner, nil)
	if approved.RefundAmount == nil || !approved.RefundAmount.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected default refund 80, got %v", approved.RefundAmount)
	}
	env.expect(t, http.StatusConflict, nil, "PUT", path+"/reject", partner, model.RejectRequest{Reason: "late"})
}

func TestRejectReturn(t *testing.T) {
	env := setupTestServer(t)
	_, partner := env.account(t, "p@example.com", model.RolePartner, "")
	_, customer := env.account(t, "c@example.com", model.RoleCustomer, "")
	_, admin := env.account(t, "a@example.com", model.RoleAdmin, "")

	item, order := placeOrder(t, env, partner, customer, 1, 1)
	base := "/api/orders/" + itoa(order.ID)
	env.expect(t, http.StatusOK, nil, "PUT", base+"/ship", partner, nil)
	env.expect(t, http.StatusOK, nil, "PUT", base+"/deliver", partner, nil)

	var ret model.Return
	env.expect(t, http.StatusCreated, &ret, "POST", "/api/returns", customer,
		model.ReturnRequest{OrderID: order.ID, ItemID: item.ID, Reason: "changed mind", Condition: model.ConditionNew})

	var rejected model.Return
	env.expect(t, http.StatusOK, &rejected, "PUT", "/api/returns/"+itoa(ret.ID)+"/reject", admin,
		model.RejectRequest{Reason: "outside window"})
	if rejected.Status != model.ReturnRejected || rejected.RejectReason != "outside window" || rejected.RefundAmount != nil {
		t.Errorf("unexpected rejection: %+v", rejected)
	}
}

func TestAdminUsersAPI(t *testing.T) {
	env := setupTestServer(t)
	adminID, admin := env.account(t, "a@example.com", model.RoleAdmin, "")
	_, customer := env.account(t, "c@example.com", model.RoleCustomer, "")

	env.expect(t, http.StatusForbidden, nil, "GET", "/api/admin/user", customer, nil)

	var created model.User
	env.expect(t, http.StatusCreated, &created, "POST", "/api/admin/user", admin, model.UserInput{
		Name: "Shop", Email: "shop@example.com", Password: "password9", Role: model.RolePartner, Location: "Denver, CO",
	})
	if created.Role != model.RolePartner {
		t.Errorf("expected partner, got %q", created.Role)
	}

	var partners []model.Partner
	env.expect(t, http.StatusOK, &partners, "GET", "/api/partners?location=Denver,%20CO", "", nil)
	if len(partners) != 1 || partners[0].Name != "Shop" {
		t.Errorf("expected the new partner listed, got %+v", partners)
	}

	path := "/api/admin/user/" + itoa(created.ID)
	var updated model.User
	env.expect(t, http.StatusOK, &updated, "PUT", path, admin, map[string]string{"name": "Shop Two"})
	if updated.Name != "Shop Two" || updated.Email != "shop@example.com" {
		t.Errorf("partial update not applied: %+v", updated)
	}

	env.expect(t, http.StatusBadRequest, nil, "DELETE", "/api/admin/user/"+itoa(adminID), admin, nil)
	env.expect(t, http.StatusOK, nil, "DELETE", path, admin, nil)
	env.expect(t, http.StatusNotFound, nil, "GET", path, admin, nil)

	var users []model.User
	env.expect(t, http.StatusOK, &users, "GET", "/api/admin/user", admin, nil)
	if len(users) != 2 {
		t.Errorf("expected 2 active users, got %d", len(users))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
