package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/erazemk/noleggio/internal/auth"
	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/db"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/objects"
	"github.com/erazemk/noleggio/internal/ratelimit"
	"github.com/erazemk/noleggio/internal/realtime"
	"github.com/erazemk/noleggio/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *db.DB
	hub    *realtime.LocalHub
	issuer *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiters(t, nil, nil)
}

func newTestEnvWithLimiters(t *testing.T, login, contact *ratelimit.Limiter) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	hub := realtime.NewLocalHub()
	issuer := auth.NewIssuer(testJWTSecret, time.Hour)

	svc := catalog.NewService(&store.Catalog{DB: database}, objects.NewDBStore(database, "http://noleggio.test"))
	router := NewRouter(Deps{DB: database, Catalog: svc, Hub: hub, Issuer: issuer,
		Limiter: login, ContactLimiter: contact})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: database, hub: hub, issuer: issuer}
}

// login creates a user with the given role and returns a token for it.
func (e *testEnv) login(t *testing.T, username, role string) string {
	t.Helper()
	ctx := context.Background()
	hash, _ := auth.HashPassword("password")
	if _, err := store.CreateUser(ctx, e.db, username, hash, role); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(e.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader io.Reader = bytes.NewReader(nil)
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// formRequest builds a multipart catalog form, with an image when img is not nil.
func formRequest(t *testing.T, method, url, token string, fields map[string]string, img []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if img != nil {
		fw, err := mw.CreateFormFile("image", "palco.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(img)
	}
	mw.Close()

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := range 8 {
		for y := range 8 {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func do(t *testing.T, req *http.Request, wantStatus int, target any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", req.Method, req.URL.Path, wantStatus, resp.StatusCode, body)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "admin", model.RoleAdmin)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)

	req, _ := authRequest("POST", env.server.URL+"/api/auth/logout", token, nil)
	do(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", env.server.URL+"/api/account", token, nil)
	do(t, req, http.StatusUnauthorized, nil)
}

func TestAccountProfileAndPassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "mrossi", model.RoleUser)

	var user model.User
	req, _ := authRequest("PUT", env.server.URL+"/api/account", token, map[string]string{"full_name": "Mario Rossi"})
	do(t, req, http.StatusOK, &user)
	if user.FullName != "Mario Rossi" {
		t.Errorf("expected full name to be saved, got %q", user.FullName)
	}

	req, _ = authRequest("PUT", env.server.URL+"/api/auth/password", token, map[string]string{
		"current_password": "password",
		"new_password":     "short",
	})
	do(t, req, http.StatusBadRequest, nil)

	req, _ = authRequest("PUT", env.server.URL+"/api/auth/password", token, map[string]string{
		"current_password": "password",
		"new_password":     "una-password-lunga",
	})
	do(t, req, http.StatusOK, nil)
}

func TestCatalogAPIFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)
	base := env.server.URL + "/api/catalog/portfolio"

	// Create with an image.
	var created submitResponse
	do(t, formRequest(t, "POST", base, token, map[string]string{
		"title":       "Festival estivo",
		"description": "Palco principale",
		"category":    "AUDIO",
	}, testPNG(t)), http.StatusCreated, &created)

	item := created.Item
	if item == nil || item.ID == "" {
		t.Fatalf("expected created item, got %+v", created)
	}
	if !item.HasImage() || !catalog.IsManagedURL(item.Image()) {
		t.Fatalf("expected managed image url, got %q", item.Image())
	}
	name, _ := catalog.ObjectNameFromURL(item.Image())
	obj, _ := store.GetObject(context.Background(), env.db, objects.Bucket, name)
	if obj == nil {
		t.Fatalf("expected object %q to be stored", name)
	}

	// List and search.
	var list listResponse
	req, _ := authRequest("GET", base+"?q=PALCO", token, nil)
	do(t, req, http.StatusOK, &list)
	if len(list.Items) != 1 || list.Total != 1 {
		t.Fatalf("expected 1 item, got %+v", list)
	}
	req, _ = authRequest("GET", base+"?q=nothing", token, nil)
	do(t, req, http.StatusOK, &list)
	if len(list.Items) != 0 || list.Total != 1 {
		t.Errorf("expected search to filter locally, got %+v", list)
	}

	// Update only the title; the image is kept.
	var updated submitResponse
	do(t, formRequest(t, "PUT", base+"/"+item.ID, token, map[string]string{"title": "Festival d'estate"}, nil),
		http.StatusOK, &updated)
	if updated.Item.Title != "Festival d'estate" || updated.Item.Category != "AUDIO" {
		t.Errorf("unexpected update result %+v", updated.Item)
	}
	if updated.Item.Image() != item.Image() {
		t.Errorf("expected image to be kept, got %q", updated.Item.Image())
	}

	var got model.CatalogItem
	req, _ = authRequest("GET", base+"/"+item.ID, token, nil)
	do(t, req, http.StatusOK, &got)
	if got.Title != "Festival d'estate" {
		t.Errorf("expected stored title to change, got %q", got.Title)
	}

	// Delete removes the row and the image.
	req, _ = authRequest("DELETE", base+"/"+item.ID, token, nil)
	do(t, req, http.StatusOK, nil)
	req, _ = authRequest("GET", base+"/"+item.ID, token, nil)
	do(t, req, http.StatusNotFound, nil)

	obj, _ = store.GetObject(context.Background(), env.db, objects.Bucket, name)
	if obj != nil {
		t.Error("expected image object to be removed")
	}

	// Inventory items carry their price on the admin and public endpoints.
	inv := env.server.URL + "/api/catalog/inventario"
	do(t, formRequest(t, "POST", inv, token, map[string]string{
		"title":    "RCF HDL 20",
		"category": "Diffusori Audio",
		"location": model.LocationRoma,
		"stock":    "6",
		"status":   model.StatusAvailable,
	}, nil), http.StatusCreated, &created)
	productID := created.Item.ID
	price := decimal.RequireFromString("25.50")
	if err := store.SetProductPrice(context.Background(), env.db, productID, price); err != nil {
		t.Fatalf("SetProductPrice: %v", err)
	}

	var product model.CatalogItem
	req, _ = authRequest("GET", inv+"/"+productID, token, nil)
	do(t, req, http.StatusOK, &product)
	if product.Price == nil || !product.Price.Equal(price) {
		t.Errorf("expected price 25.50, got %v", product.Price)
	}

	var public listResponse
	req, _ = http.NewRequest("GET", env.server.URL+"/api/public/products", nil)
	do(t, req, http.StatusOK, &public)
	if len(public.Items) != 1 || public.Items[0].Price == nil || !public.Items[0].Price.Equal(price) {
		t.Fatalf("expected public product with price 25.50, got %+v", public.Items)
	}

	// Editing through the form leaves the price alone.
	do(t, formRequest(t, "PUT", inv+"/"+productID, token, map[string]string{"stock": "4"}, nil),
		http.StatusOK, &updated)
	if updated.Item.Price == nil || !updated.Item.Price.Equal(price) {
		t.Errorf("expected update response to keep price, got %v", updated.Item.Price)
	}
	req, _ = authRequest("GET", inv+"/"+productID, token, nil)
	do(t, req, http.StatusOK, &product)
	if product.Stock != 4 || product.Price == nil || !product.Price.Equal(price) {
		t.Errorf("expected stock 4 and price 25.50 after edit, got %d / %v", product.Stock, product.Price)
	}
}

func TestCatalogInventoryAndCategories(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)
	base := env.server.URL + "/api/catalog/inventario"

	for _, f := range []map[string]string{
		{"title": "RCF Sub 8006", "category": "Diffusori Audio", "stock": "4"},
		{"title": "Shure SM58", "category": "Microfoni & Wireless", "stock": "12", "location": "Chiarano"},
	} {
		do(t, formRequest(t, "POST", base, token, f, nil), http.StatusCreated, nil)
	}

	var sum catalog.CategorySummary
	req, _ := authRequest("GET", env.server.URL+"/api/categories", token, nil)
	do(t, req, http.StatusOK, &sum)
	if sum.TotalItems != 2 || sum.TotalPieces != 16 {
		t.Errorf("unexpected totals %+v", sum)
	}
	if len(sum.Categories) != len(model.InventoryCategories) {
		t.Errorf("expected every category, got %d", len(sum.Categories))
	}

	var stats model.DashboardStats
	req, _ = authRequest("GET", env.server.URL+"/api/stats", token, nil)
	do(t, req, http.StatusOK, &stats)
	if stats.InventoryCount != 2 || stats.TotalInventoryPieces != 16 {
		t.Errorf("unexpected stats %+v", stats)
	}

	var list listResponse
	req, _ = authRequest("GET", base+"?category=Diffusori+Audio", token, nil)
	do(t, req, http.StatusOK, &list)
	if len(list.Items) != 1 || list.Items[0].Location != model.LocationRoma {
		t.Errorf("expected one item in Roma, got %+v", list.Items)
	}

	// The public listing needs no token.
	resp, err := http.Get(env.server.URL + "/api/public/products")
	if err != nil {
		t.Fatalf("public products: %v", err)
	}
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(list.Items) != 2 {
		t.Errorf("expected 2 public products, got %d (%d)", len(list.Items), resp.StatusCode)
	}
}

func TestCatalogValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)

	do(t, formRequest(t, "POST", env.server.URL+"/api/catalog/inventario", token,
		map[string]string{"title": " ", "category": "Diffusori Audio"}, nil), http.StatusBadRequest, nil)
	do(t, formRequest(t, "POST", env.server.URL+"/api/catalog/inventario", token,
		map[string]string{"title": "Cassa", "stock": "-1"}, nil), http.StatusBadRequest, nil)
	do(t, formRequest(t, "POST", env.server.URL+"/api/catalog/noleggi", token,
		map[string]string{"title": "Cassa"}, nil), http.StatusNotFound, nil)
	do(t, formRequest(t, "PUT", env.server.URL+"/api/catalog/portfolio/missing", token,
		map[string]string{"title": "Cassa"}, nil), http.StatusNotFound, nil)
}

func TestCatalogMissingTable(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)
	if _, err := env.db.ExecContext(context.Background(), "DROP TABLE products"); err != nil {
		t.Fatalf("dropping table: %v", err)
	}

	var resp fetchErrorResponse
	req, _ := authRequest("GET", env.server.URL+"/api/catalog/inventario", token, nil)
	do(t, req, http.StatusServiceUnavailable, &resp)
	if resp.Code != "missing_table" {
		t.Errorf("expected missing_table, got %+v", resp)
	}

	// Stats treat the missing table as empty.
	req, _ = authRequest("GET", env.server.URL+"/api/stats", token, nil)
	do(t, req, http.StatusOK, nil)
}

func TestContactMessages(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)

	sub, err := env.hub.Subscribe(context.Background(), store.MessagesTable, realtime.EventInsert)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	body, _ := json.Marshal(map[string]string{
		"name":       "Giulia",
		"email":      "giulia@example.com",
		"event_type": "Matrimonio",
		"message":    "Servono due casse e un mixer.",
	})
	resp, err := http.Post(env.server.URL+"/api/contact", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("contact: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	select {
	case c := <-sub.C():
		if c.Event != realtime.EventInsert {
			t.Errorf("expected INSERT, got %s", c.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime notification for the new message")
	}

	var list messagesResponse
	req, _ := authRequest("GET", env.server.URL+"/api/messages", token, nil)
	do(t, req, http.StatusOK, &list)
	if len(list.Messages) != 1 || list.Unread != 1 {
		t.Fatalf("expected one unread message, got %+v", list)
	}
	id := list.Messages[0].ID

	req, _ = authRequest("PUT", env.server.URL+"/api/messages/"+id+"/read", token, nil)
	do(t, req, http.StatusOK, nil)
	req, _ = authRequest("GET", env.server.URL+"/api/messages", token, nil)
	do(t, req, http.StatusOK, &list)
	if list.Unread != 0 {
		t.Errorf("expected no unread messages, got %d", list.Unread)
	}

	req, _ = authRequest("DELETE", env.server.URL+"/api/messages/"+id, token, nil)
	do(t, req, http.StatusOK, nil)
	req, _ = authRequest("DELETE", env.server.URL+"/api/messages/"+id, token, nil)
	do(t, req, http.StatusNotFound, nil)

	// Invalid email is rejected.
	body, _ = json.Marshal(map[string]string{"name": "X", "email": "nope", "message": "ciao"})
	resp, _ = http.Post(env.server.URL+"/api/contact", "application/json", bytes.NewReader(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid email, got %d", resp.StatusCode)
	}
}

// TestContactThrottled runs against a real server when NOLEGGIO_TEST_REDIS is set.
func TestContactThrottled(t *testing.T) {
	addr := os.Getenv("NOLEGGIO_TEST_REDIS")
	if addr == "" {
		t.Skip("NOLEGGIO_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	prefix := "test:" + uuid.NewString()
	login := ratelimit.New(client, prefix+":login:", ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	contact := ratelimit.New(client, prefix+":contact:", ratelimit.ContactLimit, ratelimit.ContactWindow)
	env := newTestEnvWithLimiters(t, login, contact)

	body, _ := json.Marshal(map[string]string{
		"name":    "Giulia",
		"email":   "giulia@example.com",
		"message": "Preventivo per un concerto.",
	})
	var codes []int
	for range ratelimit.ContactLimit + 1 {
		resp, err := http.Post(env.server.URL+"/api/contact", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("contact: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	for i, code := range codes[:ratelimit.ContactLimit] {
		if code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, code)
		}
	}
	if last := codes[ratelimit.ContactLimit]; last != http.StatusTooManyRequests {
		t.Errorf("expected 429 once over the limit, got %d", last)
	}

	// The login counter is separate.
	env.login(t, "admin", model.RoleAdmin)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)

	var sys model.SystemSettings
	req, _ := authRequest("GET", env.server.URL+"/api/settings/system", token, nil)
	do(t, req, http.StatusOK, &sys)
	if sys.BackupFrequency != "daily" || !sys.NotificationsEmail {
		t.Errorf("expected defaults, got %+v", sys)
	}

	sys.BackupFrequency = "hourly"
	req, _ = authRequest("PUT", env.server.URL+"/api/settings/system", token, sys)
	do(t, req, http.StatusBadRequest, nil)

	req, _ = authRequest("PUT", env.server.URL+"/api/settings/company", token, model.CompanySettings{
		CompanyName: "QuattroSound",
		Email:       "info@quattrosound.it",
	})
	do(t, req, http.StatusOK, nil)

	var company model.CompanySettings
	req, _ = authRequest("GET", env.server.URL+"/api/settings/company", token, nil)
	do(t, req, http.StatusOK, &company)
	if company.CompanyName != "QuattroSound" {
		t.Errorf("expected company name to be saved, got %+v", company)
	}
}

func TestUsersFilter(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", model.RoleAdmin)

	req, _ := authRequest("POST", env.server.URL+"/api/users", token, map[string]string{
		"username":  "lbianchi",
		"full_name": "Laura Bianchi",
		"password":  "password123",
		"role":      model.RoleManager,
	})
	do(t, req, http.StatusCreated, nil)

	var users []model.User
	req, _ = authRequest("GET", env.server.URL+"/api/users?q=bianchi", token, nil)
	do(t, req, http.StatusOK, &users)
	if len(users) != 1 || users[0].FullName != "Laura Bianchi" {
		t.Errorf("expected only Laura Bianchi, got %+v", users)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := http.Get(env.server.URL + "/api/catalog/inventario")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.login(t, "user1", model.RoleUser)

	// Regular users can read but not write the catalog.
	req, _ := authRequest("GET", env.server.URL+"/api/catalog/inventario", userToken, nil)
	do(t, req, http.StatusOK, nil)
	do(t, formRequest(t, "POST", env.server.URL+"/api/catalog/inventario", userToken,
		map[string]string{"title": "Test"}, nil), http.StatusForbidden, nil)

	// Regular user should not access /api/users.
	req, _ = authRequest("GET", env.server.URL+"/api/users", userToken, nil)
	do(t, req, http.StatusForbidden, nil)
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
