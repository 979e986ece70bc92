package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "jwt-shopper"

// backendMock is an in-memory shop: one user, one cart, a tiny catalog.
type backendMock struct {
	mu       sync.Mutex
	lines    map[string]domain.CartLine
	orders   []string
	placeErr error
	catErr   error

	user       backend.User
	password   string
	registered []backend.Registration
}

func newBackendMock() *backendMock {
	return &backendMock{
		lines: map[string]domain.CartLine{
			"1": {ProductID: "1", ProductName: "Green tea", UnitPrice: decimal.NewFromInt(1000), Quantity: 2},
			"2": {ProductID: "2", ProductName: "Black tea", UnitPrice: decimal.NewFromInt(500), Quantity: 1},
		},
		user: backend.User{UserID: "7", Email: "a@b.c", FirstName: "An", LastName: "Nguyen", MobileNumber: "0900"},
	}
}

func (b *backendMock) check(cred credentials.Credential) error {
	if cred.Token != testToken {
		return backend.ErrUnauthenticated
	}
	return nil
}

func (b *backendMock) GetCart(_ context.Context, cred credentials.Credential) (*domain.Cart, error) {
	if err := b.check(cred); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := &domain.Cart{}
	for _, l := range b.lines {
		cart.Lines = append(cart.Lines, l)
	}
	sort.Slice(cart.Lines, func(i, j int) bool { return cart.Lines[i].ProductID < cart.Lines[j].ProductID })
	return cart, nil
}

func (b *backendMock) AddItem(_ context.Context, cred credentials.Credential, productID string, qty int) error {
	if err := b.check(cred); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.lines[productID]
	l.ProductID = productID
	l.UnitPrice = decimal.NewFromInt(100)
	l.Quantity += qty
	b.lines[productID] = l
	return nil
}

func (b *backendMock) UpdateQuantity(_ context.Context, cred credentials.Credential, productID string, qty int) error {
	if err := b.check(cred); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.lines[productID]
	l.Quantity = qty
	b.lines[productID] = l
	return nil
}

func (b *backendMock) RemoveItem(_ context.Context, cred credentials.Credential, productID string) error {
	if err := b.check(cred); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lines, productID)
	return nil
}

func (b *backendMock) PlaceOrder(_ context.Context, cred credentials.Credential, _ domain.PaymentMethod, ids []string) (string, error) {
	if err := b.check(cred); err != nil {
		return "", err
	}
	if b.placeErr != nil {
		return "", b.placeErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, ids...)
	for _, id := range ids {
		delete(b.lines, id)
	}
	return "42", nil
}

func (b *backendMock) FinalizeOrder(_ context.Context, cred credentials.Credential, _, _ string) error {
	return b.check(cred)
}

func (b *backendMock) AskChat(context.Context, credentials.Credential, string, []backend.ChatTurn) (string, error) {
	return `Đã thêm vào giỏ hàng FORMAT_PRODUCT:{"id":1,"name":"Green tea","price":1000}`, nil
}

func (b *backendMock) Login(_ context.Context, email, password string) (backend.LoginResult, error) {
	if password != "secret" {
		return backend.LoginResult{}, backend.ErrUnauthenticated
	}
	return backend.LoginResult{Token: testToken, Email: email, Roles: []string{"ROLE_USER"}}, nil
}

func (b *backendMock) SearchProducts(_ context.Context, params backend.SearchParams) (backend.ProductPage, error) {
	if b.catErr != nil {
		return backend.ProductPage{}, b.catErr
	}
	return backend.ProductPage{
		Content:       []backend.Product{{ProductID: "1", ProductName: params.Keyword}},
		TotalPages:    1,
		TotalElements: params.PageSize,
	}, nil
}

func (b *backendMock) GetProduct(_ context.Context, id string) (*backend.Product, error) {
	if id != "1" {
		return nil, &backend.StatusError{Op: "get product", StatusCode: http.StatusNotFound}
	}
	return &backend.Product{ProductID: "1", ProductName: "Green tea"}, nil
}

func (b *backendMock) ListCategories(context.Context) ([]backend.Category, error) {
	if b.catErr != nil {
		return nil, b.catErr
	}
	return []backend.Category{{CategoryID: "1", CategoryName: "Tea"}}, nil
}

func (b *backendMock) ListOrders(_ context.Context, cred credentials.Credential) ([]backend.Order, error) {
	if err := b.check(cred); err != nil {
		return nil, err
	}
	return []backend.Order{{OrderID: "42", OrderStatus: "Accepted"}}, nil
}

func (b *backendMock) Register(_ context.Context, reg backend.Registration) error {
	if reg.Email == "taken@b.c" {
		return &backend.StatusError{Op: "register", StatusCode: http.StatusBadRequest, Body: "Email already in use"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = append(b.registered, reg)
	return nil
}

func (b *backendMock) GetUserByEmail(_ context.Context, cred credentials.Credential, email string) (*backend.User, error) {
	if err := b.check(cred); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if email != b.user.Email {
		return nil, &backend.StatusError{Op: "get user", StatusCode: http.StatusNotFound}
	}
	u := b.user
	return &u, nil
}

func (b *backendMock) UpdateUser(_ context.Context, cred credentials.Credential, userID string, update backend.UserUpdate) error {
	if err := b.check(cred); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if userID != b.user.UserID.String() {
		return &backend.StatusError{Op: "update user", StatusCode: http.StatusNotFound}
	}
	if update.Password != "" {
		b.password = update.Password
		return nil
	}
	if update.Email != b.user.Email {
		return &backend.StatusError{Op: "update user", StatusCode: http.StatusBadRequest, Body: "email is required"}
	}
	b.user.FirstName = update.FirstName
	b.user.LastName = update.LastName
	b.user.MobileNumber = update.MobileNumber
	return nil
}

func (b *backendMock) UploadAvatar(_ context.Context, cred credentials.Credential, userID string, image backend.File) error {
	if err := b.check(cred); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user.Image = userID + "-" + image.Name
	return nil
}

type paymentsMock struct{}

func (paymentsMock) RedirectURL(_ context.Context, amount decimal.Decimal, orderID string) (string, error) {
	return "https://pay.example/" + orderID + "?amount=" + amount.String(), nil
}

// browser replays the session cookie like a real one would.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (b *browser) do(method, target string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(b.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			b.cookie = c
		}
	}
	return rec
}

// upload posts a multipart form; a "image" field is sent as a file.
func (b *browser) upload(target string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(b.t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "avatar.png")
		require.NoError(b.t, err)
		_, err = part.Write(image)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	return rec
}

func (b *browser) login() {
	rec := b.do(http.MethodPost, "/api/login", LoginRequestDTO{Email: "a@b.c", Password: "secret"})
	require.Equal(b.t, http.StatusOK, rec.Code, rec.Body.String())
}

func setupRouter(t *testing.T) (*browser, *backendMock, *session.Manager) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	be := newBackendMock()
	sessions := session.NewManager(session.Deps{
		Backend:     be,
		Payments:    paymentsMock{},
		Credentials: credentials.NewRedisStore(client, time.Hour),
	}, session.Options{})
	t.Cleanup(sessions.Close)

	h := NewHandler(sessions, be, be, 5*time.Second, nil)
	return &browser{t: t, handler: NewRouter(h, nil, 10*time.Second)}, be, sessions
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	b, _, _ := setupRouter(t)
	rec := b.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, b.cookie, "health must not create sessions")
}

func TestGetCart_Unauthenticated(t *testing.T) {
	b, _, _ := setupRouter(t)

	rec := b.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, b.cookie)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "unauthenticated", resp.Code)
	require.NotNil(t, resp.Navigate)
	assert.Equal(t, "/login", resp.Navigate.Target)
}

func TestLogin_WrongPassword(t *testing.T) {
	b, _, _ := setupRouter(t)

	rec := b.do(http.MethodPost, "/api/login", LoginRequestDTO{Email: "a@b.c", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[ErrorResponse](t, rec).Code)
}

func TestCartFlow(t *testing.T) {
	b, _, _ := setupRouter(t)
	b.login()

	rec := b.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponse](t, rec)
	require.NotNil(t, resp.Cart)
	assert.Len(t, resp.Cart.Lines, 2)

	rec = b.do(http.MethodPost, "/api/cart/selection/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CartResponse](t, rec)
	assert.Equal(t, []string{"1"}, resp.Selected)
	assert.True(t, decimal.NewFromInt(2000).Equal(resp.SelectedTotal))

	rec = b.do(http.MethodPost, "/api/cart/items/1/quantity", UpdateQuantityRequestDTO{Delta: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CartResponse](t, rec)
	assert.True(t, decimal.NewFromInt(3000).Equal(resp.SelectedTotal))

	rec = b.do(http.MethodDelete, "/api/cart/items/1", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "cancelled", decode[ErrorResponse](t, rec).Code)

	rec = b.do(http.MethodDelete, "/api/cart/items/1?confirm=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CartResponse](t, rec)
	assert.Len(t, resp.Cart.Lines, 1)
	assert.Empty(t, resp.Selected)
}

func TestUpdateQuantity_ToZeroRejected(t *testing.T) {
	b, _, _ := setupRouter(t)
	b.login()
	b.do(http.MethodGet, "/api/cart", nil)

	rec := b.do(http.MethodPost, "/api/cart/items/2/quantity", UpdateQuantityRequestDTO{Delta: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decode[ErrorResponse](t, rec).Code)
}

func TestAddItem(t *testing.T) {
	b, be, _ := setupRouter(t)
	b.login()

	rec := b.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: "7"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, be.lines["7"].Quantity)
}

func TestCheckout_Cash(t *testing.T) {
	b, be, _ := setupRouter(t)
	b.login()
	b.do(http.MethodGet, "/api/cart", nil)
	b.do(http.MethodPut, "/api/cart/selection", SelectAllRequestDTO{All: true})

	rec := b.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{PaymentMethod: "cash"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CartResponse](t, rec)
	assert.True(t, resp.ShowSuccess)
	assert.Equal(t, domain.CheckoutStatusSucceeded, resp.Checkout.Status)
	assert.Empty(t, resp.Selected)
	assert.ElementsMatch(t, []string{"1", "2"}, be.orders)
	require.NotNil(t, resp.Cart)
	assert.Empty(t, resp.Cart.Lines, "ordered lines must leave the cart")
}

func TestCheckout_GatewayRedirectAndReturn(t *testing.T) {
	b, _, _ := setupRouter(t)
	b.login()
	b.do(http.MethodGet, "/api/cart", nil)
	b.do(http.MethodPost, "/api/cart/selection/2", nil)

	rec := b.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{PaymentMethod: "vnpay"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CartResponse](t, rec)
	require.NotNil(t, resp.Navigate)
	assert.Equal(t, session.NavigationRedirect, resp.Navigate.Kind)
	assert.Equal(t, "https://pay.example/42?amount=500", resp.Navigate.Target)
	assert.Equal(t, domain.CheckoutStatusAwaitingGatewayRedirect, resp.Checkout.Status)

	rec = b.do(http.MethodGet, "/cart/return?vnpay=success&orderId=42", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[CartResponse](t, rec)
	assert.Equal(t, domain.CheckoutStatusSucceeded, resp.Checkout.Status)
	assert.True(t, resp.ShowSuccess)
	require.NotNil(t, resp.Cart)
	require.Len(t, resp.Cart.Lines, 1)
	assert.Equal(t, "1", resp.Cart.Lines[0].ProductID)
}

func TestReturn_SuccessWithoutOrderID(t *testing.T) {
	b, _, _ := setupRouter(t)
	b.login()

	rec := b.do(http.MethodGet, "/cart/return?vnpay=success", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing is awaiting payment yet")

	b.do(http.MethodGet, "/api/cart", nil)
	b.do(http.MethodPost, "/api/cart/selection/1", nil)
	rec = b.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{PaymentMethod: "vnpay"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = b.do(http.MethodGet, "/cart/return?vnpay=success", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CartResponse](t, rec)
	assert.Equal(t, domain.CheckoutStatusSucceeded, resp.Checkout.Status)
	assert.Equal(t, "42", resp.Checkout.OrderID)
}

func TestReturn_Cancel(t *testing.T) {
	b, _, _ := setupRouter(t)
	b.login()

	rec := b.do(http.MethodGet, "/cart/return?outcome=cancel&orderId=42", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// notices go out with their kind spelled as text
	var resp struct {
		Checkout domain.CheckoutSession `json:"checkout"`
		Notice   *struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"notice"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.CheckoutStatusCancelled, resp.Checkout.Status)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, "cancelled", resp.Notice.Kind)
	assert.NotEmpty(t, resp.Notice.Message)
}

func TestReturn_UnknownOutcome(t *testing.T) {
	b, _, _ := setupRouter(t)
	rec := b.do(http.MethodGet, "/cart/return?outcome=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_Errors(t *testing.T) {
	b, be, _ := setupRouter(t)
	b.login()
	b.do(http.MethodGet, "/api/cart", nil)

	rec := b.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{PaymentMethod: "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payment_method", decode[ErrorResponse](t, rec).Code)

	rec = b.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{PaymentMethod: "cash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty selection")

	b.do(http.MethodPut, "/api/cart/selection", SelectAllRequestDTO{All: true})
	be.placeErr = errors.New("out of stock")
	rec = b.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{PaymentMethod: "cash"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "remote_failure", resp.Code)
	assert.NotEmpty(t, resp.Details)
}

func TestLogout(t *testing.T) {
	b, _, sessions := setupRouter(t)
	b.login()
	id := b.cookie.Value

	rec := b.do(http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := sessions.Get(id)
	assert.False(t, ok)
	assert.Equal(t, -1, b.cookie.MaxAge)
}

func TestBadge(t *testing.T) {
	b, _, _ := setupRouter(t)

	rec := b.do(http.MethodGet, "/api/badge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[BadgeResponse](t, rec).Count)

	b.login()
	rec = b.do(http.MethodGet, "/api/badge", nil)
	assert.Equal(t, 3, decode[BadgeResponse](t, rec).Count)
}

func TestChat(t *testing.T) {
	b, _, _ := setupRouter(t)
	b.login()

	rec := b.do(http.MethodPost, "/api/chat", ChatRequestDTO{Message: "add green tea"})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply struct {
		Text        string `json:"text"`
		CartChanged bool   `json:"cart_changed"`
		Products    []struct {
			Name string `json:"name"`
		} `json:"products"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.True(t, reply.CartChanged)
	assert.Equal(t, "Đã thêm vào giỏ hàng", reply.Text)
	require.Len(t, reply.Products, 1)
	assert.Equal(t, "Green tea", reply.Products[0].Name)

	rec = b.do(http.MethodPost, "/api/chat", ChatRequestDTO{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchProducts(t *testing.T) {
	b, be, sessions := setupRouter(t)

	rec := b.do(http.MethodGet, "/api/products?keyword=tea", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, b.cookie, "catalog reads must not create sessions")
	assert.Zero(t, sessions.Len())
	page := decode[backend.ProductPage](t, rec)
	assert.Equal(t, "tea", page.Content[0].ProductName)
	assert.Equal(t, defaultPageSize, page.TotalElements)

	rec = b.do(http.MethodGet, "/api/products?pageSize=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	be.catErr = errors.New("backend down")
	rec = b.do(http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[backend.ProductPage](t, rec).Content)

	rec = b.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetProduct(t *testing.T) {
	b, _, _ := setupRouter(t)

	rec := b.do(http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = b.do(http.MethodGet, "/api/products/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders(t *testing.T) {
	b, _, _ := setupRouter(t)

	rec := b.do(http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	b.login()
	rec = b.do(http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]backend.Order](t, rec), 1)
}

func TestParseSearchParams(t *testing.T) {
	p, err := parseSearchParams(map[string][]string{
		"minPrice":   {"10.5"},
		"pageNumber": {"2"},
		"sortBy":     {"price"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.PageNumber)
	assert.Equal(t, defaultPageSize, p.PageSize)
	require.NotNil(t, p.MinPrice)
	assert.Equal(t, "10.5", p.MinPrice.String())
	assert.Nil(t, p.MaxPrice)

	_, err = parseSearchParams(map[string][]string{"maxPrice": {"cheap"}})
	assert.EqualError(t, err, "invalid query parameter maxPrice")
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestRegister(t *testing.T) {
	b, be, sessions := setupRouter(t)
	form := map[string]string{
		"email":     "new@b.c",
		"password":  "pw",
		"firstName": "Binh",
		"lastName":  "Tran",
		"phone":     "0911",
	}

	rec := b.upload("/api/register", form, pngHeader)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Zero(t, sessions.Len())
	require.Len(t, be.registered, 1)
	reg := be.registered[0]
	assert.Equal(t, "new@b.c", reg.Email)
	assert.Equal(t, "0911", reg.Phone)
	require.NotNil(t, reg.Image)
	assert.Equal(t, "avatar.png", reg.Image.Name)

	rec = b.upload("/api/register", map[string]string{"email": "x@b.c", "password": "pw"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, be.registered[1].Image)

	rec = b.upload("/api/register", map[string]string{"email": "new@b.c"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.upload("/api/register", form, []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decode[ErrorResponse](t, rec).Code)

	form["email"] = "taken@b.c"
	rec = b.upload("/api/register", form, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "rejected", resp.Code)
	assert.Equal(t, "Email already in use", resp.Details)

	rec = b.do(http.MethodPost, "/api/register", LoginRequestDTO{Email: "new@b.c", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "register takes a multipart form")
	assert.Len(t, be.registered, 2)
}

func TestProfile(t *testing.T) {
	b, be, _ := setupRouter(t)

	rec := b.do(http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	b.login()
	rec = b.do(http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[backend.User](t, rec)
	assert.Equal(t, backend.ID("7"), user.UserID)
	assert.Equal(t, "An", user.FirstName)

	rec = b.do(http.MethodPut, "/api/profile", ProfileUpdateDTO{FirstName: "Binh", LastName: "Tran", MobileNumber: "0911"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user = decode[backend.User](t, rec)
	assert.Equal(t, "Binh", user.FirstName)
	assert.Equal(t, "0911", user.MobileNumber)
	assert.Equal(t, "a@b.c", user.Email)

	rec = b.do(http.MethodPut, "/api/profile", ProfileUpdateDTO{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.do(http.MethodPut, "/api/profile", ProfileUpdateDTO{Password: "n3w", ConfirmPassword: "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, be.password)

	rec = b.do(http.MethodPut, "/api/profile", ProfileUpdateDTO{Password: "n3w", ConfirmPassword: "n3w"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "n3w", be.password)
	assert.Equal(t, "Binh", be.user.FirstName, "a password change leaves the profile alone")
}

func TestUploadAvatar(t *testing.T) {
	b, _, _ := setupRouter(t)

	rec := b.upload("/api/profile/avatar", nil, pngHeader)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	b.login()
	rec = b.upload("/api/profile/avatar", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.upload("/api/profile/avatar", nil, pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "7-avatar.png", decode[backend.User](t, rec).Image)
}
