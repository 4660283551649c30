package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apitest"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/orders"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type shell struct {
	t        *testing.T
	b        *apitest.Backend
	d        *Deps
	e        *echo.Echo
	customer models.Customer
}

func newShell(t *testing.T) *shell {
	t.Helper()
	b := apitest.New(t)
	m := metrics.New()
	d := Wire(Sources{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Client:  apiclient.NewClient(b.URL(), apiclient.WithObserver(m)),
		Storage: session.NewMemoryStorage(),
		Bus:     events.NewBus(),
		Metrics: m,
	})
	cust := b.AddCustomer(models.Customer{Name: "Kiran", Email: "kiran@example.com"}, "Secret@123")
	return &shell{t: t, b: b, d: d, e: New(d), customer: cust}
}

func (s *shell) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *shell) loginCustomer() {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/login", map[string]string{"email": s.customer.Email, "password": "Secret@123"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *shell) loginAdmin() {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/admin", map[string]string{"username": apitest.AdminUsername, "password": apitest.AdminPassword})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newShell(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/ready", nil).Code)
	require.NotEmpty(t, s.do(http.MethodGet, "/health/live", nil).Header().Get(echo.HeaderXRequestID))
}

func TestGuardRedirects(t *testing.T) {
	s := newShell(t)

	rec := s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	s.loginAdmin()
	rec = s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))

	s.loginCustomer()
	rec = s.do(http.MethodGet, "/dashboard/orders", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/customerDashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestLoginFailure(t *testing.T) {
	s := newShell(t)
	rec := s.do(http.MethodPost, "/login", map[string]string{"email": s.customer.Email, "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid email or password")
	require.False(t, s.d.Customer.IsAuthenticated())
}

func TestEmptyCartShowsBrowseMenu(t *testing.T) {
	s := newShell(t)
	s.loginCustomer()

	rec := s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[CartView](t, rec)
	require.Empty(t, v.Items)
	require.NotNil(t, v.Empty)
	require.Equal(t, "Browse Menu", v.Empty.Action.Label)
	require.Equal(t, "/customerDashboard", v.Empty.Action.Href)
}

func TestCartFlow(t *testing.T) {
	s := newShell(t)
	f := s.b.AddFood(models.FoodItem{Name: "Biryani", Price: 250, Available: true})
	s.loginCustomer()

	rec := s.do(http.MethodPost, "/cart/items", map[string]int{"foodId": f.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[CartView](t, rec)
	require.Len(t, v.Items, 1)
	require.InDelta(t, 500, v.Total, 0.001)

	item := v.Items[0].CartItemID
	rec = s.do(http.MethodPut, "/cart/items/"+strconv.Itoa(item), map[string]int{"quantity": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/cart/items/"+strconv.Itoa(item), map[string]int{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, s.b.CartItems(s.customer.CustomerID), 1)

	rec = s.do(http.MethodPut, "/cart/items/"+strconv.Itoa(item), map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[CartView](t, rec).Items)
	require.Empty(t, s.b.CartItems(s.customer.CustomerID))
}

func TestDashboardGroupsMenu(t *testing.T) {
	s := newShell(t)
	veg := "Veg"
	s.b.AddFood(models.FoodItem{Name: "Dal", Price: 120, Category: &veg})
	s.b.AddFood(models.FoodItem{Name: "Mystery", Price: 99})
	s.loginCustomer()

	rec := s.do(http.MethodGet, "/customerDashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[DashboardView](t, rec)
	require.Len(t, v.Groups, 2)
	require.Equal(t, "Veg", v.Groups[0].Category)
	require.Equal(t, models.DefaultCategory, v.Groups[1].Category)

	rec = s.do(http.MethodGet, "/customerDashboard?keyword=dal", nil)
	v = decode[DashboardView](t, rec)
	require.Len(t, v.Groups, 1)
}

func TestCheckoutValidationSkipsOrder(t *testing.T) {
	s := newShell(t)
	f := s.b.AddFood(models.FoodItem{Name: "Pizza", Price: 300})
	s.loginCustomer()
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/cart/items", map[string]int{"foodId": f.ID}).Code)

	rec := s.do(http.MethodGet, "/cart/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, checkout.StepNew, decode[CheckoutView](t, rec).Step)

	rec = s.do(http.MethodPut, "/cart/checkout/draft", models.Address{City: "Delhi", ZipCode: "110001"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/cart/checkout/confirm", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, s.b.Hits("POST /:cust/order/place"))

	rec = s.do(http.MethodPut, "/cart/checkout/draft", models.Address{Street: "4 Park St", City: "Delhi", State: "DL", ZipCode: "110001"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/cart/checkout/confirm", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[CheckoutView](t, rec)
	require.Equal(t, checkout.StepDone, v.Step)
	require.NotNil(t, v.Order)
	require.True(t, strings.HasPrefix(v.Order.OrderID, "ORD-"))
	require.Equal(t, "4 Park St, Delhi, DL - 110001", v.Order.Address)

	rec = s.do(http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ov := decode[OrdersView](t, rec)
	require.Equal(t, models.FilterActive, ov.Filter)
	require.Len(t, ov.Orders, 1)
}

func TestAdminStatusFailureAlerts(t *testing.T) {
	s := newShell(t)
	s.b.AddOrder(s.customer.CustomerID, models.Order{OrderID: "ORD-1", Status: models.StatusPlaced, TotalAmount: 50})
	s.loginAdmin()

	rec := s.do(http.MethodPut, "/dashboard/orders/ORD-1/status?status=COOKING", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, models.StatusCooking, decode[OrdersView](t, rec).Orders[0].Status)

	rec = s.do(http.MethodPut, "/dashboard/orders/ORD-1/status?status=BURNT", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	s.b.Fail("PUT /admin/orders/order/:id/status", http.StatusInternalServerError)
	rec = s.do(http.MethodPut, "/dashboard/orders/ORD-1/status?status=DELIVERED", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, models.StatusCooking, s.d.Board.View(models.FilterAll)[0].Status)

	rec = s.do(http.MethodGet, "/alerts", nil)
	alerts := decode[AlertsView](t, rec)
	require.Len(t, alerts.Alerts, 1)
	require.Equal(t, orders.StatusUpdateFailed, alerts.Alerts[0].Text)

	rec = s.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dv := decode[AdminDashboardView](t, rec)
	require.Equal(t, 1, dv.Stats.Total)
	require.Len(t, dv.Cards, 3)
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	s := newShell(t)
	s.loginCustomer()
	s.b.Fail("POST /customer/signout", http.StatusInternalServerError)

	rec := s.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, s.d.Customer.IsAuthenticated())

	rec = s.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestCustomerKeepsAccessAfterAdminLogout(t *testing.T) {
	s := newShell(t)
	s.loginCustomer()
	s.loginAdmin()

	rec := s.do(http.MethodPost, "/logout?role=ADMIN", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/customerDashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/customerDashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestSignup(t *testing.T) {
	s := newShell(t)
	form := map[string]string{"name": "Neel", "email": "neel@example.com", "phone": "9000000009", "password": "weak", "confirmPassword": "weak"}
	require.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/signup", form).Code)
	require.Equal(t, 0, s.b.Hits("POST /customer/signup"))

	form["password"], form["confirmPassword"] = "Secret@123", "Secret@123"
	rec := s.do(http.MethodPost, "/signup", form)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/login", decode[PageView](t, rec).Redirect)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newShell(t)
	s.do(http.MethodGet, "/health/live", nil)
	s.loginCustomer()

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "storefront_http_requests_total")
	require.Contains(t, body, "storefront_api_requests_total")
	require.Contains(t, body, `storefront_events_published_total{topic="session_changed"}`)
}

func TestWebsocketStreamsEvents(t *testing.T) {
	s := newShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.d.Hub.Run(ctx)

	srv := httptest.NewServer(s.e)
	t.Cleanup(srv.Close)
	s.loginCustomer()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.d.Hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	id := s.customer.CustomerID
	s.d.Bus.Publish(context.Background(), events.Event{Topic: events.WishlistUpdated, CustomerID: &id})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wsEvent
	for ev.Topic != events.WishlistUpdated {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &ev))
	}
	require.Equal(t, id, *ev.CustomerID)
}

func TestSignupMultipartWithoutImage(t *testing.T) {
	s := newShell(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"name": "Asha", "email": "asha@example.com", "phone": "9000000010",
		"password": "Secret@123", "confirmPassword": "Secret@123",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/signup", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 1, s.b.Hits("POST /customer/signup"))
}
