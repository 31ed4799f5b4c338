package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/application/analytics"
	"github.com/jhoicas/stockmaster-api/internal/application/auth"
	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stockmaster-api/internal/interfaces/http"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// newTestAPI arma la API completa sobre el almacenamiento en memoria, sin proveedor IA ni correo.
func newTestAPI(t *testing.T) *fiber.App {
	t.Helper()
	app, _ := newTestAPIWithRunner(t, nil)
	return app
}

// newTestAPIWithRunner permite envolver el TxRunner del libro para simular fallas del almacenamiento.
func newTestAPIWithRunner(t *testing.T, wrap func(inventory.TxRunner) inventory.TxRunner) (*fiber.App, *memory.Store) {
	t.Helper()
	log := logger.Nop()
	s := memory.NewStore()
	var runner inventory.TxRunner = memory.NewTxRunner(s)
	if wrap != nil {
		runner = wrap(runner)
	}
	products := memory.NewProductRepository(s)
	movements := memory.NewMovementRepository(s)
	locations := memory.NewLocationRepository(s)
	users := memory.NewUserRepository(s)

	ledger := inventory.NewLedgerUseCase(runner, products, movements, time.Second, nil)
	authUC := auth.NewAuthUseCase(users, memory.NewCodeStore(), memory.NewRateLimiter(3, 15*time.Minute), nil,
		auth.JWTConfig{Secret: testJWTSecret, Issuer: testIssuer, ExpMinutes: testExpMin}, 10*time.Minute, log)

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:        authUC,
		UserUC:        usecase.NewUserUseCase(users),
		ProductUC:     usecase.NewProductUseCase(products, ledger),
		VendorUC:      usecase.NewVendorUseCase(memory.NewVendorRepository(s)),
		LocationUC:    usecase.NewLocationUseCase(locations),
		PaymentUC:     usecase.NewPaymentUseCase(memory.NewPaymentRepository(s)),
		AIUC:          usecase.NewAIUseCase(nil, products, time.Second),
		Ledger:        ledger,
		Activity:      inventory.NewActivityUseCase(movements),
		Replenishment: inventory.NewReplenishmentUseCase(products, movements),
		Dashboard:     analytics.NewDashboardUseCase(products, movements, log),
		Heatmap:       analytics.NewHeatmapUseCase(movements, locations),
		Reports:       analytics.NewReportUseCase(products, pdf.NewStockReportGenerator()),
		JWTSecret:     testJWTSecret,
		Log:           log,
	})
	return app, s
}

type apiCall struct {
	method string
	path   string
	body   any
	token  string
	header map[string]string
}

func call(t *testing.T, app *fiber.App, c apiCall) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func createProduct(t *testing.T, app *fiber.App, token, sku string, stock, reorder int64) dto.ProductResponse {
	t.Helper()
	resp, raw := call(t, app, apiCall{
		method: http.MethodPost, path: "/api/products", token: token,
		body: map[string]any{"sku": sku, "name": "Producto " + sku, "price": "1000", "initialStock": stock, "reorderPoint": reorder},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var p dto.ProductResponse
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func stockOf(t *testing.T, app *fiber.App, token, id string) int64 {
	t.Helper()
	resp, raw := call(t, app, apiCall{method: http.MethodGet, path: "/api/products/" + id + "/stock", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var s dto.StockResponse
	require.NoError(t, json.Unmarshal(raw, &s))
	return s.Stock
}

// ── Autenticación ─────────────────────────────────────────────────────────────

func TestAPI_SignupLoginMe(t *testing.T) {
	app := newTestAPI(t)

	resp, raw := call(t, app, apiCall{method: http.MethodPost, path: "/api/signup",
		body: map[string]string{"name": "Ana", "email": "ana@example.com", "password": "supersecreta"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, _ = call(t, app, apiCall{method: http.MethodPost, path: "/api/signup",
		body: map[string]string{"email": "ANA@example.com", "password": "supersecreta"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw = call(t, app, apiCall{method: http.MethodPost, path: "/api/login",
		body: map[string]string{"email": "ana@example.com", "password": "supersecreta"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &login))
	require.NotEmpty(t, login.Token)

	resp, raw = call(t, app, apiCall{method: http.MethodGet, path: "/api/me", token: "Bearer " + login.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), "ana@example.com")

	resp, _ = call(t, app, apiCall{method: http.MethodPost, path: "/api/login",
		body: map[string]string{"email": "ana@example.com", "password": "incorrecta"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ForgotPasswordSinCorreo_Retorna503(t *testing.T) {
	app := newTestAPI(t)
	call(t, app, apiCall{method: http.MethodPost, path: "/api/signup",
		body: map[string]string{"email": "ana@example.com", "password": "supersecreta"}})

	resp, _ := call(t, app, apiCall{method: http.MethodPost, path: "/api/forgot-password",
		body: map[string]string{"email": "ana@example.com"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = call(t, app, apiCall{method: http.MethodPost, path: "/api/forgot-password",
		body: map[string]string{"email": "nadie@example.com"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RutasProtegidasSinToken(t *testing.T) {
	app := newTestAPI(t)
	for _, path := range []string{"/api/products", "/api/receipts", "/api/dashboard-stats", "/api/me"} {
		resp, _ := call(t, app, apiCall{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

// ── Libro de existencias ──────────────────────────────────────────────────────

func TestAPI_EntradaYSalidaActualizanStock(t *testing.T) {
	app := newTestAPI(t)
	token := tokenForRole(t, "staff")
	p := createProduct(t, app, token, "SKU-1", 0, 10)

	resp, raw := call(t, app, apiCall{method: http.MethodPost, path: "/api/receipts", token: token,
		body: dto.ReceiptRequest{ReceiptNo: "R-1", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 5}}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.Equal(t, int64(5), stockOf(t, app, token, p.ID))

	resp, raw = call(t, app, apiCall{method: http.MethodPost, path: "/api/deliveries", token: token,
		body: dto.DeliveryRequest{DeliveryNo: "D-1", Customer: "ACME", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 3}}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.Equal(t, int64(2), stockOf(t, app, token, p.ID))

	var mov dto.MovementResponse
	require.NoError(t, json.Unmarshal(raw, &mov))
	require.Len(t, mov.Items, 1)
	assert.Equal(t, int64(-3), mov.Items[0].Delta)

	resp, raw = call(t, app, apiCall{method: http.MethodGet, path: "/api/deliveries", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []dto.MovementResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 1)
}

func TestAPI_SalidaSinStockSuficiente(t *testing.T) {
	app := newTestAPI(t)
	token := tokenForRole(t, "staff")
	p := createProduct(t, app, token, "SKU-40", 40, 10)

	resp, raw := call(t, app, apiCall{method: http.MethodPost, path: "/api/deliveries", token: token,
		body: dto.DeliveryRequest{DeliveryNo: "D-9", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 50}}}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errBody dto.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, "INSUFFICIENT_STOCK", errBody.Code)
	assert.Contains(t, errBody.Message, "40")
	require.NotNil(t, errBody.Available)
	assert.Equal(t, int64(40), *errBody.Available)
	assert.Equal(t, p.ID, errBody.ProductID)

	assert.Equal(t, int64(40), stockOf(t, app, token, p.ID), "el stock no cambia")
}

func TestAPI_IdempotencyKeyDevuelveElOriginal(t *testing.T) {
	app := newTestAPI(t)
	token := tokenForRole(t, "staff")
	p := createProduct(t, app, token, "SKU-IDEM", 0, 10)
	req := apiCall{method: http.MethodPost, path: "/api/receipts", token: token,
		header: map[string]string{apphttp.HeaderIdempotencyKey: "recibo-123"},
		body:   dto.ReceiptRequest{ReceiptNo: "R-7", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 7}}}}

	first, rawFirst := call(t, app, req)
	require.Equal(t, http.StatusCreated, first.StatusCode, string(rawFirst))
	second, rawSecond := call(t, app, req)
	require.Equal(t, http.StatusOK, second.StatusCode, string(rawSecond))
	assert.Equal(t, "true", second.Header.Get(apphttp.HeaderReplayed))

	var a, b dto.MovementResponse
	require.NoError(t, json.Unmarshal(rawFirst, &a))
	require.NoError(t, json.Unmarshal(rawSecond, &b))
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, int64(7), stockOf(t, app, token, p.ID))
}

func TestAPI_ProductoInexistente(t *testing.T) {
	app := newTestAPI(t)
	token := tokenForRole(t, "staff")
	resp, _ := call(t, app, apiCall{method: http.MethodGet, path: "/api/products/00000000-0000-0000-0000-00000000dead", token: token})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = call(t, app, apiCall{method: http.MethodGet, path: "/api/products/no-es-uuid", token: token})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ── Tablero, pagos y asistente ────────────────────────────────────────────────

func TestAPI_DashboardStats(t *testing.T) {
	app := newTestAPI(t)
	token := tokenForRole(t, "staff")
	createProduct(t, app, token, "AGOTADO", 0, 10)
	createProduct(t, app, token, "BAJO", 4, 10)
	createProduct(t, app, token, "SANO", 50, 10)

	resp, raw := call(t, app, apiCall{method: http.MethodGet, path: "/api/dashboard-stats", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats dto.DashboardStatsDTO
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.LowStock, "stock 0 no cuenta como bajo")
	assert.Equal(t, int64(1), stats.OutOfStock)
	assert.False(t, stats.Degraded)
}

func TestAPI_ReporteDeStockPDF(t *testing.T) {
	app := newTestAPI(t)
	token := tokenForRole(t, "manager")
	createProduct(t, app, token, "SKU-PDF", 3, 10)

	resp, raw := call(t, app, apiCall{method: http.MethodGet, path: "/api/reports/stock.pdf", token: token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

func TestAPI_PagosSoloAdminOManager(t *testing.T) {
	app := newTestAPI(t)
	body := map[string]any{"invoiceRef": "F-1", "type": "incoming", "amount": "150000", "status": "pending", "method": "transfer"}

	resp, _ := call(t, app, apiCall{method: http.MethodPost, path: "/api/payments", token: tokenForRole(t, "staff"), body: body})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := call(t, app, apiCall{method: http.MethodPost, path: "/api/payments", token: tokenForRole(t, "manager"), body: body})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, _ = call(t, app, apiCall{method: http.MethodGet, path: "/api/payments", token: tokenForRole(t, "staff")})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_ChatSinProveedor_Retorna503(t *testing.T) {
	app := newTestAPI(t)
	resp, raw := call(t, app, apiCall{method: http.MethodPost, path: "/api/chat", token: tokenForRole(t, "staff"),
		body: dto.ChatRequest{Message: "¿qué productos están por agotarse?"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, string(raw))
}

func TestAPI_CuerpoInvalido(t *testing.T) {
	app := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/receipts", bytes.NewBufferString("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, "staff"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
