package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/stockmaster-api/internal/application/analytics"
	"github.com/jhoicas/stockmaster-api/internal/application/auth"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC        *auth.AuthUseCase
	UserUC        *usecase.UserUseCase
	ProductUC     *usecase.ProductUseCase
	VendorUC      *usecase.VendorUseCase
	LocationUC    *usecase.LocationUseCase
	PaymentUC     *usecase.PaymentUseCase
	AIUC          *usecase.AIUseCase
	Ledger        *inventory.LedgerUseCase
	Activity      *inventory.ActivityUseCase
	Replenishment *inventory.ReplenishmentUseCase
	Dashboard     *appanalytics.DashboardUseCase
	Heatmap       *appanalytics.HeatmapUseCase
	Reports       *appanalytics.ReportUseCase
	JWTSecret     string
	Log           *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC, deps.UserUC, log)
	api.Post("/signup", authHandler.Signup)
	api.Post("/login", authHandler.Login)
	api.Post("/forgot-password", authHandler.ForgotPassword)
	api.Post("/verify-code", authHandler.VerifyCode)
	api.Post("/reset-password", authHandler.ResetPassword)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	protected.Get("/me", authHandler.Me)

	// Products
	productHandler := NewProductHandler(deps.ProductUC, deps.Ledger, log)
	products := protected.Group("/products")
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Get("/:id/stock", productHandler.Stock)

	// Vendors, locations, payments
	catalogHandler := NewCatalogHandler(deps.VendorUC, deps.LocationUC, deps.PaymentUC, log)
	protected.Post("/vendors", catalogHandler.CreateVendor)
	protected.Get("/vendors", catalogHandler.ListVendors)
	protected.Post("/locations", catalogHandler.CreateLocation)
	protected.Get("/locations", catalogHandler.ListLocations)
	protected.Post("/payments", RequireRole(entity.RoleAdmin, entity.RoleManager), catalogHandler.CreatePayment)
	protected.Get("/payments", catalogHandler.ListPayments)

	// Libro de existencias (movimientos inmutables: sin PUT/DELETE)
	movementHandler := NewMovementHandler(deps.Ledger, log)
	protected.Post("/receipts", movementHandler.CreateReceipt)
	protected.Get("/receipts", movementHandler.List(entity.KindReceipt))
	protected.Post("/deliveries", movementHandler.CreateDelivery)
	protected.Get("/deliveries", movementHandler.List(entity.KindDelivery))
	protected.Post("/transfers", movementHandler.CreateTransfer)
	protected.Get("/transfers", movementHandler.List(entity.KindTransferOut))
	protected.Post("/adjustments", movementHandler.CreateAdjustment)
	protected.Get("/adjustments", movementHandler.List(entity.KindAdjustment))

	// Dashboard y reportes
	dashboardHandler := NewDashboardHandler(DashboardDeps{
		Stats:    deps.Dashboard,
		Heatmap:  deps.Heatmap,
		Reports:  deps.Reports,
		Activity: deps.Activity,
		Predict:  deps.Replenishment,
	}, log)
	protected.Get("/dashboard-stats", dashboardHandler.GetStats)
	protected.Get("/recent-activity", dashboardHandler.RecentActivity)
	protected.Get("/activity/stream", dashboardHandler.ActivityStream)
	protected.Get("/heatmap", dashboardHandler.Heatmap)
	protected.Get("/predict-inventory", dashboardHandler.PredictInventory)
	protected.Get("/reports/stock.pdf", dashboardHandler.StockReport)

	// Asistente IA
	aiHandler := NewAIHandler(deps.AIUC, log)
	protected.Post("/chat", aiHandler.Chat)
}
