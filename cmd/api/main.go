package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/swaggo/swag"

	"github.com/jhoicas/stockmaster-api/docs"
	appanalytics "github.com/jhoicas/stockmaster-api/internal/application/analytics"
	"github.com/jhoicas/stockmaster-api/internal/application/auth"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/application/outbox"
	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
	infraai "github.com/jhoicas/stockmaster-api/internal/infrastructure/ai"
	infrakafka "github.com/jhoicas/stockmaster-api/internal/infrastructure/kafka"
	infmail "github.com/jhoicas/stockmaster-api/internal/infrastructure/mail"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/stockmaster-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stockmaster-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stockmaster-api/internal/interfaces/http"
	"github.com/jhoicas/stockmaster-api/pkg/config"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// storage repositorios del driver elegido.
type storage struct {
	txRunner  inventory.TxRunner
	products  repository.ProductRepository
	movements repository.MovementRepository
	vendors   repository.VendorRepository
	locations repository.LocationRepository
	payments  repository.PaymentRepository
	users     repository.UserRepository
	outbox    repository.OutboxRepository
	ping      func(ctx context.Context) error
	close     func()
}

func main() {
	// .env es opcional: en contenedores la configuración llega por variables de entorno.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento no disponible")
	}
	defer store.close()

	m := metrics.New()

	// Libro de existencias y casos de uso
	ledger := inventory.NewLedgerUseCase(store.txRunner, store.products, store.movements, cfg.DB.QueryTimeout, m)
	productUC := usecase.NewProductUseCase(store.products, ledger)
	vendorUC := usecase.NewVendorUseCase(store.vendors)
	locationUC := usecase.NewLocationUseCase(store.locations)
	paymentUC := usecase.NewPaymentUseCase(store.payments)
	userUC := usecase.NewUserUseCase(store.users)
	activityUC := inventory.NewActivityUseCase(store.movements)
	replenishmentUC := inventory.NewReplenishmentUseCase(store.products, store.movements)
	dashboardUC := appanalytics.NewDashboardUseCase(store.products, store.movements, log)
	heatmapUC := appanalytics.NewHeatmapUseCase(store.movements, store.locations)
	reportUC := appanalytics.NewReportUseCase(store.products, infrapdf.NewStockReportGenerator())
	aiUC := usecase.NewAIUseCase(newLLM(cfg.AI, log), store.products, cfg.AI.Timeout)

	codes, limiter, closeRedis := otpBackends(ctx, cfg, log)
	defer closeRedis()

	var mailer ports.Mailer
	if cfg.Mail.Enabled() {
		mailer = infmail.NewSMTPMailer(cfg.Mail)
	} else {
		log.Warn().Msg("SMTP_HOST no configurado: forgot-password responderá 503")
	}
	authUC := auth.NewAuthUseCase(store.users, codes, limiter, mailer, auth.JWTConfig{
		Secret:          cfg.JWT.Secret,
		Issuer:          cfg.JWT.Issuer,
		ExpMinutes:      cfg.JWT.Expiration,
		ResetExpMinutes: cfg.JWT.ResetExpiration,
	}, cfg.OTP.TTL, log)

	// Relay del outbox: Kafka si hay brokers, si no solo log.
	var publisher ports.EventPublisher = outbox.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := infrakafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("conexión a Kafka")
		}
		defer kp.Close()
		publisher = kp
	}
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		outbox.NewRelay(store.outbox, publisher, log, m).Run(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + httpRouter.HeaderIdempotencyKey,
	}))
	app.Use(compress.New(compress.Config{
		// El flujo SSE debe llegar sin buffer de compresión.
		Next: func(c *fiber.Ctx) bool { return c.Path() == "/api/activity/stream" },
	}))
	app.Use(httpRouter.AccessLog(log))
	app.Use(m.Middleware())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.Swagger.Enabled {
		specPath, err := swaggerFile(cfg.Swagger.FilePath)
		if err != nil {
			log.Warn().Err(err).Msg("swagger no disponible, /docs deshabilitado")
		} else {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: specPath,
				Path:     "docs",
				Title:    docs.SwaggerInfo.Title,
			}))
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := store.ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", m.Handler())

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:        authUC,
		UserUC:        userUC,
		ProductUC:     productUC,
		VendorUC:      vendorUC,
		LocationUC:    locationUC,
		PaymentUC:     paymentUC,
		AIUC:          aiUC,
		Ledger:        ledger,
		Activity:      activityUC,
		Replenishment: replenishmentUC,
		Dashboard:     dashboardUC,
		Heatmap:       heatmapUC,
		Reports:       reportUC,
		JWTSecret:     cfg.JWT.Secret,
		Log:           log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	<-relayDone

	log.Info().Msg("aplicación detenida")
}

// openStorage abre PostgreSQL o el almacén en memoria según DB_DRIVER.
// Con postgres, un fallo de conexión detiene el arranque: nunca se cae a memoria.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.DB.Driver == config.DriverMemory {
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &storage{
			txRunner:  memory.NewTxRunner(s),
			products:  memory.NewProductRepository(s),
			movements: memory.NewMovementRepository(s),
			vendors:   memory.NewVendorRepository(s),
			locations: memory.NewLocationRepository(s),
			payments:  memory.NewPaymentRepository(s),
			users:     memory.NewUserRepository(s),
			outbox:    memory.NewOutboxRepository(s),
			ping:      func(context.Context) error { return nil },
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema de base de datos aplicado")
	}
	return &storage{
		txRunner:  postgres.NewTxRunner(pool),
		products:  postgres.NewProductRepository(pool),
		movements: postgres.NewMovementRepository(pool),
		vendors:   postgres.NewVendorRepository(pool),
		locations: postgres.NewLocationRepository(pool),
		payments:  postgres.NewPaymentRepository(pool),
		users:     postgres.NewUserRepository(pool),
		outbox:    postgres.NewOutboxRepository(pool),
		ping:      pool.Ping,
		close:     pool.Close,
	}, nil
}

// otpBackends códigos OTP y rate limiting en Redis si está configurado; si no, en memoria del proceso.
func otpBackends(ctx context.Context, cfg *config.Config, log *logger.Logger) (ports.CodeStore, ports.RateLimiter, func()) {
	if !cfg.Redis.Enabled() {
		return memory.NewCodeStore(), memory.NewRateLimiter(cfg.OTP.MaxRequests, cfg.OTP.Window), func() {}
	}
	rdb, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
	}
	return infraredis.NewCodeStore(rdb),
		infraredis.NewRateLimiter(rdb, cfg.OTP.MaxRequests, cfg.OTP.Window),
		func() { _ = rdb.Close() }
}

// swaggerFile devuelve la ruta del swagger.json. Si no existe en disco (binario desplegado sin docs/)
// se vuelca la especificación registrada en swag a un archivo temporal.
func swaggerFile(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "stockmaster-swagger-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(doc); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// newLLM proveedor del asistente. Sin API key devuelve nil y /api/chat responde 503.
func newLLM(cfg config.AIConfig, log *logger.Logger) ports.LLMService {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			break
		}
		svc, err := infraai.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			log.Error().Err(err).Msg("proveedor OpenAI no disponible")
			return nil
		}
		return svc
	default:
		if cfg.GeminiAPIKey == "" {
			break
		}
		return infraai.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	log.Warn().Str("provider", cfg.Provider).Msg("asistente IA sin API key: /api/chat responderá 503")
	return nil
}
