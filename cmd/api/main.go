package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturador-sri/internal/application/billing"
	"github.com/jhoicas/facturador-sri/internal/domain/entity"
	domainsri "github.com/jhoicas/facturador-sri/internal/domain/sri"
	"github.com/jhoicas/facturador-sri/internal/infrastructure/filestore"
	infrapdf "github.com/jhoicas/facturador-sri/internal/infrastructure/pdf"
	"github.com/jhoicas/facturador-sri/internal/infrastructure/postgres"
	"github.com/jhoicas/facturador-sri/internal/infrastructure/spreadsheet"
	infrasri "github.com/jhoicas/facturador-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturador-sri/internal/infrastructure/sri/signer"
	httpRouter "github.com/jhoicas/facturador-sri/internal/interfaces/http"
	"github.com/jhoicas/facturador-sri/pkg/config"
	"github.com/jhoicas/facturador-sri/pkg/logger"

	_ "github.com/jhoicas/facturador-sri/docs"
)

// @title        Facturador SRI API
// @version      1.0
// @description  Emisión de facturas electrónicas del SRI (Ecuador) desde el POS.
// @BasePath     /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("ambiente_sri", cfg.SRI.Environment).
		Str("serie", cfg.SRI.Series()).
		Msg("iniciando aplicación")

	ctx := context.Background()

	artifacts, err := filestore.NewArtifactStore(cfg.SRI.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("almacén de comprobantes")
	}

	deps := billing.CoordinatorDeps{Artifacts: artifacts}

	// PostgreSQL es opcional: sin DB el registro de emisiones queda solo en disco.
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		deps.Invoices = postgres.NewInvoiceRepository(pool)
		if cfg.SRI.SequenceBackend == "postgres" {
			deps.Sequence = postgres.NewSequenceCounter(pool, cfg.SRI.SequenceStart)
		}
	} else if cfg.SRI.SequenceBackend == "postgres" {
		log.Fatal().Msg("SRI_SEQUENCE_BACKEND=postgres requiere configuración de base de datos")
	}
	if deps.Sequence == nil {
		counter, err := filestore.NewSequenceCounter(cfg.SRI.StorageDir, cfg.SRI.SequenceStart)
		if err != nil {
			log.Fatal().Err(err).Msg("contador de secuenciales")
		}
		deps.Sequence = counter
	}

	cert, err := signer.LoadFromP12(cfg.SRI.CertPath, cfg.SRI.CertPassword)
	if err != nil {
		log.Fatal().Err(err).Str("cert", cfg.SRI.CertPath).Msg("certificado de firma")
	}
	signerSvc, err := signer.NewDigitalSignatureService(cert)
	if err != nil {
		log.Fatal().Err(err).Msg("servicio de firma")
	}
	deps.Signer = signerSvc

	soap := infrasri.NewSOAPClient(
		infrasri.EndpointsFor(cfg.SRI.Environment),
		infrasri.WithRateLimit(cfg.SRI.RatePerSecond, 1),
	)
	deps.Authority = infrasri.NewAuthorityClient(soap, log.Component("sri_authority"))
	loc, err := cfg.SRI.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("zona horaria")
	}
	deps.Builder = infrasri.NewXMLBuilderService(domainsri.NewAccessKeyGenerator()).WithLocation(loc)

	if cfg.SRI.LedgerPath != "" {
		ledger, err := spreadsheet.NewLedger(cfg.SRI.LedgerPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SRI.LedgerPath).Msg("libro de emisiones")
		}
		deps.Ledger = ledger
	}

	coordinator, err := billing.NewInvoiceCoordinator(
		issuerFromConfig(cfg.SRI),
		infrasri.PollOptions{MaxAttempts: cfg.SRI.PollAttempts, Interval: cfg.SRI.PollInterval},
		deps,
		log.Component("invoice_coordinator"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("coordinador de emisión")
	}

	rideUC := billing.NewRIDEUseCase(artifacts, infrapdf.NewRIDEGenerator())

	// Envío + consultas de autorización caben dentro del timeout de escritura.
	emitTimeout := time.Duration(cfg.SRI.PollAttempts)*cfg.SRI.PollInterval + 30*time.Second

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: emitTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturador SRI API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "ambiente": cfg.SRI.Environment})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Invoices:  httpRouter.NewInvoiceHandler(coordinator, rideUC, signerSvc, emitTimeout),
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func issuerFromConfig(c config.SRIConfig) entity.Issuer {
	return entity.Issuer{
		RUC:                    c.RUC,
		LegalName:              c.LegalName,
		CommercialName:         c.CommercialName,
		HeadOfficeAddress:      c.HeadOfficeAddress,
		EstablishmentAddress:   c.EstablishmentAddress,
		Establishment:          c.Establishment,
		EmissionPoint:          c.EmissionPoint,
		SpecialTaxpayer:        c.SpecialTaxpayer,
		RequiredToKeepAccounts: c.RequiredToKeepAccounts,
		Environment:            c.Environment,
	}
}
