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

	"github.com/jhoicas/barra-pos/internal/application/engine"
	"github.com/jhoicas/barra-pos/internal/domain/availability"
	infrabackend "github.com/jhoicas/barra-pos/internal/infrastructure/backend"
	infrapdf "github.com/jhoicas/barra-pos/internal/infrastructure/pdf"
	httpRouter "github.com/jhoicas/barra-pos/internal/interfaces/http"
	"github.com/jhoicas/barra-pos/pkg/config"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("backend", cfg.Backend.BaseURL).
		Msg("iniciando motor de comandas")

	// Cliente del backend: catálogo, comandas y ventas viven allá.
	client := infrabackend.NewClient(cfg.Backend, log)

	store := engine.NewTabStore()
	resolver := engine.NewRecipeResolver(client, log)
	reservations := engine.NewReservationTracker(client, log)
	calc := availability.New(cfg.Engine.CocktailLowStock)

	tabUC := engine.NewTabUseCase(
		store, resolver, reservations, calc,
		client, client,
		time.Duration(cfg.Engine.DebounceMS)*time.Millisecond,
		log,
	)
	closer := engine.NewSaleCloser(store, tabUC.Coalescer(), client, client, reservations, log)

	receiptGen := infrapdf.NewReceiptGenerator(cfg.App.Business)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    cfg.App.Name,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		TabUC:   tabUC,
		Closer:  closer,
		Receipt: receiptGen,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("motor detenido")
}
