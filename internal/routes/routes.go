package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/config"
	"github.com/example/pharmacy-checkout/internal/handlers"
	"github.com/example/pharmacy-checkout/internal/middleware"
	"github.com/example/pharmacy-checkout/internal/notify"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, svc *checkout.Service, hub *notify.Hub, cfg *config.Config, log *zap.Logger) {
	guestCartHandler := handlers.NewGuestCartHandler(svc)
	checkoutHandler := handlers.NewCheckoutHandler(svc)
	addressHandler := handlers.NewAddressHandler(svc)
	orderHandler := handlers.NewOrderHandler(svc)
	eventsHandler := handlers.NewEventsHandler(hub, log)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api",
		middleware.SessionMiddleware(cfg.IsProduction()),
		middleware.AuthMiddleware(cfg.JWTSecret, log),
	)

	// Guest cart
	guestCart := api.Group("/guest-cart")
	guestCart.Get("/", guestCartHandler.List)
	guestCart.Delete("/", guestCartHandler.Clear)
	guestCart.Post("/items", guestCartHandler.AddItem)
	guestCart.Delete("/items/:itemId", guestCartHandler.RemoveItem)

	// Checkout
	co := api.Group("/checkout")
	co.Get("/", checkoutHandler.View)
	co.Put("/selection", checkoutHandler.SetSelection)
	co.Post("/orders", orderHandler.Submit)
	co.Get("/orders/last", orderHandler.Last)

	// Addresses
	addresses := api.Group("/addresses")
	addresses.Get("/", addressHandler.List)
	addresses.Post("/", addressHandler.Create)
	addresses.Put("/:id", addressHandler.Update)
	addresses.Delete("/:id", addressHandler.Delete)
	addresses.Post("/:id/select", addressHandler.Select)

	api.Get("/events", eventsHandler.Stream)
}
