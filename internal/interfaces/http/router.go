package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturador-sri/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Invoices  *InvoiceHandler
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole(jwt.RoleAdmin, jwt.RoleCashier))

	invoices := protected.Group("/invoices")
	invoices.Post("/", deps.Invoices.Emit)
	invoices.Post("/verify", deps.Invoices.Verify)
	invoices.Get("/:accessKey", deps.Invoices.Get)
	invoices.Get("/:accessKey/ride", deps.Invoices.RIDE)

	// Reconsultar autorización: solo administradores.
	invoices.Post("/pending/authorization", RequireRole(jwt.RoleAdmin), deps.Invoices.RecheckPending)
	invoices.Post("/:accessKey/authorization", RequireRole(jwt.RoleAdmin), deps.Invoices.Recheck)
}
