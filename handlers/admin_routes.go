// handlers/admin_routes.go
package handlers

import (
	"review-task-system/middleware"
	"review-task-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes registers the operator surface: catalog and level management,
// queue overrides, progress resets, and user administration. Agents reach these
// routes too; per-user operations additionally check created-by scope inside
// the services.
func SetupAdminRoutes(
	app *fiber.App,
	productService *services.ProductService,
	levelService *services.LevelService,
	positionService *services.PositionService,
	progressService *services.ProgressService,
	userService *services.UserService,
) {
	admin := app.Group("/admin",
		middleware.UserContextMiddleware(),
		middleware.RequireRoles("ADMIN", "AGENT"),
	)

	admin.Get("/products", productService.ListProducts)
	admin.Post("/products", productService.CreateProduct)
	admin.Patch("/products/:id", productService.UpdateProduct)
	admin.Delete("/products/:id", productService.DeleteProduct)

	admin.Get("/levels", levelService.ListLevels)
	admin.Post("/levels", levelService.CreateLevel)
	admin.Patch("/levels/:id", levelService.UpdateLevel)
	admin.Post("/levels/:id/products", levelService.AssignProducts)
	admin.Get("/levels/:id/products", levelService.ProductsByLevel)

	admin.Post("/positions/insert", positionService.HandleInsertAtPosition)
	admin.Post("/continuous-orders", positionService.HandleAddContinuousOrder)
	admin.Post("/continuous-orders/replace-next", positionService.HandleReplaceNextContinuousOrder)
	admin.Post("/continuous-orders/reset", positionService.HandleResetContinuousOrders)

	admin.Post("/progress/reset", progressService.HandleResetLevelProgress)
	admin.Post("/users/assign-level", progressService.HandleAssignLevel)

	admin.Get("/users", userService.SearchUsers)
	admin.Post("/users/:id/balance", userService.AdjustBalance)
}
