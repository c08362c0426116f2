// handlers/task_routes.go
package handlers

import (
	"review-task-system/middleware"
	"review-task-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupTaskRoutes registers the member-facing surface: dashboard, the combined
// task queue, submissions, and the commission ledger.
func SetupTaskRoutes(app *fiber.App, taskService *services.TaskService, settlementService *services.SettlementService, transactionService *services.TransactionService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/dashboard", taskService.Dashboard)
	secured.Get("/tasks", taskService.ListTasks)
	secured.Get("/tasks/next", taskService.GetNext)
	secured.Get("/tasks/by-status", taskService.ListByReviewStatus)
	secured.Post("/tasks/submit", settlementService.Submit)
	secured.Get("/transactions", transactionService.ListMine)
}
