package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/anacarla/crm-api/middleware"
)

// Controllers groups every handler registered under /api/v1
type Controllers struct {
	Customers    *CustomerController
	Orders       *OrderController
	Tasks        *TaskController
	Interactions *InteractionController
	Menu         *MenuController
	Admin        *AdminController
	Uploads      *UploadController
}

// Register mounts the authenticated routes on api. The caller installs the
// authentication middleware on api first.
func (h *Controllers) Register(api *gin.RouterGroup) {
	staff := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleManager, middleware.RoleAttendant)
	managers := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleManager)
	admins := middleware.RequireRole(middleware.RoleAdmin)

	customers := api.Group("/customers", staff)
	{
		customers.GET("", h.Customers.SearchCustomers)
		customers.POST("", h.Customers.CreateCustomer)
		customers.GET("/export", managers, h.Customers.ExportCustomers)
		customers.GET("/:id", h.Customers.GetCustomer)
		customers.PUT("/:id", h.Customers.UpdateCustomer)
		customers.DELETE("/:id", managers, h.Customers.DeleteCustomer)
		customers.GET("/:id/metrics", h.Customers.GetCustomerMetrics)
		customers.POST("/:id/metrics/recalculate", managers, h.Customers.RecalculateCustomerMetrics)
		customers.GET("/:id/orders", h.Orders.GetCustomerOrders)
		customers.GET("/:id/tasks", h.Tasks.GetCustomerTasks)
		customers.POST("/:id/tasks", h.Tasks.CreateCustomerTask)
		customers.GET("/:id/interactions", h.Interactions.GetCustomerInteractions)
		customers.POST("/:id/interactions", h.Interactions.CreateInteraction)
	}

	orders := api.Group("/orders", staff)
	{
		orders.GET("", h.Orders.GetOrders)
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PUT("/:id", h.Orders.UpdateOrder)
		orders.PATCH("/:id/status", h.Orders.UpdateOrderStatus)
		orders.DELETE("/:id", managers, h.Orders.DeleteOrder)
	}

	tasks := api.Group("/tasks", staff)
	{
		tasks.GET("", h.Tasks.GetTasks)
		tasks.POST("", h.Tasks.CreateTask)
		tasks.GET("/:id", h.Tasks.GetTask)
		tasks.PUT("/:id", h.Tasks.UpdateTask)
		tasks.DELETE("/:id", managers, h.Tasks.DeleteTask)
	}

	interactions := api.Group("/interactions", staff)
	{
		interactions.GET("/:id", h.Interactions.GetInteraction)
		interactions.POST("/:id/attachment", h.Interactions.UploadAttachment)
		interactions.DELETE("/:id", managers, h.Interactions.DeleteInteraction)
	}

	menu := api.Group("/menu", staff)
	{
		menu.GET("", h.Menu.GetMenu)
		menu.GET("/:id", h.Menu.GetMenuItem)
		menu.POST("", managers, h.Menu.CreateMenuItem)
		menu.PUT("/:id", managers, h.Menu.UpdateMenuItem)
		menu.PATCH("/:id/active", managers, h.Menu.SetMenuItemActive)
		menu.DELETE("/:id", managers, h.Menu.DeleteMenuItem)
	}

	admin := api.Group("/admin", admins)
	{
		admin.POST("/churn-check", h.Admin.RunChurnCheck)
		admin.GET("/churn-check", h.Admin.GetLastChurnCheck)
	}

	if h.Uploads != nil {
		api.GET("/uploads/:filename", staff, h.Uploads.GetUpload)
	}
}
