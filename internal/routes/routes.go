package routes

import (
	"covoiturage-backend/internal/handlers"
	"covoiturage-backend/internal/middleware"
	"covoiturage-backend/internal/services"
	"covoiturage-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(api *gin.RouterGroup, db *gorm.DB, cache *services.SearchCache) {
	// Публичные маршруты для аутентификации
	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register(db))
		auth.POST("/login", handlers.Login(db))
	}

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth())
	{
		// Получение информации о текущем пользователе
		protected.GET("/user", handlers.GetCurrentUser(db))

		// Роуты для пользователей
		protected.GET("/profile", handlers.UserGetProfile(db))
		protected.PUT("/profile", handlers.UserUpdateProfile(db))

		// Роуты для поездок
		protected.POST("/rides", handlers.RideCreate(db, cache))
		protected.GET("/rides", handlers.RideList(db, cache))
		protected.GET("/rides/:id", handlers.RideGetByID(db, cache))
		protected.PUT("/rides/:id", handlers.RideUpdate(db, cache))
		protected.DELETE("/rides/:id", handlers.RideDelete(db, cache))
		protected.POST("/rides/search", handlers.RideSearch(db, cache))
		protected.GET("/drivers/:id/rides", handlers.RideGetByDriver(db, cache))
		protected.GET("/vehicles/:id/rides", handlers.RideGetByVehicle(db, cache))

		// Роуты для бронирований
		protected.POST("/bookings", handlers.BookingCreate(db))
		protected.GET("/bookings", handlers.BookingList(db))
		protected.GET("/bookings/statuses", handlers.BookingStatuses(db))
		protected.GET("/bookings/user", handlers.BookingGetByUser(db))
		protected.GET("/bookings/:id", handlers.BookingGetByID(db))
		protected.PUT("/bookings/:id/validate", handlers.BookingValidate(db))
		protected.PUT("/bookings/:id/start", handlers.BookingStart(db))
		protected.PUT("/bookings/:id/complete", handlers.BookingComplete(db))
		protected.PUT("/bookings/:id/cancel", handlers.BookingCancel(db))

		// Роуты для типов транспорта
		protected.GET("/vehicle-types", handlers.VehicleTypeList(db))
		protected.GET("/vehicle-types/:id", handlers.VehicleTypeGetByID(db))

		// WebSocket подключение для получения обновлений в реальном времени
		protected.GET("/ws", websocket.Handler(db))
	}
}
