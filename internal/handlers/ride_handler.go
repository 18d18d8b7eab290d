package handlers

import (
	"net/http"
	"time"

	"covoiturage-backend/internal/models"
	"covoiturage-backend/internal/services"
	"covoiturage-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RideCreate создает новую поездку (водитель)
func RideCreate(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		var req struct {
			VehicleID        string            `json:"vehicle_id" binding:"required"`
			Departure        string            `json:"departure" binding:"required"`
			Destination      string            `json:"destination" binding:"required"`
			DepartureLat     *float64          `json:"departure_lat"`
			DepartureLng     *float64          `json:"departure_lng"`
			DestinationLat   *float64          `json:"destination_lat"`
			DestinationLng   *float64          `json:"destination_lng"`
			Stops            models.StopPoints `json:"stops"`
			DepartureTime    time.Time         `json:"departure_time" binding:"required"`
			EstimatedArrival *time.Time        `json:"estimated_arrival"`
			TotalDistance    *float64          `json:"total_distance"`
			Price            float64           `json:"price" binding:"required"`
			SeatsCount       int               `json:"seats_count" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		driverID := c.GetString("user_id")

		ride, err := svc.Create(services.RideCreateParams{
			DriverID:         driverID,
			VehicleID:        req.VehicleID,
			Departure:        req.Departure,
			Destination:      req.Destination,
			DepartureLat:     req.DepartureLat,
			DepartureLng:     req.DepartureLng,
			DestinationLat:   req.DestinationLat,
			DestinationLng:   req.DestinationLng,
			Stops:            req.Stops,
			DepartureTime:    req.DepartureTime,
			EstimatedArrival: req.EstimatedArrival,
			TotalDistance:    req.TotalDistance,
			Price:            req.Price,
			SeatsCount:       req.SeatsCount,
		})
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, ride.ToResponse())
	}
}

// RideUpdate обновляет расписание и маршрут поездки (водитель поездки)
func RideUpdate(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		rideID := c.Param("id")
		userID := c.GetString("user_id")
		role := c.GetString("role")

		current, err := svc.FindByID(rideID)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}
		if role != models.RoleAdmin && current.DriverID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Вы не являетесь водителем этой поездки"})
			return
		}

		var req struct {
			Departure        *string            `json:"departure"`
			Destination      *string            `json:"destination"`
			DepartureLat     *float64           `json:"departure_lat"`
			DepartureLng     *float64           `json:"departure_lng"`
			DestinationLat   *float64           `json:"destination_lat"`
			DestinationLng   *float64           `json:"destination_lng"`
			Stops            *models.StopPoints `json:"stops"`
			DepartureTime    *time.Time         `json:"departure_time"`
			EstimatedArrival *time.Time         `json:"estimated_arrival"`
			TotalDistance    *float64           `json:"total_distance"`
			Price            *float64           `json:"price"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		ride, err := svc.Update(rideID, services.RideUpdateParams{
			Departure:        req.Departure,
			Destination:      req.Destination,
			DepartureLat:     req.DepartureLat,
			DepartureLng:     req.DepartureLng,
			DestinationLat:   req.DestinationLat,
			DestinationLng:   req.DestinationLng,
			Stops:            req.Stops,
			DepartureTime:    req.DepartureTime,
			EstimatedArrival: req.EstimatedArrival,
			TotalDistance:    req.TotalDistance,
			Price:            req.Price,
		})
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, ride.ToResponse())
	}
}

// RideGetByID возвращает поездку по идентификатору
func RideGetByID(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		ride, err := svc.FindByID(c.Param("id"))
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, ride.ToResponse())
	}
}

// RideList возвращает страницу поездок
func RideList(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		page, limit := pageParams(c)

		result, err := svc.FindPaginated(page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении поездок"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// RideGetByDriver возвращает поездки водителя
func RideGetByDriver(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		page, limit := pageParams(c)

		result, err := svc.FindByDriver(c.Param("id"), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении поездок водителя"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// RideGetByVehicle возвращает поездки транспортного средства
func RideGetByVehicle(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		page, limit := pageParams(c)

		result, err := svc.FindByVehicle(c.Param("id"), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении поездок"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// RideDelete удаляет поездку вместе с отменой ее незавершенных бронирований
func RideDelete(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		rideID := c.Param("id")
		userID := c.GetString("user_id")
		role := c.GetString("role")

		ride, err := svc.FindByID(rideID)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}
		if role != models.RoleAdmin && ride.DriverID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Вы не являетесь водителем этой поездки"})
			return
		}

		// Уведомляем пассажиров незавершенных бронирований до удаления
		var bookings []models.Booking
		db.Where("ride_id = ? AND status NOT IN ?", rideID,
			[]models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled}).
			Find(&bookings)

		if err := svc.Delete(rideID); err != nil {
			abortWithServiceError(c, err)
			return
		}

		for _, booking := range bookings {
			websocket.SendBookingStatusUpdate(booking.UserID, booking.ID, string(models.BookingStatusCancelled))
		}

		c.JSON(http.StatusOK, gin.H{"message": "Поездка удалена"})
	}
}

// RideSearch ищет поездки по пунктам отправления и назначения
func RideSearch(db *gorm.DB, cache *services.SearchCache) gin.HandlerFunc {
	svc := services.NewRideService(db, cache)
	return func(c *gin.Context) {
		var req struct {
			Depart         string   `json:"depart"`
			Destination    string   `json:"destination"`
			DepartureLat   *float64 `json:"departure_lat"`
			DepartureLng   *float64 `json:"departure_lng"`
			DestinationLat *float64 `json:"destination_lat"`
			DestinationLng *float64 `json:"destination_lng"`
			Page           int      `json:"page"`
			Limit          int      `json:"limit"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		result, err := svc.Search(c.Request.Context(), services.SearchParams{
			Depart:         req.Depart,
			Destination:    req.Destination,
			DepartureLat:   req.DepartureLat,
			DepartureLng:   req.DepartureLng,
			DestinationLat: req.DestinationLat,
			DestinationLng: req.DestinationLng,
			Page:           req.Page,
			Limit:          req.Limit,
		})
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		message := "Поездки найдены"
		if result.ViaFallback {
			message = "Поездки найдены через промежуточные остановки"
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      message,
			"data":         result.Data,
			"total":        result.Total,
			"page":         result.Page,
			"limit":        result.Limit,
			"via_fallback": result.ViaFallback,
		})
	}
}
