package handlers

import (
	"net/http"
	"strconv"

	"covoiturage-backend/internal/models"
	"covoiturage-backend/internal/services"
	"covoiturage-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// abortWithServiceError переводит ошибку сервиса в HTTP ответ
func abortWithServiceError(c *gin.Context, err error) {
	c.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
}

// pageParams читает параметры пагинации из query
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}

// BookingCreate создает новое бронирование
func BookingCreate(db *gorm.DB) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		var req struct {
			RideID string  `json:"ride_id" binding:"required"`
			TypeID string  `json:"type_id" binding:"required"`
			Price  float64 `json:"price" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID := c.GetString("user_id")

		booking, err := svc.Create(userID, req.RideID, req.TypeID, req.Price)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		// Уведомляем водителя о новой брони
		var ride models.Ride
		if err := db.First(&ride, "id = ?", booking.RideID).Error; err == nil {
			websocket.SendBookingStatusUpdate(ride.DriverID, booking.ID, string(booking.Status))
		}

		c.JSON(http.StatusCreated, booking.ToResponse())
	}
}

// BookingValidate подтверждает бронирование (водитель поездки)
func BookingValidate(db *gorm.DB) gin.HandlerFunc {
	return bookingTransitionHandler(db, services.OpValidate)
}

// BookingStart начинает поездку по бронированию (водитель поездки)
func BookingStart(db *gorm.DB) gin.HandlerFunc {
	return bookingTransitionHandler(db, services.OpStart)
}

// BookingComplete завершает бронирование (водитель поездки)
func BookingComplete(db *gorm.DB) gin.HandlerFunc {
	return bookingTransitionHandler(db, services.OpComplete)
}

func bookingTransitionHandler(db *gorm.DB, op services.Operation) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		userID := c.GetString("user_id")
		role := c.GetString("role")

		var booking *models.Booking
		var err error
		switch op {
		case services.OpValidate:
			booking, err = svc.Validate(userID, role, bookingID)
		case services.OpStart:
			booking, err = svc.Start(userID, role, bookingID)
		case services.OpComplete:
			booking, err = svc.Complete(userID, role, bookingID)
		}
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		// Уведомляем пассажира об изменении статуса
		websocket.SendBookingStatusUpdate(booking.UserID, booking.ID, string(booking.Status))

		c.JSON(http.StatusOK, booking.ToResponse())
	}
}

// BookingCancel отменяет бронирование (пассажир или водитель поездки)
func BookingCancel(db *gorm.DB) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		userID := c.GetString("user_id")
		role := c.GetString("role")

		booking, err := svc.Cancel(userID, role, bookingID)
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		// Уведомляем обе стороны об отмене
		websocket.SendBookingStatusUpdate(booking.UserID, booking.ID, string(booking.Status))
		var ride models.Ride
		if err := db.First(&ride, "id = ?", booking.RideID).Error; err == nil {
			websocket.SendBookingStatusUpdate(ride.DriverID, booking.ID, string(booking.Status))
		}

		c.JSON(http.StatusOK, booking.ToResponse())
	}
}

// BookingStatuses возвращает список возможных статусов бронирования
func BookingStatuses(db *gorm.DB) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"statuses": svc.Statuses()})
	}
}

// BookingGetByID возвращает бронирование по идентификатору
func BookingGetByID(db *gorm.DB) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		booking, err := svc.FindByID(c.Param("id"))
		if err != nil {
			abortWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, booking.ToResponse())
	}
}

// BookingGetByUser возвращает бронирования текущего пользователя
func BookingGetByUser(db *gorm.DB) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		bookings, err := svc.FindByUser(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении бронирований"})
			return
		}

		response := make([]models.BookingResponse, 0, len(bookings))
		for i := range bookings {
			response = append(response, bookings[i].ToResponse())
		}

		c.JSON(http.StatusOK, response)
	}
}

// BookingList возвращает страницу всех бронирований (админ)
func BookingList(db *gorm.DB) gin.HandlerFunc {
	svc := services.NewBookingService(db)
	return func(c *gin.Context) {
		page, limit := pageParams(c)

		result, err := svc.FindPaginated(page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении бронирований"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
