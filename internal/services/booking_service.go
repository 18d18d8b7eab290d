package services

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"covoiturage-backend/internal/middleware"
	"covoiturage-backend/internal/models"
	"covoiturage-backend/internal/utils"

	"gorm.io/gorm"
)

// BookingService реализует жизненный цикл бронирований. Каждая операция,
// меняющая статус, выполняется в одной транзакции вместе с изменением
// счетчика мест, поэтому инвариант
// available_seats = seats_count - |бронирования со статусом != CANCELLED|
// сохраняется при любом исходе.
type BookingService struct {
	db *gorm.DB
}

func NewBookingService(db *gorm.DB) *BookingService {
	return &BookingService{db: db}
}

// Create создает бронирование в статусе PENDING и занимает одно место
func (s *BookingService) Create(userID, rideID, typeID string, price float64) (*models.Booking, error) {
	if price <= 0 {
		return nil, ErrInvalidArgument("Цена должна быть положительной")
	}

	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var vehicleType models.VehicleType
		if err := tx.First(&vehicleType, "id = ?", typeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound("Тип транспорта не найден")
			}
			return err
		}

		if err := ReserveSeat(tx, rideID); err != nil {
			if IsStatus(err, http.StatusConflict) {
				middleware.TrackSeatConflict()
			}
			return err
		}

		booking = models.Booking{
			UserID: userID,
			RideID: rideID,
			TypeID: typeID,
			Price:  price,
			Status: models.BookingStatusPending,
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		if HTTPStatus(err) == http.StatusInternalServerError {
			log.Printf("BookingService.Create: %v", err)
			return nil, fmt.Errorf("ошибка при создании бронирования: %w", err)
		}
		return nil, err
	}

	middleware.TrackBookingCreated()
	return &booking, nil
}

// Validate подтверждает бронирование (водитель поездки, PENDING -> CONFIRMED)
func (s *BookingService) Validate(driverID, role, bookingID string) (*models.Booking, error) {
	return s.driverTransition(driverID, role, bookingID, OpValidate)
}

// Start начинает поездку по бронированию (водитель, CONFIRMED -> STARTED)
func (s *BookingService) Start(driverID, role, bookingID string) (*models.Booking, error) {
	return s.driverTransition(driverID, role, bookingID, OpStart)
}

// Complete завершает бронирование (водитель, STARTED -> COMPLETED)
func (s *BookingService) Complete(driverID, role, bookingID string) (*models.Booking, error) {
	return s.driverTransition(driverID, role, bookingID, OpComplete)
}

// driverTransition выполняет переход статуса из таблицы driverTransitions.
// Смена статуса записывается условным UPDATE по исходному статусу: гонка
// двух запросов на одно бронирование разрешается в пользу первого, второй
// получает Conflict.
func (s *BookingService) driverTransition(driverID, role, bookingID string, op Operation) (*models.Booking, error) {
	tr, ok := driverTransitions[op]
	if !ok {
		return nil, fmt.Errorf("неизвестная операция: %s", op)
	}

	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ride, err := s.loadBookingAndRide(tx, bookingID, &booking)
		if err != nil {
			return err
		}

		if err := canPerform(op, role, driverID, &booking, ride); err != nil {
			return err
		}

		if booking.Status != tr.from {
			return ErrConflict(fmt.Sprintf("Бронирование в статусе %s не может перейти в %s", booking.Status, tr.to))
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, tr.from).
			Updates(map[string]interface{}{"status": tr.to, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict("Статус бронирования уже изменен")
		}

		booking.Status = tr.to
		return nil
	})
	if err != nil {
		if HTTPStatus(err) == http.StatusInternalServerError {
			log.Printf("BookingService.%s: %v", op, err)
			return nil, fmt.Errorf("ошибка при обновлении бронирования: %w", err)
		}
		return nil, err
	}

	middleware.TrackBookingTransition(string(booking.Status))
	return &booking, nil
}

// Cancel отменяет бронирование и возвращает место в поездку.
// Пассажир может отменить свое бронирование, пока поездка не началась;
// водитель — только подтвержденное (CONFIRMED) бронирование своей поездки.
// Место возвращается ровно один раз: условный UPDATE по исходному статусу
// исключает двойную отмену.
func (s *BookingService) Cancel(callerID, role, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ride, err := s.loadBookingAndRide(tx, bookingID, &booking)
		if err != nil {
			return err
		}

		if booking.Status == models.BookingStatusStarted || booking.Status == models.BookingStatusCompleted {
			return ErrConflict("Невозможно отменить начатую или завершенную поездку")
		}
		if booking.Status == models.BookingStatusCancelled {
			return ErrConflict("Бронирование уже отменено")
		}

		if err := canPerform(OpCancel, role, callerID, &booking, ride); err != nil {
			return err
		}

		// Водитель освобождается от обязательств только по подтвержденной
		// брони; PENDING еще ни к чему его не обязывает
		allowedFrom := []models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed}
		if role == models.RoleDriver {
			if booking.Status != models.BookingStatusConfirmed {
				return ErrConflict("Водитель может отменить только подтвержденное бронирование")
			}
			allowedFrom = []models.BookingStatus{models.BookingStatusConfirmed}
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN ?", bookingID, allowedFrom).
			Updates(map[string]interface{}{"status": models.BookingStatusCancelled, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict("Статус бронирования уже изменен")
		}

		if err := ReleaseSeat(tx, booking.RideID); err != nil {
			return err
		}

		booking.Status = models.BookingStatusCancelled
		return nil
	})
	if err != nil {
		if HTTPStatus(err) == http.StatusInternalServerError {
			log.Printf("BookingService.Cancel: %v", err)
			return nil, fmt.Errorf("ошибка при отмене бронирования: %w", err)
		}
		return nil, err
	}

	middleware.TrackBookingTransition(string(models.BookingStatusCancelled))
	return &booking, nil
}

// loadBookingAndRide загружает бронирование и его поездку внутри транзакции
func (s *BookingService) loadBookingAndRide(tx *gorm.DB, bookingID string, booking *models.Booking) (*models.Ride, error) {
	if err := tx.First(booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Бронирование не найдено")
		}
		return nil, err
	}

	var ride models.Ride
	if err := tx.First(&ride, "id = ?", booking.RideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Поездка не найдена")
		}
		return nil, err
	}
	return &ride, nil
}

// Statuses возвращает фиксированный список статусов бронирования
func (s *BookingService) Statuses() []string {
	statuses := models.BookingStatuses()
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

// FindByID возвращает бронирование со связанными сущностями
func (s *BookingService) FindByID(bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Preload("User").Preload("Ride").Preload("Type").
		First(&booking, "id = ?", bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Бронирование не найдено")
		}
		return nil, err
	}
	return &booking, nil
}

// FindByUser возвращает бронирования пассажира, новые первыми
func (s *BookingService) FindByUser(userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.Preload("Ride").Preload("Ride.Driver").Preload("Type").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// FindPaginated возвращает страницу бронирований, новые первыми
func (s *BookingService) FindPaginated(page, limit int) (*utils.PageResult, error) {
	var bookings []models.Booking
	query := s.db.Model(&models.Booking{}).
		Preload("User").Preload("Ride").Preload("Type").
		Order("created_at DESC")
	return utils.Paginate(query, page, limit, &bookings)
}
