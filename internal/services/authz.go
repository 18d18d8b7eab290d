package services

import (
	"covoiturage-backend/internal/models"
)

// Operation — операция жизненного цикла бронирования
type Operation string

const (
	OpValidate Operation = "validate"
	OpStart    Operation = "start"
	OpComplete Operation = "complete"
	OpCancel   Operation = "cancel"
)

// transition описывает единственный допустимый переход статуса для операции
type transition struct {
	from models.BookingStatus
	to   models.BookingStatus
}

// driverTransitions — таблица переходов, выполняемых водителем поездки.
// Жизненный цикл строго линейный: PENDING -> CONFIRMED -> STARTED -> COMPLETED.
var driverTransitions = map[Operation]transition{
	OpValidate: {from: models.BookingStatusPending, to: models.BookingStatusConfirmed},
	OpStart:    {from: models.BookingStatusConfirmed, to: models.BookingStatusStarted},
	OpComplete: {from: models.BookingStatusStarted, to: models.BookingStatusCompleted},
}

// canPerform проверяет право вызывающего на операцию над бронированием.
// Проверки статуса сюда не входят: нарушение прав — Forbidden,
// нарушение жизненного цикла — Conflict.
func canPerform(op Operation, role, callerID string, booking *models.Booking, ride *models.Ride) error {
	switch op {
	case OpValidate, OpStart, OpComplete:
		if role != models.RoleDriver {
			return ErrForbidden("Операция доступна только водителю")
		}
		if ride.DriverID != callerID {
			return ErrForbidden("Вы не являетесь водителем этой поездки")
		}
	case OpCancel:
		if role == models.RoleDriver {
			if ride.DriverID != callerID {
				return ErrForbidden("Вы не являетесь водителем этой поездки")
			}
		} else {
			if booking.UserID != callerID {
				return ErrForbidden("Вы не являетесь владельцем этого бронирования")
			}
		}
	}
	return nil
}
