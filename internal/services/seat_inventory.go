package services

import (
	"errors"

	"covoiturage-backend/internal/models"

	"gorm.io/gorm"
)

// ReserveSeat атомарно занимает одно место в поездке. Проверка наличия
// свободных мест и декремент выполняются одним условным UPDATE
// (available_seats > 0), поэтому два конкурентных вызова на последнее место
// не могут пройти оба.
func ReserveSeat(tx *gorm.DB, rideID string) error {
	res := tx.Model(&models.Ride{}).
		Where("id = ? AND available_seats > 0", rideID).
		UpdateColumn("available_seats", gorm.Expr("available_seats - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// UPDATE не затронул строк: либо поездки нет, либо мест не осталось
	var ride models.Ride
	if err := tx.Select("id").First(&ride, "id = ?", rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("Поездка не найдена")
		}
		return err
	}
	return ErrConflict("Нет свободных мест в этой поездке")
}

// ReleaseSeat атомарно возвращает одно место в поездку. Верхняя граница
// не проверяется: однократность возврата гарантируется проверкой статуса
// бронирования в рамках той же транзакции.
func ReleaseSeat(tx *gorm.DB, rideID string) error {
	res := tx.Model(&models.Ride{}).
		Where("id = ?", rideID).
		UpdateColumn("available_seats", gorm.Expr("available_seats + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound("Поездка не найдена")
	}
	return nil
}
