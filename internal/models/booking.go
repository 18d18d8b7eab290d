package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"   // Ожидает подтверждения водителем
	BookingStatusConfirmed BookingStatus = "CONFIRMED" // Подтверждено водителем
	BookingStatusStarted   BookingStatus = "STARTED"   // Поездка началась
	BookingStatusCompleted BookingStatus = "COMPLETED" // Завершено (терминальный статус)
	BookingStatusCancelled BookingStatus = "CANCELLED" // Отменено (терминальный статус)
)

// BookingStatuses возвращает все возможные статусы бронирования
func BookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusStarted,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
}

// IsTerminal сообщает, что из статуса нет переходов
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking представляет бронирование одного места в поездке
type Booking struct {
	ID        string        `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string        `json:"user_id" gorm:"column:user_id;type:uuid;not null"`
	RideID    string        `json:"ride_id" gorm:"column:ride_id;type:uuid;not null"`
	TypeID    string        `json:"type_id" gorm:"column:type_id;type:uuid;not null"`
	Price     float64       `json:"price" gorm:"column:price;not null"`
	Status    BookingStatus `json:"status" gorm:"column:status;type:varchar(20);default:'PENDING'"`
	CreatedAt time.Time     `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	User      User          `json:"-" gorm:"foreignKey:UserID"`
	Ride      Ride          `json:"-" gorm:"foreignKey:RideID"`
	Type      VehicleType   `json:"-" gorm:"foreignKey:TypeID"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type BookingResponse struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	RideID         string        `json:"ride_id"`
	TypeID         string        `json:"type_id"`
	Price          float64       `json:"price"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	PassengerName  string        `json:"passenger_name,omitempty"`
	PassengerPhone string        `json:"passenger_phone,omitempty"`
	RideInfo       *RideResponse `json:"ride_info,omitempty"`
}

// ToResponse формирует ответ API для бронирования
func (b *Booking) ToResponse() BookingResponse {
	resp := BookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		RideID:    b.RideID,
		TypeID:    b.TypeID,
		Price:     b.Price,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.User.ID != "" {
		resp.PassengerName = b.User.Name
		resp.PassengerPhone = b.User.Phone
	}
	if b.Ride.ID != "" {
		ride := b.Ride.ToResponse()
		resp.RideInfo = &ride
	}
	return resp
}
