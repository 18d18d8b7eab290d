package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StopPoint — промежуточная остановка поездки
type StopPoint struct {
	Name        string     `json:"name"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Order       int        `json:"order"`
	ArrivalTime *time.Time `json:"arrival_time,omitempty"`
}

type StopPoints []StopPoint

// Ride представляет запланированную поездку с фиксированным числом мест
type Ride struct {
	ID                string     `json:"id" gorm:"primaryKey;type:uuid"`
	DriverID          string     `json:"driver_id" gorm:"column:driver_id;type:uuid;not null"`
	VehicleID         string     `json:"vehicle_id" gorm:"column:vehicle_id;type:uuid;not null"`
	Departure         string     `json:"departure" gorm:"column:departure;not null"`
	Destination       string     `json:"destination" gorm:"column:destination;not null"`
	DepartureLat      *float64   `json:"departure_lat,omitempty" gorm:"column:departure_lat"`
	DepartureLng      *float64   `json:"departure_lng,omitempty" gorm:"column:departure_lng"`
	DestinationLat    *float64   `json:"destination_lat,omitempty" gorm:"column:destination_lat"`
	DestinationLng    *float64   `json:"destination_lng,omitempty" gorm:"column:destination_lng"`
	Stops             StopPoints `json:"stops" gorm:"column:stops;serializer:json"`
	DepartureTime     time.Time  `json:"departure_time" gorm:"column:departure_time;not null"`
	EstimatedArrival  *time.Time `json:"estimated_arrival,omitempty" gorm:"column:estimated_arrival"`
	EstimatedDuration string     `json:"estimated_duration" gorm:"column:estimated_duration;type:varchar(10);default:'00:00'"`
	TotalDistance     *float64   `json:"total_distance,omitempty" gorm:"column:total_distance"`
	Price             float64    `json:"price" gorm:"column:price;not null"`
	SeatsCount        int        `json:"seats_count" gorm:"column:seats_count;not null"`
	AvailableSeats    int        `json:"available_seats" gorm:"column:available_seats;not null"`
	CreatedAt         time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	Driver            User       `json:"-" gorm:"foreignKey:DriverID"`
	Vehicle           Vehicle    `json:"-" gorm:"foreignKey:VehicleID"`
	Bookings          []Booking  `json:"-" gorm:"foreignKey:RideID"`
}

func (r *Ride) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type RideResponse struct {
	ID                string     `json:"id"`
	DriverID          string     `json:"driver_id"`
	VehicleID         string     `json:"vehicle_id"`
	Departure         string     `json:"departure"`
	Destination       string     `json:"destination"`
	DepartureLat      *float64   `json:"departure_lat,omitempty"`
	DepartureLng      *float64   `json:"departure_lng,omitempty"`
	DestinationLat    *float64   `json:"destination_lat,omitempty"`
	DestinationLng    *float64   `json:"destination_lng,omitempty"`
	Stops             StopPoints `json:"stops"`
	DepartureTime     time.Time  `json:"departure_time"`
	EstimatedArrival  *time.Time `json:"estimated_arrival,omitempty"`
	EstimatedDuration string     `json:"estimated_duration"`
	TotalDistance     *float64   `json:"total_distance,omitempty"`
	Price             float64    `json:"price"`
	SeatsCount        int        `json:"seats_count"`
	AvailableSeats    int        `json:"available_seats"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DriverName        string     `json:"driver_name,omitempty"`
}

// ToResponse формирует ответ API для поездки
func (r *Ride) ToResponse() RideResponse {
	stops := r.Stops
	if stops == nil {
		stops = StopPoints{}
	}
	resp := RideResponse{
		ID:                r.ID,
		DriverID:          r.DriverID,
		VehicleID:         r.VehicleID,
		Departure:         r.Departure,
		Destination:       r.Destination,
		DepartureLat:      r.DepartureLat,
		DepartureLng:      r.DepartureLng,
		DestinationLat:    r.DestinationLat,
		DestinationLng:    r.DestinationLng,
		Stops:             stops,
		DepartureTime:     r.DepartureTime,
		EstimatedArrival:  r.EstimatedArrival,
		EstimatedDuration: r.EstimatedDuration,
		TotalDistance:     r.TotalDistance,
		Price:             r.Price,
		SeatsCount:        r.SeatsCount,
		AvailableSeats:    r.AvailableSeats,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.Driver.ID != "" {
		resp.DriverName = r.Driver.Name
	}
	return resp
}
