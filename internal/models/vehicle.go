package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleType представляет тариф (тип транспорта), на который оформляется бронирование
type VehicleType struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" gorm:"column:name;unique;not null;type:varchar(100)"`
	Description string    `json:"description" gorm:"column:description;default:''"`
	Price       float64   `json:"price" gorm:"column:price;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (vt *VehicleType) BeforeCreate(tx *gorm.DB) error {
	if vt.ID == "" {
		vt.ID = uuid.NewString()
	}
	return nil
}

// Vehicle — транспортное средство, закрепленное за поездками.
// Управление автопарком вынесено во внешнюю систему, здесь хранится только то,
// на что ссылаются поездки.
type Vehicle struct {
	ID        string      `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string      `json:"name" gorm:"column:name;not null;type:varchar(255)"`
	Plate     string      `json:"plate" gorm:"column:plate;unique;not null;type:varchar(20)"`
	TypeID    string      `json:"type_id" gorm:"column:type_id;type:uuid;not null"`
	Type      VehicleType `json:"-" gorm:"foreignKey:TypeID"`
	CreatedAt time.Time   `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
