package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser   = "user"   // Пассажир
	RoleDriver = "driver" // Водитель
	RoleAdmin  = "admin"  // Администратор
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string    `json:"name" gorm:"column:name;not null;type:varchar(255)"`
	Email     string    `json:"email" gorm:"column:email;unique;not null;type:varchar(255)"`
	Phone     string    `json:"phone" gorm:"column:phone;type:varchar(20)"`
	Password  string    `json:"-" gorm:"column:password;not null;type:text"`
	Role      string    `json:"role" gorm:"column:role;default:'user';type:varchar(20)"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// ToResponse формирует ответ API без пароля
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
