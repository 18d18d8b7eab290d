package handlers

import (
	"net/http"

	"covoiturage-backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VehicleTypeList возвращает список типов транспорта
func VehicleTypeList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var types []models.VehicleType
		if err := db.Order("name ASC").Find(&types).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении типов транспорта"})
			return
		}

		c.JSON(http.StatusOK, types)
	}
}

// VehicleTypeGetByID возвращает тип транспорта по идентификатору
func VehicleTypeGetByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vehicleType models.VehicleType
		if err := db.First(&vehicleType, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Тип транспорта не найден"})
			return
		}

		c.JSON(http.StatusOK, vehicleType)
	}
}
