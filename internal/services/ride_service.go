package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"covoiturage-backend/internal/middleware"
	"covoiturage-backend/internal/models"
	"covoiturage-backend/internal/utils"

	"gorm.io/gorm"
)

// Допуск совпадения координат при поиске: ~1 км по широте/долготе
const coordinateDelta = 0.01

// RideService управляет поездками и их поиском
type RideService struct {
	db    *gorm.DB
	cache *SearchCache
}

func NewRideService(db *gorm.DB, cache *SearchCache) *RideService {
	if cache == nil {
		cache = NewSearchCache(nil)
	}
	return &RideService{db: db, cache: cache}
}

// RideCreateParams — входные данные для создания поездки
type RideCreateParams struct {
	DriverID         string
	VehicleID        string
	Departure        string
	Destination      string
	DepartureLat     *float64
	DepartureLng     *float64
	DestinationLat   *float64
	DestinationLng   *float64
	Stops            models.StopPoints
	DepartureTime    time.Time
	EstimatedArrival *time.Time
	TotalDistance    *float64
	Price            float64
	SeatsCount       int
}

// Create создает поездку. Счетчик свободных мест инициализируется
// вместимостью: активных бронирований еще нет.
func (s *RideService) Create(params RideCreateParams) (*models.Ride, error) {
	if params.Departure == "" || params.Destination == "" {
		return nil, ErrInvalidArgument("Пункты отправления и назначения обязательны")
	}
	if params.SeatsCount < 1 {
		return nil, ErrInvalidArgument("Число мест должно быть положительным")
	}
	if params.DepartureTime.IsZero() {
		return nil, ErrInvalidArgument("Время отправления обязательно")
	}

	var driver models.User
	if err := s.db.First(&driver, "id = ?", params.DriverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Водитель не найден")
		}
		return nil, err
	}
	if driver.Role != models.RoleDriver {
		return nil, ErrForbidden("Создавать поездки может только водитель")
	}

	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, "id = ?", params.VehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Транспортное средство не найдено")
		}
		return nil, err
	}

	ride := models.Ride{
		DriverID:          params.DriverID,
		VehicleID:         params.VehicleID,
		Departure:         params.Departure,
		Destination:       params.Destination,
		DepartureLat:      params.DepartureLat,
		DepartureLng:      params.DepartureLng,
		DestinationLat:    params.DestinationLat,
		DestinationLng:    params.DestinationLng,
		Stops:             normalizeStops(params.Stops),
		DepartureTime:     params.DepartureTime,
		EstimatedArrival:  params.EstimatedArrival,
		EstimatedDuration: utils.EstimatedDuration(params.DepartureTime, params.EstimatedArrival),
		TotalDistance:     params.TotalDistance,
		Price:             params.Price,
		SeatsCount:        params.SeatsCount,
		AvailableSeats:    params.SeatsCount,
	}

	if err := s.db.Create(&ride).Error; err != nil {
		log.Printf("RideService.Create: %v", err)
		return nil, fmt.Errorf("ошибка при создании поездки: %w", err)
	}
	return &ride, nil
}

// RideUpdateParams — частичное обновление поездки. nil-поля не меняются.
type RideUpdateParams struct {
	Departure        *string
	Destination      *string
	DepartureLat     *float64
	DepartureLng     *float64
	DestinationLat   *float64
	DestinationLng   *float64
	Stops            *models.StopPoints
	DepartureTime    *time.Time
	EstimatedArrival *time.Time
	TotalDistance    *float64
	Price            *float64
}

// Update меняет расписание и маршрут поездки. Вместимость и счетчик мест
// через эту операцию не редактируются: ими владеет учет мест.
func (s *RideService) Update(rideID string, params RideUpdateParams) (*models.Ride, error) {
	var ride models.Ride
	if err := s.db.First(&ride, "id = ?", rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Поездка не найдена")
		}
		return nil, err
	}

	if params.Departure != nil {
		ride.Departure = *params.Departure
	}
	if params.Destination != nil {
		ride.Destination = *params.Destination
	}
	if params.DepartureLat != nil {
		ride.DepartureLat = params.DepartureLat
	}
	if params.DepartureLng != nil {
		ride.DepartureLng = params.DepartureLng
	}
	if params.DestinationLat != nil {
		ride.DestinationLat = params.DestinationLat
	}
	if params.DestinationLng != nil {
		ride.DestinationLng = params.DestinationLng
	}
	if params.Stops != nil {
		ride.Stops = normalizeStops(*params.Stops)
	}
	if params.DepartureTime != nil {
		ride.DepartureTime = *params.DepartureTime
	}
	if params.EstimatedArrival != nil {
		ride.EstimatedArrival = params.EstimatedArrival
	}
	if params.TotalDistance != nil {
		ride.TotalDistance = params.TotalDistance
	}
	if params.Price != nil {
		ride.Price = *params.Price
	}
	ride.EstimatedDuration = utils.EstimatedDuration(ride.DepartureTime, ride.EstimatedArrival)

	if err := s.db.Save(&ride).Error; err != nil {
		log.Printf("RideService.Update: %v", err)
		return nil, fmt.Errorf("ошибка при обновлении поездки: %w", err)
	}
	return &ride, nil
}

// FindByID возвращает поездку со связанными сущностями
func (s *RideService) FindByID(rideID string) (*models.Ride, error) {
	var ride models.Ride
	err := s.db.Preload("Driver").Preload("Vehicle").
		First(&ride, "id = ?", rideID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("Поездка не найдена")
		}
		return nil, err
	}
	return &ride, nil
}

// FindPaginated возвращает страницу поездок, новые первыми
func (s *RideService) FindPaginated(page, limit int) (*utils.PageResult, error) {
	var rides []models.Ride
	query := s.db.Model(&models.Ride{}).Preload("Driver").Order("created_at DESC")
	return utils.Paginate(query, page, limit, &rides)
}

// FindByDriver возвращает поездки водителя по времени отправления
func (s *RideService) FindByDriver(driverID string, page, limit int) (*utils.PageResult, error) {
	var rides []models.Ride
	query := s.db.Model(&models.Ride{}).
		Where("driver_id = ?", driverID).
		Order("departure_time DESC")
	return utils.Paginate(query, page, limit, &rides)
}

// FindByVehicle возвращает поездки транспортного средства
func (s *RideService) FindByVehicle(vehicleID string, page, limit int) (*utils.PageResult, error) {
	var rides []models.Ride
	query := s.db.Model(&models.Ride{}).
		Where("vehicle_id = ?", vehicleID).
		Order("departure_time DESC")
	return utils.Paginate(query, page, limit, &rides)
}

// Delete удаляет поездку. Незавершенные бронирования отменяются в той же
// транзакции, чтобы они не пережили поездку; счетчик мест исчезает вместе
// со строкой поездки.
func (s *RideService) Delete(rideID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.First(&ride, "id = ?", rideID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound("Поездка не найдена")
			}
			return err
		}

		res := tx.Model(&models.Booking{}).
			Where("ride_id = ? AND status NOT IN ?", rideID,
				[]models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled}).
			Updates(map[string]interface{}{"status": models.BookingStatusCancelled, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}

		return tx.Delete(&models.Ride{}, "id = ?", rideID).Error
	})
	if err != nil {
		if HTTPStatus(err) == http.StatusInternalServerError {
			log.Printf("RideService.Delete: %v", err)
			return fmt.Errorf("ошибка при удалении поездки: %w", err)
		}
		return err
	}
	return nil
}

// SearchParams — параметры поиска поездок. Достаточно указать хотя бы
// один пункт по названию либо обе пары координат.
type SearchParams struct {
	Depart         string
	Destination    string
	DepartureLat   *float64
	DepartureLng   *float64
	DestinationLat *float64
	DestinationLng *float64
	Page           int
	Limit          int
}

// SearchResult — пагинированный результат поиска с признаком того,
// что совпадения нашлись через промежуточные остановки
type SearchResult struct {
	Data        []models.RideResponse `json:"data"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Limit       int                   `json:"limit"`
	ViaFallback bool                  `json:"via_fallback"`
}

func (p *SearchParams) hasCoordinates() bool {
	return p.DepartureLat != nil && p.DepartureLng != nil &&
		p.DestinationLat != nil && p.DestinationLng != nil
}

func (p *SearchParams) cacheKey() string {
	key := fmt.Sprintf("search:%s:%s:%d:%d",
		strings.ToLower(p.Depart), strings.ToLower(p.Destination), p.Page, p.Limit)
	if p.hasCoordinates() {
		key += fmt.Sprintf(":%.4f:%.4f:%.4f:%.4f",
			*p.DepartureLat, *p.DepartureLng, *p.DestinationLat, *p.DestinationLng)
	}
	return key
}

// Search ищет поездки по пунктам отправления/назначения.
// Основной запрос — регистронезависимое вхождение по полям поездки,
// сортировка по времени отправления. Если он ничего не нашел, выполняется
// запасной проход по промежуточным остановкам: названия остановок должны
// покрыть оба запрошенных пункта (не обязательно одной остановкой).
func (s *RideService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Depart == "" && params.Destination == "" && !params.hasCoordinates() {
		return nil, ErrInvalidArgument("Требуется пункт отправления или назначения")
	}
	params.Page, params.Limit = utils.NormalizePage(params.Page, params.Limit)

	if cached, ok := s.cache.Get(ctx, params.cacheKey()); ok {
		return cached, nil
	}

	query := s.db.Model(&models.Ride{}).Preload("Driver")
	if params.Depart != "" {
		query = query.Where("LOWER(departure) LIKE ?", "%"+strings.ToLower(params.Depart)+"%")
	}
	if params.Destination != "" {
		query = query.Where("LOWER(destination) LIKE ?", "%"+strings.ToLower(params.Destination)+"%")
	}
	if params.hasCoordinates() {
		query = query.
			Where("departure_lat BETWEEN ? AND ?", *params.DepartureLat-coordinateDelta, *params.DepartureLat+coordinateDelta).
			Where("departure_lng BETWEEN ? AND ?", *params.DepartureLng-coordinateDelta, *params.DepartureLng+coordinateDelta).
			Where("destination_lat BETWEEN ? AND ?", *params.DestinationLat-coordinateDelta, *params.DestinationLat+coordinateDelta).
			Where("destination_lng BETWEEN ? AND ?", *params.DestinationLng-coordinateDelta, *params.DestinationLng+coordinateDelta)
	}
	query = query.Order("departure_time DESC")

	var rides []models.Ride
	page, err := utils.Paginate(query, params.Page, params.Limit, &rides)
	if err != nil {
		log.Printf("RideService.Search: %v", err)
		return nil, fmt.Errorf("ошибка при поиске поездок: %w", err)
	}

	result := &SearchResult{
		Data:  toRideResponses(rides),
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}

	// Запасной проход по остановкам
	if len(rides) == 0 && (params.Depart != "" || params.Destination != "") {
		fallback, err := s.searchByStops(params)
		if err != nil {
			return nil, err
		}
		result = fallback
	}

	middleware.TrackRideSearch(result.ViaFallback)
	s.cache.Set(ctx, params.cacheKey(), result)
	return result, nil
}

// searchByStops сканирует все поездки и отбирает те, чьи остановки
// покрывают запрошенные пункты. Пагинация — срезом в памяти.
func (s *RideService) searchByStops(params SearchParams) (*SearchResult, error) {
	var all []models.Ride
	if err := s.db.Preload("Driver").Order("departure_time DESC").Find(&all).Error; err != nil {
		log.Printf("RideService.searchByStops: %v", err)
		return nil, fmt.Errorf("ошибка при поиске по остановкам: %w", err)
	}

	depart := strings.ToLower(params.Depart)
	destination := strings.ToLower(params.Destination)

	var matched []models.Ride
	for _, ride := range all {
		if len(ride.Stops) == 0 {
			continue
		}

		matchDep := depart == ""
		matchDest := destination == ""
		for _, stop := range ride.Stops {
			name := strings.ToLower(stop.Name)
			if depart != "" && strings.Contains(name, depart) {
				matchDep = true
			}
			if destination != "" && strings.Contains(name, destination) {
				matchDest = true
			}
		}

		if matchDep && matchDest {
			matched = append(matched, ride)
		}
	}

	start := (params.Page - 1) * params.Limit
	end := start + params.Limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return &SearchResult{
		Data:        toRideResponses(matched[start:end]),
		Total:       int64(len(matched)),
		Page:        params.Page,
		Limit:       params.Limit,
		ViaFallback: true,
	}, nil
}

// normalizeStops проставляет порядковые номера остановкам, если они не заданы
func normalizeStops(stops models.StopPoints) models.StopPoints {
	for i := range stops {
		if stops[i].Order == 0 {
			stops[i].Order = i + 1
		}
	}
	return stops
}

func toRideResponses(rides []models.Ride) []models.RideResponse {
	out := make([]models.RideResponse, 0, len(rides))
	for i := range rides {
		out = append(out, rides[i].ToResponse())
	}
	return out
}
