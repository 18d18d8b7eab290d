package services

import (
	"testing"
	"time"

	"covoiturage-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB поднимает чистую sqlite базу в памяти.
// Одно соединение в пуле: конкурентные транзакции сериализуются базой,
// а не падают с ошибкой блокировки.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("открытие тестовой базы: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("доступ к sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.VehicleType{},
		&models.Vehicle{},
		&models.Ride{},
		&models.Booking{},
	); err != nil {
		t.Fatalf("миграция тестовой базы: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()
	user := models.User{
		Name:     name,
		Email:    email,
		Phone:    "+33600000000",
		Password: "hash",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("создание пользователя %s: %v", email, err)
	}
	return user
}

func createVehicleType(t *testing.T, db *gorm.DB, name string, price float64) models.VehicleType {
	t.Helper()
	vt := models.VehicleType{Name: name, Price: price}
	if err := db.Create(&vt).Error; err != nil {
		t.Fatalf("создание типа транспорта %s: %v", name, err)
	}
	return vt
}

func createVehicle(t *testing.T, db *gorm.DB, typeID, plate string) models.Vehicle {
	t.Helper()
	v := models.Vehicle{Name: "Renault Clio", Plate: plate, TypeID: typeID}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("создание транспортного средства %s: %v", plate, err)
	}
	return v
}

// rideOpts настраивает тестовую поездку перед сохранением
type rideOpts func(*models.Ride)

func withSeats(n int) rideOpts {
	return func(r *models.Ride) {
		r.SeatsCount = n
		r.AvailableSeats = n
	}
}

func withStops(stops models.StopPoints) rideOpts {
	return func(r *models.Ride) {
		r.Stops = stops
	}
}

func withRoute(departure, destination string) rideOpts {
	return func(r *models.Ride) {
		r.Departure = departure
		r.Destination = destination
	}
}

func withCoordinates(depLat, depLng, destLat, destLng float64) rideOpts {
	return func(r *models.Ride) {
		r.DepartureLat = &depLat
		r.DepartureLng = &depLng
		r.DestinationLat = &destLat
		r.DestinationLng = &destLng
	}
}

func withDepartureTime(at time.Time) rideOpts {
	return func(r *models.Ride) {
		r.DepartureTime = at
	}
}

func createRide(t *testing.T, db *gorm.DB, driverID, vehicleID string, opts ...rideOpts) models.Ride {
	t.Helper()
	ride := models.Ride{
		DriverID:       driverID,
		VehicleID:      vehicleID,
		Departure:      "Paris",
		Destination:    "Lyon",
		DepartureTime:  time.Now().Add(24 * time.Hour),
		Price:          35,
		SeatsCount:     3,
		AvailableSeats: 3,
	}
	for _, opt := range opts {
		opt(&ride)
	}
	if err := db.Create(&ride).Error; err != nil {
		t.Fatalf("создание поездки: %v", err)
	}
	return ride
}

// fixture — стандартный набор сущностей для тестов бронирований
type fixture struct {
	db       *gorm.DB
	driver   models.User
	rider    models.User
	vt       models.VehicleType
	vehicle  models.Vehicle
	ride     models.Ride
	bookings *BookingService
	rides    *RideService
}

func newFixture(t *testing.T, opts ...rideOpts) *fixture {
	t.Helper()
	db := newTestDB(t)
	driver := createUser(t, db, "Jean", "jean@example.com", models.RoleDriver)
	rider := createUser(t, db, "Marie", "marie@example.com", models.RoleUser)
	vt := createVehicleType(t, db, "Standard", 10)
	vehicle := createVehicle(t, db, vt.ID, "AB-123-CD")
	ride := createRide(t, db, driver.ID, vehicle.ID, opts...)
	return &fixture{
		db:       db,
		driver:   driver,
		rider:    rider,
		vt:       vt,
		vehicle:  vehicle,
		ride:     ride,
		bookings: NewBookingService(db),
		rides:    NewRideService(db, nil),
	}
}

func (f *fixture) availableSeats(t *testing.T) int {
	t.Helper()
	var ride models.Ride
	if err := f.db.First(&ride, "id = ?", f.ride.ID).Error; err != nil {
		t.Fatalf("чтение поездки: %v", err)
	}
	return ride.AvailableSeats
}

func (f *fixture) bookingStatus(t *testing.T, bookingID string) models.BookingStatus {
	t.Helper()
	var booking models.Booking
	if err := f.db.First(&booking, "id = ?", bookingID).Error; err != nil {
		t.Fatalf("чтение бронирования: %v", err)
	}
	return booking.Status
}
