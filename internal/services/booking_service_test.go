package services

import (
	"math/rand"
	"net/http"
	"sync"
	"testing"

	"covoiturage-backend/internal/models"
)

func TestBookingCreate(t *testing.T) {
	f := newFixture(t, withSeats(3))

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if booking.Status != models.BookingStatusPending {
		t.Fatalf("статус = %s, ожидалось PENDING", booking.Status)
	}
	if got := f.availableSeats(t); got != 2 {
		t.Fatalf("available_seats = %d, ожидалось 2", got)
	}
}

func TestBookingCreateInvalidPrice(t *testing.T) {
	f := newFixture(t)

	for _, price := range []float64{0, -10} {
		_, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, price)
		if !IsStatus(err, http.StatusBadRequest) {
			t.Fatalf("цена %v: ожидался BadRequest, получено: %v", price, err)
		}
	}
	if got := f.availableSeats(t); got != 3 {
		t.Fatalf("available_seats = %d, ожидалось 3", got)
	}
}

func TestBookingCreateUnknownVehicleType(t *testing.T) {
	f := newFixture(t)

	_, err := f.bookings.Create(f.rider.ID, f.ride.ID, "00000000-0000-0000-0000-000000000000", 35)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("ожидался NotFound, получено: %v", err)
	}
	if got := f.availableSeats(t); got != 3 {
		t.Fatalf("место занято несмотря на откат транзакции")
	}
}

func TestBookingCreateNoSeats(t *testing.T) {
	f := newFixture(t, withSeats(1))

	if _, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35); err != nil {
		t.Fatalf("первое бронирование: %v", err)
	}

	other := createUser(t, f.db, "Paul", "paul@example.com", models.RoleUser)
	_, err := f.bookings.Create(other.ID, f.ride.ID, f.vt.ID, 35)
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("ожидался Conflict, получено: %v", err)
	}
}

// Десять пассажиров конкурируют за поездку с тремя местами: бронирований
// создается ровно три, счетчик мест не уходит в минус.
func TestBookingCreateConcurrentNoOversell(t *testing.T) {
	f := newFixture(t, withSeats(3))

	const riders = 10
	var wg sync.WaitGroup
	errs := make([]error, riders)

	for i := 0; i < riders; i++ {
		u := createUser(t, f.db, "Rider", "rider"+string(rune('a'+i))+"@example.com", models.RoleUser)
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = f.bookings.Create(userID, f.ride.ID, f.vt.ID, 35)
		}(i, u.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !IsStatus(err, http.StatusConflict) {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	if succeeded != 3 {
		t.Fatalf("успешных бронирований %d, ожидалось 3", succeeded)
	}

	var active int64
	f.db.Model(&models.Booking{}).
		Where("ride_id = ? AND status <> ?", f.ride.ID, models.BookingStatusCancelled).
		Count(&active)
	if active != 3 {
		t.Fatalf("активных бронирований %d, ожидалось 3", active)
	}
	if got := f.availableSeats(t); got != 0 {
		t.Fatalf("available_seats = %d, ожидалось 0", got)
	}
}

func TestBookingLifecycleTransitions(t *testing.T) {
	f := newFixture(t)

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	steps := []struct {
		name string
		op   func() (*models.Booking, error)
		want models.BookingStatus
	}{
		{"validate", func() (*models.Booking, error) {
			return f.bookings.Validate(f.driver.ID, models.RoleDriver, booking.ID)
		}, models.BookingStatusConfirmed},
		{"start", func() (*models.Booking, error) {
			return f.bookings.Start(f.driver.ID, models.RoleDriver, booking.ID)
		}, models.BookingStatusStarted},
		{"complete", func() (*models.Booking, error) {
			return f.bookings.Complete(f.driver.ID, models.RoleDriver, booking.ID)
		}, models.BookingStatusCompleted},
	}

	for _, step := range steps {
		got, err := step.op()
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got.Status != step.want {
			t.Fatalf("%s: статус = %s, ожидалось %s", step.name, got.Status, step.want)
		}
	}

	// Завершенное бронирование места не возвращает
	if got := f.availableSeats(t); got != 2 {
		t.Fatalf("available_seats = %d, ожидалось 2", got)
	}
}

func TestBookingTransitionOutOfOrder(t *testing.T) {
	f := newFixture(t)

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Из PENDING нельзя ни начать, ни завершить
	if _, err := f.bookings.Start(f.driver.ID, models.RoleDriver, booking.ID); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("start из PENDING: ожидался Conflict, получено: %v", err)
	}
	if _, err := f.bookings.Complete(f.driver.ID, models.RoleDriver, booking.ID); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("complete из PENDING: ожидался Conflict, получено: %v", err)
	}

	if _, err := f.bookings.Validate(f.driver.ID, models.RoleDriver, booking.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	// Повторное подтверждение не проходит
	if _, err := f.bookings.Validate(f.driver.ID, models.RoleDriver, booking.ID); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("повторный validate: ожидался Conflict, получено: %v", err)
	}
}

func TestBookingDriverOpsForbidden(t *testing.T) {
	f := newFixture(t)

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Пассажир не может выполнять операции водителя, даже над своим бронированием
	if _, err := f.bookings.Validate(f.rider.ID, models.RoleUser, booking.ID); !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("validate пассажиром: ожидался Forbidden, получено: %v", err)
	}

	// Чужой водитель тоже не может
	stranger := createUser(t, f.db, "Luc", "luc@example.com", models.RoleDriver)
	if _, err := f.bookings.Validate(stranger.ID, models.RoleDriver, booking.ID); !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("validate чужим водителем: ожидался Forbidden, получено: %v", err)
	}

	if got := f.bookingStatus(t, booking.ID); got != models.BookingStatusPending {
		t.Fatalf("статус = %s, ожидалось PENDING", got)
	}
}

func TestBookingCancelByRider(t *testing.T) {
	f := newFixture(t, withSeats(2))

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := f.bookings.Cancel(f.rider.ID, models.RoleUser, booking.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.BookingStatusCancelled {
		t.Fatalf("статус = %s, ожидалось CANCELLED", cancelled.Status)
	}
	if got := f.availableSeats(t); got != 2 {
		t.Fatalf("место не вернулось: available_seats = %d", got)
	}
}

func TestBookingCancelForeignForbidden(t *testing.T) {
	f := newFixture(t)

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	other := createUser(t, f.db, "Paul", "paul@example.com", models.RoleUser)
	if _, err := f.bookings.Cancel(other.ID, models.RoleUser, booking.ID); !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("ожидался Forbidden, получено: %v", err)
	}
}

func TestBookingCancelAfterStartConflict(t *testing.T) {
	f := newFixture(t)

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.bookings.Validate(f.driver.ID, models.RoleDriver, booking.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := f.bookings.Start(f.driver.ID, models.RoleDriver, booking.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.bookings.Cancel(f.rider.ID, models.RoleUser, booking.ID); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("отмена начатой поездки: ожидался Conflict, получено: %v", err)
	}
}

func TestBookingDoubleCancelReleasesOnce(t *testing.T) {
	f := newFixture(t, withSeats(2))

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.bookings.Cancel(f.rider.ID, models.RoleUser, booking.ID); err != nil {
		t.Fatalf("первая отмена: %v", err)
	}
	if _, err := f.bookings.Cancel(f.rider.ID, models.RoleUser, booking.ID); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("вторая отмена: ожидался Conflict, получено: %v", err)
	}

	if got := f.availableSeats(t); got != 2 {
		t.Fatalf("available_seats = %d, ожидалось 2 (место вернулось дважды?)", got)
	}
}

func TestBookingCancelByDriver(t *testing.T) {
	f := newFixture(t, withSeats(2))

	booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Неподтвержденное бронирование водитель отменить не может
	if _, err := f.bookings.Cancel(f.driver.ID, models.RoleDriver, booking.ID); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("отмена PENDING водителем: ожидался Conflict, получено: %v", err)
	}

	if _, err := f.bookings.Validate(f.driver.ID, models.RoleDriver, booking.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cancelled, err := f.bookings.Cancel(f.driver.ID, models.RoleDriver, booking.ID)
	if err != nil {
		t.Fatalf("отмена CONFIRMED водителем: %v", err)
	}
	if cancelled.Status != models.BookingStatusCancelled {
		t.Fatalf("статус = %s, ожидалось CANCELLED", cancelled.Status)
	}
	if got := f.availableSeats(t); got != 2 {
		t.Fatalf("место не вернулось: available_seats = %d", got)
	}
}

// Инвариант учета мест: после любой последовательности бронирований и отмен
// available_seats = seats_count - число бронирований со статусом != CANCELLED.
func TestBookingSeatConservation(t *testing.T) {
	const seats = 5
	f := newFixture(t, withSeats(seats))
	rng := rand.New(rand.NewSource(42))

	var open []string
	for i := 0; i < 60; i++ {
		if len(open) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(open))
			id := open[idx]
			if _, err := f.bookings.Cancel(f.rider.ID, models.RoleUser, id); err != nil {
				t.Fatalf("шаг %d, отмена: %v", i, err)
			}
			open = append(open[:idx], open[idx+1:]...)
		} else {
			booking, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
			if err != nil {
				if IsStatus(err, http.StatusConflict) {
					continue // мест нет, ничего не меняется
				}
				t.Fatalf("шаг %d, создание: %v", i, err)
			}
			open = append(open, booking.ID)
		}

		var active int64
		f.db.Model(&models.Booking{}).
			Where("ride_id = ? AND status <> ?", f.ride.ID, models.BookingStatusCancelled).
			Count(&active)
		if got := f.availableSeats(t); got != seats-int(active) {
			t.Fatalf("шаг %d: available_seats = %d, активных = %d, нарушен инвариант", i, got, active)
		}
	}
}

func TestBookingStatuses(t *testing.T) {
	f := newFixture(t)

	got := f.bookings.Statuses()
	want := []string{"PENDING", "CONFIRMED", "STARTED", "COMPLETED", "CANCELLED"}
	if len(got) != len(want) {
		t.Fatalf("статусов %d, ожидалось %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("статус[%d] = %s, ожидалось %s", i, got[i], want[i])
		}
	}
}

func TestBookingNotFound(t *testing.T) {
	f := newFixture(t)

	if _, err := f.bookings.FindByID("00000000-0000-0000-0000-000000000000"); !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("FindByID: ожидался NotFound, получено: %v", err)
	}
	if _, err := f.bookings.Validate(f.driver.ID, models.RoleDriver, "00000000-0000-0000-0000-000000000000"); !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("Validate: ожидался NotFound, получено: %v", err)
	}
}

// Сценарий с единственным местом: второй пассажир получает место только
// после отмены первым, и оба бронирования доживают до корректных статусов.
func TestBookingSingleSeatScenario(t *testing.T) {
	f := newFixture(t, withSeats(1))
	second := createUser(t, f.db, "Paul", "paul@example.com", models.RoleUser)

	first, err := f.bookings.Create(f.rider.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("первое бронирование: %v", err)
	}

	if _, err := f.bookings.Create(second.ID, f.ride.ID, f.vt.ID, 35); !IsStatus(err, http.StatusConflict) {
		t.Fatalf("бронирование без мест: ожидался Conflict, получено: %v", err)
	}

	if _, err := f.bookings.Cancel(f.rider.ID, models.RoleUser, first.ID); err != nil {
		t.Fatalf("отмена: %v", err)
	}

	b2, err := f.bookings.Create(second.ID, f.ride.ID, f.vt.ID, 35)
	if err != nil {
		t.Fatalf("бронирование после отмены: %v", err)
	}
	if _, err := f.bookings.Validate(f.driver.ID, models.RoleDriver, b2.ID); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := f.bookings.Start(f.driver.ID, models.RoleDriver, b2.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.bookings.Complete(f.driver.ID, models.RoleDriver, b2.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if got := f.bookingStatus(t, first.ID); got != models.BookingStatusCancelled {
		t.Fatalf("первое бронирование: статус = %s, ожидалось CANCELLED", got)
	}
	if got := f.bookingStatus(t, b2.ID); got != models.BookingStatusCompleted {
		t.Fatalf("второе бронирование: статус = %s, ожидалось COMPLETED", got)
	}
	if got := f.availableSeats(t); got != 0 {
		t.Fatalf("available_seats = %d, ожидалось 0", got)
	}
}
