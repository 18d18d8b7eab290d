package utils

import (
	"fmt"
	"time"
)

// EstimatedDuration вычисляет длительность поездки между отправлением и
// предполагаемым прибытием и возвращает строку в формате "HH:MM".
// Если прибытие не задано, некорректно или не позже отправления, возвращается "00:00".
func EstimatedDuration(departure time.Time, arrival *time.Time) string {
	if arrival == nil || departure.IsZero() || arrival.IsZero() || !arrival.After(departure) {
		return "00:00"
	}

	minutes := int(arrival.Sub(departure).Minutes())
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
