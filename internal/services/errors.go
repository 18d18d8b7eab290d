package services

import (
	"errors"
	"net/http"
)

// Error — ошибка уровня сервиса с HTTP статусом для транспортного слоя.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrNotFound — запрошенная сущность не существует (404)
func ErrNotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

// ErrInvalidArgument — некорректные входные данные (400)
func ErrInvalidArgument(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

// ErrForbidden — у вызывающего нет прав на операцию (403)
func ErrForbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

// ErrConflict — недопустимый переход статуса или исчерпание мест (409)
func ErrConflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Message: msg}
}

// HTTPStatus возвращает HTTP статус для ошибки сервиса,
// для всех прочих ошибок — 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// IsStatus проверяет, что ошибка сервиса несет указанный HTTP статус
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}
