package errs

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidState    = "INVALID_STATE"
	CodeVersionConflict = "VERSION_CONFLICT"
	CodeTaskDeleted     = "TASK_DELETED"
	CodeNotDeleted      = "NOT_DELETED"
	CodeForbidden       = "FORBIDDEN"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

// Resource - тип сущности для сообщений NOT_FOUND
type Resource string

const (
	ResourceTask         Resource = "задача"
	ResourceStep         Resource = "шаг"
	ResourceUser         Resource = "пользователь"
	ResourceNotification Resource = "уведомление"
	ResourceComment      Resource = "комментарий"
	ResourceUpdate       Resource = "запись хода работ"
)

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewInvalidState(message string, details ...Detail) *BusinessError {
	return NewBusinessError(CodeInvalidState, message, details...)
}

// NewForbidden - действие недоступно пользователю
func NewForbidden(message string) *BusinessError {
	return NewBusinessError(CodeForbidden, message)
}

func NewVersionConflict(resource Resource, id string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodeVersionConflict,
		Message: fmt.Sprintf("%s %s была изменена параллельно, повторите запрос", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
		Err: err,
	}
}

// As достаёт BusinessError из цепочки обёрнутых ошибок
func As(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}

// HasCode проверяет код бизнес-ошибки в цепочке
func HasCode(err error, code string) bool {
	busErr, ok := As(err)
	return ok && busErr.Code == code
}
