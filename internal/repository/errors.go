package repository

import "errors"

var (
	ErrNotFound        = errors.New("запись не найдена")
	ErrVersionConflict = errors.New("конфликт версий")
)

var ErrAlreadyExists = errors.New("запись уже существует")
