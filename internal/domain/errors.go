package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - запрошенная заявка, площадка или категория не существует.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState - заявка уже обработана.
	ErrInvalidState = errors.New("submission is not pending")
	// ErrValidation - некорректные данные заявки, комментария или оценки.
	ErrValidation = errors.New("validation failed")
)

// StorageError - сбой хранилища (соединение, ограничения БД).
// Текущая транзакция при этом откатывается целиком.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError сообщает, что в цепочке ошибок есть *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
