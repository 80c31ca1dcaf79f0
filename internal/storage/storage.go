package storage

import (
	"errors"

	"github.com/lib/pq"
)

// IsConflict определяет, является ли ошибка конфликтом конкурентного доступа
// (сериализация, дедлок или занятая блокировка строки). Такие ошибки транзиентны:
// всю последовательность чтение-изменение-запись можно повторить заново со свежими чтениями.
func IsConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}
