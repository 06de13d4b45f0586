package apperr

import "errors"

// Классы ошибок ядра. Конкретный контекст добавляется оберткой через %w,
// обработчики сопоставляют класс через errors.Is.
var (
	// ErrNotFound - запрошенный инцидент/юнит/рекомендация не существует
	ErrNotFound = errors.New("not found")

	// ErrValidation - некорректный или выходящий за допустимый набор ввод
	ErrValidation = errors.New("validation error")

	// ErrConflict - нарушено предусловие: юнит уже назначен, юнит недоступен,
	// рекомендация не в статусе PENDING или конкурирующая транзакция успела раньше
	ErrConflict = errors.New("conflict")

	// ErrUpstream - внешний рекомендательный сервис недоступен или вернул мусор
	ErrUpstream = errors.New("upstream failure")

	// ErrTransient - транзакция не зафиксировалась из-за проблем инфраструктуры
	ErrTransient = errors.New("transient store failure")
)
