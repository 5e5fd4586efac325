package models

// UserFilter фильтр списка пользователей в том виде, в каком он приходит от клиента.
type UserFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// PaymentFilter фильтр списка платежей.
type PaymentFilter struct {
	Status string
}
