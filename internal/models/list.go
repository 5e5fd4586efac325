package models

// Pagination описывает страницу ответа внешнего API.
type Pagination struct {
	CurrentPage  *int `json:"currentPage"`
	TotalPages   *int `json:"totalPages"`
	TotalItems   *int `json:"totalItems"`
	ItemsPerPage *int `json:"itemsPerPage"`
}

// ListResult результат загрузки коллекции, который хранится в кеше запросов.
type ListResult[T any] struct {
	Items             []T         `json:"items"`
	Pagination        *Pagination `json:"pagination"`
	AvailableStatuses []string    `json:"availableStatuses"`
}
