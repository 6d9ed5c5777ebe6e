package calendar

// Page — одна страница списка записей.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"` // с 1
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	HasPrev  bool `json:"hasPrev"`
	Total    int  `json:"total"`
}

const DefaultPageSize = 50

// Paginate вырезает страницу page из items.
// Некорректные page и pageSize заменяются на 1 и DefaultPageSize.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return Page[T]{
		Items:    items[start:end:end],
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}
