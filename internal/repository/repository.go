package repository

import "strings"

// sanitizeSort validates the requested sort column against an allow-list
// and normalises the order keyword. Unknown columns fall back to created_at.
func sanitizeSort(sortBy, sortOrder string, allowed map[string]bool) (string, string) {
	if sortBy == "" || !allowed[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return sortBy, order
}

// paginate clamps page/page-size inputs and returns LIMIT/OFFSET values.
func paginate(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return pageSize, (page - 1) * pageSize
}
