package repository

import "gorm.io/gorm"

// applyPagination 把页码换算为 limit/offset。
// 非法页码按第一页处理，pageSize 不合法时不截断结果。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil {
		return nil
	}
	if pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
