package utils

import (
	"gorm.io/gorm"
)

const DefaultPageLimit = 10

// PageResult — стандартный конверт для пагинированных ответов API
type PageResult struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// NormalizePage приводит номер страницы и лимит к допустимым значениям
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	return page, limit
}

// Paginate выполняет запрос с подсчетом общего числа записей и выборкой
// одной страницы. out должен быть указателем на срез моделей.
func Paginate(query *gorm.DB, page, limit int, out interface{}) (*PageResult, error) {
	page, limit = NormalizePage(page, limit)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Find(out).Error; err != nil {
		return nil, err
	}

	return &PageResult{
		Data:  out,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}
