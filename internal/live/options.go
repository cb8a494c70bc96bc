package live

import "github.com/pribylovaa/go-blog-forum/internal/models"

// BuildOptions строит параметры страницы: limit=pageSize, skip=(page-1)*pageSize,
// сортировка createdAt DESC. Положительность pageSize и page — контракт вызывающего.
func BuildOptions(pageSize, page int, searchText string) models.QueryOptions {
	return models.QueryOptions{
		Limit: pageSize,
		Skip:  (page - 1) * pageSize,
		Sort: []models.SortField{
			{Field: models.FieldCreatedAt, Order: models.SortDesc},
		},
		SearchText: searchText,
	}
}
