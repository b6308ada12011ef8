package models

import (
	"time"

	"github.com/google/uuid"
)

// Post — запись блога с картинкой.
// ImagePath — адрес объекта в blob-хранилище; nil только если объект так и не был сохранён.
// AuthorID становится nil после удаления автора.
type Post struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImagePath *string    `json:"imagePath"`
	AuthorID  *uuid.UUID `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SearchField — поле, по которому ищется подстрока.
type SearchField string

const (
	SearchByTitle   SearchField = "title"
	SearchByContent SearchField = "content"
	SearchByBoth    SearchField = "both"
)

// ParseSearchField приводит значение query-параметра к SearchField.
// Неизвестные и пустые значения означают поиск по обоим полям.
func ParseSearchField(s string) SearchField {
	switch SearchField(s) {
	case SearchByTitle, SearchByContent:
		return SearchField(s)
	default:
		return SearchByBoth
	}
}

// ListPostsOptions — нормализованные параметры выборки постов.
type ListPostsOptions struct {
	Search string
	By     SearchField
	Offset int
	Limit  int
}

// Pagination — метаданные страницы.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// PostsPage — страница постов вместе с метаданными.
type PostsPage struct {
	Items      []Post
	Pagination Pagination
}
