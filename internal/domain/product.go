package domain

import "time"

// Product описывает продукт каталога. ID совпадает с идентификатором из датасета
// и с именем файла изображения, по которому строится эмбеддинг.
type Product struct {
	ID          int64
	Name        string
	Price       int64 // Цена хранится в копейках
	CategoryID  int64
	Gender      string
	Season      string
	Usage       string
	BaseColour  string
	ArticleType string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	IsArchived  bool
}

// Category описывает категорию продукта
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func NewCategory(name string) *Category {
	return &Category{
		Name: name,
	}
}
