package catalog

import "ms-lounge/internal/models"

const (
	CategoryHookah    = "Кальяны"
	CategoryDrinks    = "Напитки"
	CategoryCocktails = "Коктейли"
	CategoryTea       = "Чай"
)

// DefaultMenu is the opening menu of the venue.
func DefaultMenu() []models.MenuItem {
	items := []struct {
		name     string
		price    int64
		category string
	}{
		{"Пенсионный", 800, CategoryHookah},
		{"Стандарт", 1000, CategoryHookah},
		{"Премиум", 1200, CategoryHookah},
		{"Фруктовая чаша", 1500, CategoryHookah},
		{"Сигарный", 1500, CategoryHookah},
		{"Парфюм", 2000, CategoryHookah},

		{"Вода", 100, CategoryDrinks},
		{"Кола 0,5л", 100, CategoryDrinks},
		{"Кола/Фанта/Спрайт 1л", 200, CategoryDrinks},
		{"Пиво/Энергетик", 200, CategoryDrinks},

		{"В/кола", 400, CategoryCocktails},
		{"Санрайз", 400, CategoryCocktails},
		{"Лагуна", 400, CategoryCocktails},
		{"Фиеро", 400, CategoryCocktails},
		{"Пробирки", 600, CategoryCocktails},

		{"Да Хун Пао", 400, CategoryTea},
		{"Те Гуань Инь", 400, CategoryTea},
		{"Шу пуэр", 400, CategoryTea},
		{"Сяо Чжун", 400, CategoryTea},
		{"Юэ Гуан Бай", 400, CategoryTea},
		{"Габа", 400, CategoryTea},
		{"Гречишный", 400, CategoryTea},
		{"Медовая дыня", 400, CategoryTea},
		{"Малина/Мята", 400, CategoryTea},
		{"Наглый фрукт", 400, CategoryTea},
		{"Вишневый пуэр", 500, CategoryTea},
		{"Марроканский", 500, CategoryTea},
		{"Голубика", 500, CategoryTea},
		{"Смородиновый", 500, CategoryTea},
		{"Клубничный", 500, CategoryTea},
		{"Облепиховый", 500, CategoryTea},
	}

	menu := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		menu = append(menu, models.MenuItem{Name: it.name, Price: it.price, Category: it.category, IsActive: true})
	}
	return menu
}
