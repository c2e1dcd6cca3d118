package entity

import "github.com/shopspring/decimal"

// BakeryCatalog returns the products seeded into an empty catalog.
func BakeryCatalog() []Product {
	return []Product{
		{ID: "1", Name: "Chocolate Lava Cake", Description: "Rich, decadent chocolate cake with a molten caramel center. Handcrafted with Belgian chocolate.", Price: decimal.RequireFromString("8.50"), Category: "Cakes", Featured: true, Allergens: []string{"gluten", "dairy", "eggs"}},
		{ID: "2", Name: "Strawberry Cheesecake", Description: "Creamy New York style cheesecake topped with fresh strawberries and a sweet glaze.", Price: decimal.RequireFromString("7.00"), Category: "Cakes", Featured: true, Allergens: []string{"gluten", "dairy", "eggs"}},
		{ID: "3", Name: "French Macarons (6pc)", Description: "Assorted French macarons in matcha, caramel, chocolate, and rose flavors.", Price: decimal.RequireFromString("12.00"), Category: "Pastries", Featured: true, Allergens: []string{"eggs", "nuts"}},
		{ID: "4", Name: "Butter Croissant", Description: "Golden, flaky croissant made with premium French butter. Baked fresh every morning.", Price: decimal.RequireFromString("4.50"), Category: "Pastries", Allergens: []string{"gluten", "dairy", "eggs"}},
		{ID: "5", Name: "Matcha Tiramisu", Description: "Japanese-Italian fusion dessert with layers of matcha cream and espresso-soaked ladyfingers.", Price: decimal.RequireFromString("9.00"), Category: "Desserts", Featured: true, Allergens: []string{"gluten", "dairy", "eggs"}},
		{ID: "6", Name: "Caramel Flan", Description: "Silky smooth custard pudding with rich caramel sauce. A classic Latin American favorite.", Price: decimal.RequireFromString("6.00"), Category: "Desserts", Allergens: []string{"dairy", "eggs"}},
		{ID: "7", Name: "Cinnamon Roll", Description: "Warm, soft cinnamon roll with cream cheese frosting. Perfect for breakfast or snack.", Price: decimal.RequireFromString("5.00"), Category: "Pastries", Allergens: []string{"gluten", "dairy", "eggs"}},
		{ID: "8", Name: "Fudge Brownie", Description: "Dense, fudgy chocolate brownie topped with walnuts and dusted with powdered sugar.", Price: decimal.RequireFromString("4.00"), Category: "Desserts", Allergens: []string{"gluten", "dairy", "eggs", "nuts"}},
	}
}
