package enums

import "fmt"

// ProductCategory enumerates the storefront departments.
type ProductCategory string

const (
	ProductCategoryProduce   ProductCategory = "produce"
	ProductCategoryDairy     ProductCategory = "dairy"
	ProductCategoryBakery    ProductCategory = "bakery"
	ProductCategoryMeat      ProductCategory = "meat"
	ProductCategorySeafood   ProductCategory = "seafood"
	ProductCategoryPantry    ProductCategory = "pantry"
	ProductCategoryFrozen    ProductCategory = "frozen"
	ProductCategoryBeverages ProductCategory = "beverages"
	ProductCategoryHousehold ProductCategory = "household"
)

var validProductCategories = []ProductCategory{
	ProductCategoryProduce,
	ProductCategoryDairy,
	ProductCategoryBakery,
	ProductCategoryMeat,
	ProductCategorySeafood,
	ProductCategoryPantry,
	ProductCategoryFrozen,
	ProductCategoryBeverages,
	ProductCategoryHousehold,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCategory.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
