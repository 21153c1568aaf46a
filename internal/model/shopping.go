package model

// PriceOption is one store's price for a shopping item. At most one option
// per item is starred; starring is select-one-of-many, not a free flag.
type PriceOption struct {
	ID        string `json:"id"`
	Store     string `json:"store"`
	Price     string `json:"price"`
	IsStarred bool   `json:"isStarred"`
}

// ShoppingItem is a shopping list entry with its price alternatives.
// IDs are client-generated strings; JSON keys match the mobile client's
// wire format.
type ShoppingItem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Category     string        `json:"category"`
	Notes        string        `json:"notes"`
	PriceOptions []PriceOption `json:"priceOptions"`
}

// StarredOption returns the starred price option, or nil if none is starred.
func (i *ShoppingItem) StarredOption() *PriceOption {
	for idx := range i.PriceOptions {
		if i.PriceOptions[idx].IsStarred {
			return &i.PriceOptions[idx]
		}
	}
	return nil
}
