package models

// CartLine is one product snapshot and its quantity in a client-held cart.
// Price is the price at add-time; later catalog edits do not change it.
type CartLine struct {
	ProductID string  `json:"_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Quantity  int     `json:"quantity"`
}

// LineTotal is price times quantity.
func (l CartLine) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}
