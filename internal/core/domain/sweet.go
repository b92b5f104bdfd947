package domain

// Sweet is a single catalog record. Quantity is the number of units
// currently in stock and is never allowed to go negative.
type Sweet struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}
