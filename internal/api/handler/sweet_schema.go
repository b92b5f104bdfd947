package handler

import "github.com/sweetshop/inventory-api/internal/core/domain"

type sweetResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func toSweetResponse(s *domain.Sweet) sweetResponse {
	return sweetResponse{
		ID:       s.ID,
		Name:     s.Name,
		Category: s.Category,
		Price:    s.Price,
		Quantity: s.Quantity,
	}
}

func toSweetListResponse(sweets []domain.Sweet) []sweetResponse {
	out := make([]sweetResponse, 0, len(sweets))
	for i := range sweets {
		out = append(out, toSweetResponse(&sweets[i]))
	}
	return out
}
