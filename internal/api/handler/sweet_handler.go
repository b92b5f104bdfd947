package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/inventory-api/internal/api/metrics"
	"github.com/sweetshop/inventory-api/internal/core/domain"
	"github.com/sweetshop/inventory-api/internal/core/ports"
)

func purchaseResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrSweetNotFound):
		return "not_found"
	default:
		return "error"
	}
}

type SweetHandler struct {
	inventory ports.InventoryService
}

func NewSweetHandler(inventory ports.InventoryService) *SweetHandler {
	return &SweetHandler{inventory: inventory}
}

// Create adds a new sweet to the catalogue.
//
// The body binds into a plain map so the service layer can enforce its field
// allow-list; unknown keys are rejected rather than silently dropped.
//
// @Summary      Add a sweet
// @Tags         sweets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      map[string]any  true  "Sweet fields: name, category, price, quantity"
// @Success      201   {object}  sweetResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /sweets [post]
func (h *SweetHandler) Create(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	var fields map[string]any
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	sweet, err := h.inventory.Add(c.Request().Context(), claim, fields)
	if err != nil {
		return err
	}

	metrics.SweetsCreatedTotal.WithLabelValues(sweet.Category).Inc()
	return c.JSON(http.StatusCreated, toSweetResponse(sweet))
}

// List returns the full catalogue.
//
// @Summary      List all sweets
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  sweetResponse
// @Router       /sweets [get]
func (h *SweetHandler) List(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	sweets, err := h.inventory.List(c.Request().Context(), claim)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSweetListResponse(sweets))
}

// Search filters the catalogue by name, category, and price range. All
// criteria are optional and combine conjunctively. "search" is accepted as
// an alias for "name" and takes precedence when both are supplied.
//
// @Summary      Search sweets
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        name       query  string  false  "Case-insensitive substring of the name"
// @Param        category   query  string  false  "Exact category"
// @Param        price_min  query  number  false  "Inclusive lower price bound"
// @Param        price_max  query  number  false  "Inclusive upper price bound"
// @Success      200  {array}   sweetResponse
// @Failure      400  {object}  map[string]string
// @Router       /sweets/search [get]
func (h *SweetHandler) Search(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	name := c.QueryParam("search")
	if name == "" {
		name = c.QueryParam("name")
	}

	input := ports.SearchInput{
		Name:     name,
		Category: c.QueryParam("category"),
		PriceMin: c.QueryParam("price_min"),
		PriceMax: c.QueryParam("price_max"),
	}

	sweets, err := h.inventory.Search(c.Request().Context(), claim, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSweetListResponse(sweets))
}

// Update applies a partial update to a sweet.
//
// @Summary      Update a sweet
// @Tags         sweets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Sweet id"
// @Param        body  body      map[string]any  true  "Fields to change: name, category, price, quantity"
// @Success      200   {object}  sweetResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /sweets/{id} [put]
func (h *SweetHandler) Update(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	var fields map[string]any
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	sweet, err := h.inventory.Update(c.Request().Context(), claim, c.Param("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSweetResponse(sweet))
}

// Delete removes a sweet from the catalogue. Admin only.
//
// @Summary      Delete a sweet
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Sweet id"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /sweets/{id} [delete]
func (h *SweetHandler) Delete(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	if err := h.inventory.Delete(c.Request().Context(), claim, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "sweet deleted"})
}

// Purchase decrements the stock of a sweet by one. An optional
// Idempotency-Key header makes retries safe.
//
// @Summary      Purchase a sweet
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        id               path    string  true   "Sweet id"
// @Param        Idempotency-Key  header  string  false  "Client-chosen retry key"
// @Success      200  {object}  sweetResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /sweets/{id}/purchase [post]
func (h *SweetHandler) Purchase(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	key := c.Request().Header.Get("Idempotency-Key")
	sweet, err := h.inventory.Purchase(c.Request().Context(), claim, c.Param("id"), key)
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues(purchaseResult(err)).Inc()
		return err
	}

	metrics.PurchasesTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, toSweetResponse(sweet))
}

// Restock increments the stock of a sweet by one. Admin only.
//
// @Summary      Restock a sweet
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Sweet id"
// @Success      200  {object}  sweetResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /sweets/{id}/restock [post]
func (h *SweetHandler) Restock(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	sweet, err := h.inventory.Restock(c.Request().Context(), claim, c.Param("id"))
	if err != nil {
		return err
	}

	metrics.RestocksTotal.Inc()
	return c.JSON(http.StatusOK, toSweetResponse(sweet))
}
