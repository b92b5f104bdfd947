package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/inventory-api/internal/api/middleware"
	"github.com/sweetshop/inventory-api/internal/core/domain"
)

// ctxClaim extracts the session claim injected by the Auth middleware.
// Presence of a non-empty subject proves the middleware ran; anything else
// means the route was wired without authentication and must fail closed.
func ctxClaim(c echo.Context) (domain.Claim, error) {
	claim, ok := c.Get(middleware.ClaimKey).(domain.Claim)
	if !ok || claim.Subject == "" {
		return domain.Claim{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claim, nil
}
