package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
)

type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

type profileResponse struct {
	User *domain.User `json:"user"`
}

// Get returns the signed-in user.
//
// @Summary      Get profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /api/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: ws.Auth.User()})
}

// Update changes profile fields. Omitted fields are left untouched; a new
// password requires the current one.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      ports.ProfileUpdate  true  "Fields to change"
// @Success      200   {object}  profileResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /api/profile [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	ws, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req ports.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := ws.Auth.UpdateProfile(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: user})
}
