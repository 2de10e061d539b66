package presenter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opencadastre/cadastre/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	fmt.Println("Bad request:", err)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	fmt.Println("Bad request:", msg)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	fmt.Println("Not found:", msg)
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	fmt.Println("Forbidden:", msg)
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg})
}

func Unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
}

func Conflict(c echo.Context, msg string) error {
	fmt.Println("Conflict:", msg)
	return c.JSON(http.StatusConflict, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	fmt.Println("Internal error:", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// DomainError maps a registry guard failure onto its HTTP status.
func DomainError(c echo.Context, err error) error {
	var guard domain.Error
	if !errors.As(err, &guard) {
		return InternalError(c, err)
	}
	switch guard.Kind {
	case domain.KindNotFound:
		return NotFound(c, guard.Error())
	case domain.KindAlreadyExists:
		return Conflict(c, guard.Error())
	case domain.KindInvalidName, domain.KindInvalidVolume, domain.KindInvalidCategoryFormat:
		return BadRequestMessage(c, guard.Error())
	case domain.KindAdminRestricted, domain.KindForbidden, domain.KindUnauthorized, domain.KindReadForbidden:
		return Forbidden(c, guard.Error())
	default:
		return InternalError(c, err)
	}
}
