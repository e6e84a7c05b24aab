package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Page wraps list results.
type Page struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Status: status, Message: http.StatusText(status), Data: data})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return respond(c, http.StatusOK, data)
}

// AcceptedResponse acknowledges work submitted in the background.
func AcceptedResponse(c echo.Context, data interface{}) error {
	return respond(c, http.StatusAccepted, data)
}

func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return respond(c, http.StatusOK, &Page{Rows: rows, Total: total})
}

func BadRequestResponse(c echo.Context, data interface{}) error {
	return respond(c, http.StatusBadRequest, data)
}

// AppErrorResponse renders an *AppError with its own status. Anything else is a 500
// without details.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return respond(c, appErr.Status, []*AppError{appErr})
	}
	return respond(c, http.StatusInternalServerError, "Something went wrong")
}
