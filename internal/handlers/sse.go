package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"
)

func writeSSE(c echo.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
