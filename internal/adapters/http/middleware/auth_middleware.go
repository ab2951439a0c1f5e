package middleware

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
)

type Mode string

const (
	ModeNone   Mode = "none"
	ModeAPIKey Mode = "api_key"
	ModeOIDC   Mode = "oidc"
)

func ParseAuthMode() (Mode, error) {
	mode := Mode(os.Getenv("AUTH_MODE"))
	switch mode {
	case "", ModeNone, ModeAPIKey, ModeOIDC:
		if mode == "" {
			return ModeNone, nil
		}
		return mode, nil
	default:
		return "", errors.New("invalid auth mode")
	}
}

func AuthMiddleware(oidc echo.MiddlewareFunc) (echo.MiddlewareFunc, error) {
	mode, err := ParseAuthMode()
	if err != nil {
		return nil, err
	}
	if mode == ModeOIDC && oidc == nil {
		return nil, errors.New("oidc middleware is required when AUTH_MODE=oidc")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch mode {
			case ModeNone:
				return next(c)
			case ModeAPIKey:
				return next(c)
			case ModeOIDC:
				return oidc(next)(c)
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "invalid auth mode")
			}
		}
	}, nil
}
