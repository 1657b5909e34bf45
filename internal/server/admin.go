package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"studyprep/internal/admin"
)

func (s *Server) handleAdminStats(c echo.Context) error {
	stats, err := s.admin.Stats(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAdminUsers(c echo.Context) error {
	users, err := s.admin.Users(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleAdminBan(banned bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := s.admin.SetBanned(c.Request().Context(), c.Param("id"), banned)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, u)
	}
}

func (s *Server) handleAdminPromote(c echo.Context) error {
	u, err := s.admin.Promote(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) handleAdminConfig(c echo.Context) error {
	cfg, err := s.admin.Config(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleAdminUpdateConfig(c echo.Context) error {
	var patch admin.ConfigPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	cfg, err := s.admin.UpdateConfig(c.Request().Context(), patch)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

type marketingRequest struct {
	Topic string `json:"topic" validate:"required,max=200"`
	Kind  string `json:"kind" validate:"max=40"`
}

func (s *Server) handleAdminMarketing(c echo.Context) error {
	var req marketingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	text := s.study.MarketingCopy(c.Request().Context(), req.Topic, req.Kind)
	return c.JSON(http.StatusOK, map[string]string{"copy": text})
}
