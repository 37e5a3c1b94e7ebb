package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sandrolain/gosurface/pkg/mesh"
	"github.com/sandrolain/gosurface/pkg/preprocess"
	"github.com/sandrolain/gosurface/pkg/sampler"
	"github.com/sandrolain/gosurface/pkg/types"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure. Position is -1 when the error is not
// tied to a location in the expression.
type ErrorDetail struct {
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Position int    `json:"position"`
}

// NormalizeResponse is returned by GET /api/v1/normalize.
type NormalizeResponse struct {
	Expression string            `json:"expression"`
	Normalized string            `json:"normalized"`
	Steps      []preprocess.Step `json:"steps"`
}

// CompileResponse is returned by GET /api/v1/compile.
type CompileResponse struct {
	Normalized string   `json:"normalized"`
	Canonical  string   `json:"canonical"`
	Variables  []string `json:"variables"`
}

// AssistRequest is the body of POST /api/v1/assist.
type AssistRequest struct {
	Prompt     string `json:"prompt"`
	Resolution int    `json:"resolution,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) generate(c echo.Context) error {
	var req types.SurfaceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Resolution > s.opts.MaxResolution {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("resolution must be <= %d", s.opts.MaxResolution))
	}

	res := s.pipeline.Generate(c.Request().Context(), req)
	if res.Err != nil {
		return res.Err
	}

	if strings.EqualFold(c.QueryParam("format"), "obj") {
		var buf bytes.Buffer
		if err := mesh.WriteOBJ(&buf, res.Mesh); err != nil {
			return errors.Wrap(err, "write obj")
		}
		return c.Blob(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	}
	return c.JSON(http.StatusOK, res.Mesh)
}

func (s *Server) normalize(c echo.Context) error {
	expr := c.QueryParam("expression")
	if err := types.CheckExpressionLength(expr); err != nil {
		return err
	}
	steps := preprocess.Steps(expr)
	return c.JSON(http.StatusOK, NormalizeResponse{
		Expression: expr,
		Normalized: steps[len(steps)-1].Output,
		Steps:      steps,
	})
}

func (s *Server) compile(c echo.Context) error {
	raw := c.QueryParam("expression")
	if err := types.CheckExpressionLength(raw); err != nil {
		return err
	}
	normalized := preprocess.Normalize(raw)
	expr, err := s.pipeline.Compile(normalized)
	if err != nil {
		return err
	}
	vars := expr.Variables()
	if vars == nil {
		vars = []string{}
	}
	return c.JSON(http.StatusOK, CompileResponse{
		Normalized: normalized,
		Canonical:  expr.String(),
		Variables:  vars,
	})
}

func (s *Server) assist(c echo.Context) error {
	var req AssistRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	suggestion, err := s.assistant.Suggest(c.Request().Context(), req.Prompt)
	if err != nil {
		s.logger.Warn("assistant failed", "prompt", req.Prompt, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "assistant unavailable").SetInternal(err)
	}
	if suggestion == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, suggestion.Request(req.Resolution))
}

func (s *Server) systems(c echo.Context) error {
	return c.JSON(http.StatusOK, sampler.Domains())
}

// handleError renders every failure as an ErrorBody. Compile errors map to
// 422, other request errors to 400.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := ErrorDetail{Message: http.StatusText(status), Position: -1}

	var terr *types.Error
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &terr):
		detail = ErrorDetail{Code: string(terr.Code), Message: terr.Message, Position: terr.Position}
		switch {
		case terr.Code.IsCompileError():
			status = http.StatusUnprocessableEntity
		case terr.Code == types.ErrCanceled:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusBadRequest
		}
	case errors.As(err, &herr):
		status = herr.Code
		detail.Message = fmt.Sprint(herr.Message)
		if herr.Internal != nil {
			s.logger.Debug("request failed", "status", status, "error", herr.Internal)
		}
	default:
		s.logger.Error("internal error", "path", c.Path(), "error", err)
	}

	s.metrics.ObserveHTTPError(status)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorBody{Error: detail})
	}
	if err != nil {
		s.logger.Error("write error response", "error", err)
	}
}
