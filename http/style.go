package http

import (
	"log/slog"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/tomreid/pictura"
)

// StyleDefinition is one style entry in a reload request.
type StyleDefinition struct {
	Name   string `json:"name" validate:"required,max=64"`
	Width  int    `json:"width" validate:"required,gt=0,lte=10000"`
	Height int    `json:"height" validate:"required,gt=0,lte=10000"`
	Mode   string `json:"mode" validate:"omitempty,oneof=bounding_box exact crop"`
}

// ReplaceStylesRequest is the request payload for replacing the style set.
type ReplaceStylesRequest struct {
	Styles  []StyleDefinition `json:"styles" validate:"required,min=1,dive"`
	Default string            `json:"default" validate:"required"`
}

func (s *Server) handleListStyles(c echo.Context) error {
	styles := s.styles.Styles()
	sort.Slice(styles, func(i, j int) bool { return styles[i].Name < styles[j].Name })

	return RespondOK(c, map[string]any{
		"styles":  styles,
		"default": s.styles.Default(),
	})
}

func (s *Server) handleReplaceStyles(c echo.Context) error {
	var req ReplaceStylesRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	specs := make([]pictura.StyleSpec, 0, len(req.Styles))
	for _, def := range req.Styles {
		mode := pictura.ResizeMode(def.Mode)
		if def.Mode == "" {
			mode = pictura.ModeBoundingBox
		}
		specs = append(specs, pictura.StyleSpec{
			Name:   def.Name,
			Width:  def.Width,
			Height: def.Height,
			Mode:   mode,
		})
	}

	if err := s.styles.Replace(specs, req.Default); err != nil {
		return err
	}

	s.log(c).Info("style registry replaced",
		slog.Int("styles", len(specs)),
		slog.String("default", req.Default),
	)

	return s.handleListStyles(c)
}
