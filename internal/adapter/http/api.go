package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/openearth/coverage-etl/internal/domain"
)

type profileResponse struct {
	Line         string                `json:"line"`
	CRS          string                `json:"crs"`
	BBox         [4]float64            `json:"bbox"`
	MinCol       int                   `json:"min_col"`
	MinRow       int                   `json:"min_row"`
	Width        int                   `json:"width"`
	Height       int                   `json:"height"`
	Subdivisions int                   `json:"subdivisions"`
	Points       []domain.ProfilePoint `json:"points"`
}

type elevationResponse struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	CRS   string   `json:"crs"`
	Value *float64 `json:"value"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := s.profiles.Grid(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// handleProfile serves GET /v1/profile?wkt=LINESTRING(...)&crs=...&sampling=...
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	crs, err := s.requestCRS(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	line, err := domain.ParseLineWKT(q.Get("wkt"), crs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var factor float64
	if v := strings.TrimSpace(q.Get("sampling")); v != "" {
		factor, err = strconv.ParseFloat(v, 64)
		if err != nil || factor <= 0 {
			s.writeError(w, r, fmt.Errorf("%w: sampling=%q", domain.ErrInvalidSamplingFactor, v))
			return
		}
	}

	prof, err := s.profiles.Profile(r.Context(), line, factor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ix := prof.Intersection
	writeJSON(w, http.StatusOK, profileResponse{
		Line:         line.WKT(),
		CRS:          line.CRS,
		BBox:         [4]float64{ix.BBox.Min[0], ix.BBox.Min[1], ix.BBox.Max[0], ix.BBox.Max[1]},
		MinCol:       ix.MinCol,
		MinRow:       ix.MinRow,
		Width:        ix.Width,
		Height:       ix.Height,
		Subdivisions: ix.Subdivisions(),
		Points:       prof.Points,
	})
}

// handleElevation serves GET /v1/elevation?x=...&y=...&crs=...
func (s *Server) handleElevation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(strings.TrimSpace(q.Get("x")), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(q.Get("y")), 64)
	if errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "x and y must be numbers"})
		return
	}

	crs, err := s.requestCRS(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sample, err := s.points.Point(r.Context(), x, y, crs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := elevationResponse{X: x, Y: y, CRS: crs}
	if sample.Valid {
		v := sample.Value
		resp.Value = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestCRS returns the crs query parameter, defaulting to the coverage CRS.
func (s *Server) requestCRS(r *http.Request) (string, error) {
	if crs := strings.TrimSpace(r.URL.Query().Get("crs")); crs != "" {
		return domain.NormalizeCRS(crs), nil
	}
	grid, err := s.profiles.Grid(r.Context())
	if err != nil {
		return "", err
	}
	return grid.CRS, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrGeometry),
		errors.Is(err, domain.ErrCRSMismatch),
		errors.Is(err, domain.ErrDegenerateLine),
		errors.Is(err, domain.ErrInvalidSamplingFactor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRasterMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
