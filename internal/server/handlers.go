package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/internal/auth"
	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

type stationSummary struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	Lat     float64               `json:"lat"`
	Lng     float64               `json:"lng"`
	Summary coverage.RangeSummary `json:"summary"`
}

type stationDetail struct {
	stationSummary
	Samples []coverage.BearingSample `json:"samples"`
}

type coverageResponse struct {
	Covered    bool                   `json:"covered"`
	Point      coordinates.Geographic `json:"point"`
	Stations   []coverage.Entry       `json:"stations"`
	Generation uint64                 `json:"generation"`
	Cached     bool                   `json:"cached"`
}

func summarize(st *coverage.Station) stationSummary {
	return stationSummary{
		ID:      st.ID,
		Name:    st.Name,
		Lat:     st.Origin.Latitude,
		Lng:     st.Origin.Longitude,
		Summary: st.Summary(),
	}
}

// currentSet returns the loaded station set or writes 503.
func (s *Server) currentSet(w http.ResponseWriter) (*coverage.StationSet, bool) {
	set := s.store.Load()
	if set == nil {
		respondError(w, http.StatusServiceUnavailable, "station data not loaded yet")
		return nil, false
	}
	return set, true
}

// stationFromURL resolves the {id} parameter or writes an error.
func (s *Server) stationFromURL(w http.ResponseWriter, r *http.Request) (*coverage.Station, bool) {
	set, ok := s.currentSet(w)
	if !ok {
		return nil, false
	}
	id := chi.URLParam(r, "id")
	st, ok := set.Station(id)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown station: "+id)
		return nil, false
	}
	return st, true
}

// handleHealth reports whether a station set is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{}
	if s.reloader != nil {
		body["reload"] = s.reloader.Status()
	}

	set := s.store.Load()
	if set == nil {
		body["status"] = "loading"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "ok"
	body["generation"] = set.Generation()
	body["stations"] = set.Len()
	body["loaded_at"] = set.LoadedAt()
	body["containment"] = set.Containment().String()
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleListStations(w http.ResponseWriter, r *http.Request) {
	set, ok := s.currentSet(w)
	if !ok {
		return
	}
	out := make([]stationSummary, 0, set.Len())
	for _, st := range set.Stations() {
		out = append(out, summarize(st))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generation": set.Generation(),
		"stations":   out,
	})
}

func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stationFromURL(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, stationDetail{
		stationSummary: summarize(st),
		Samples:        st.Samples,
	})
}

func (s *Server) handleStationPolygons(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stationFromURL(w, r)
	if !ok {
		return
	}
	respondGeoJSON(w, st.FeatureCollection())
}

func (s *Server) handleStationRings(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stationFromURL(w, r)
	if !ok {
		return
	}
	rings := coverage.ReferenceRings(st.Origin, s.ringRadii, s.ringSegments)
	respondGeoJSON(w, coverage.RingsFeatureCollection(rings))
}

// handleLayer returns every station's polygon for one metric.
func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	metric, ok := coverage.ParseMetric(chi.URLParam(r, "metric"))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown layer: "+chi.URLParam(r, "metric"))
		return
	}
	set, ok := s.currentSet(w)
	if !ok {
		return
	}
	respondGeoJSON(w, set.LayerFeatureCollection(metric))
}

// handleCoverage answers "which stations cover this point".
// format=html returns the map popup table, format=text a plain listing.
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	point, err := parsePoint(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, cached, generation, err := s.findCoverage(point)
	s.metrics.ObserveQuery(len(res.Entries), cached, err)
	switch {
	case errors.Is(err, coverage.ErrNoStations):
		respondError(w, http.StatusServiceUnavailable, "station data not loaded yet")
		return
	case errors.Is(err, coordinates.ErrInvalidCoordinate):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("coverage query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "coverage query failed")
		return
	}

	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.HTML()))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.String()))
	default:
		entries := res.Entries
		if entries == nil {
			entries = []coverage.Entry{}
		}
		respondJSON(w, http.StatusOK, coverageResponse{
			Covered:    !res.Empty(),
			Point:      res.Point,
			Stations:   entries,
			Generation: generation,
			Cached:     cached,
		})
	}
}

func (s *Server) findCoverage(point coordinates.Geographic) (coverage.Result, bool, uint64, error) {
	set := s.store.Load()
	if set == nil {
		return coverage.Result{}, false, 0, coverage.ErrNoStations
	}
	if s.querier != nil {
		res, cached, err := s.querier.FindCoverage(point)
		return res, cached, set.Generation(), err
	}
	res, err := set.FindCoverage(point)
	return res, false, set.Generation(), err
}

func parsePoint(r *http.Request) (coordinates.Geographic, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return coordinates.Geographic{}, errors.New("lat must be a decimal number")
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return coordinates.Geographic{}, errors.New("lng must be a decimal number")
	}
	return coordinates.Geographic{Latitude: lat, Longitude: lng}, nil
}

// handleLogin exchanges admin credentials for a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.authSvc == nil {
		respondError(w, http.StatusForbidden, auth.ErrLoginDisabled.Error())
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, expires, err := s.authSvc.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrLoginDisabled):
		respondError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.logger.Warn("failed admin login", zap.String("username", req.Username))
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

// handleReload forces a feed reload. Requires an admin token.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.authSvc == nil {
		respondError(w, http.StatusForbidden, auth.ErrLoginDisabled.Error())
		return
	}
	claims, err := s.authSvc.Authorize(r, auth.RoleAdmin)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if s.reloader == nil {
		respondError(w, http.StatusNotImplemented, "reload not available")
		return
	}

	s.logger.Info("forced reload requested", zap.String("username", claims.Username))
	set, err := s.reloader.TryReload(r.Context())
	switch {
	case errors.Is(err, loader.ErrReloadInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generation": set.Generation(),
		"stations":   set.Len(),
	})
}
