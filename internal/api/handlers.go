// ABOUTME: HTTP handlers translating query parameters into query service and feed calls.
// ABOUTME: Errors use a {"error": {"message", "code"}} envelope with status codes per error kind.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harperreed/vamos/internal/feed"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/query"
	"github.com/harperreed/vamos/internal/storeerr"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

// fail maps err to a status code.
func (s *Server) fail(c *gin.Context, err error) {
	if store, ok := storeerr.IsConnect(err); ok {
		respondError(c, http.StatusServiceUnavailable, store+"_unreachable", err)
		return
	}
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, feed.ErrInvalidInterval), errors.Is(err, feed.ErrNoUsers):
		respondError(c, http.StatusBadRequest, "invalid_feed", err)
	case errors.Is(err, feed.ErrAlreadyActive), errors.Is(err, feed.ErrNotActive):
		respondError(c, http.StatusConflict, "feed_state", err)
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "internal", err)
	}
}

func badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "bad_request", err)
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func binsParam(c *gin.Context) (int, error) {
	n, err := intParam(c, "bins", 0)
	if err == nil && n > query.MaxBins {
		err = fmt.Errorf("bins must be at most %d", query.MaxBins)
	}
	return n, err
}

// filterParams reads user_id, from and to.
func filterParams(c *gin.Context) (models.Filter, error) {
	f := models.Filter{UserID: strings.TrimSpace(c.Query("user_id"))}
	var err error
	if v := c.Query("from"); v != "" {
		if f.From, err = models.ParseTime(v); err != nil {
			return f, err
		}
	}
	if v := c.Query("to"); v != "" {
		if f.To, err = models.ParseTime(v); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.app.Repo.Ping(ctx); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.app.Docs.Ping(ctx); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"structured": s.app.Repo.Backend(),
		"documents":  s.app.Docs.Backend(),
		"cache":      s.app.Cache.Backend(),
	})
}

func (s *Server) overview(c *gin.Context) {
	ov, err := s.app.Query.SystemOverview(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (s *Server) dataStatus(c *gin.Context) {
	st, err := s.app.Query.DataStatus(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) userDetail(c *gin.Context) {
	d, err := s.app.Query.UserDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	// Unknown users get an empty detail with found=false rather than a 404.
	c.JSON(http.StatusOK, gin.H{
		"found":           d.Found(),
		"goal_completion": d.GoalCompletion(),
		"detail":          d,
	})
}

func (s *Server) weightTrend(c *gin.Context) {
	days, err := intParam(c, "days", query.DefaultTrendDays)
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := s.app.Query.WeightTrend(c.Request.Context(), models.Filter{UserID: c.Query("user_id")}, query.Days(days))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) heartRate(c *gin.Context) {
	f, err := filterParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	bins, err := binsParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	hr, err := s.app.Query.HeartRateDistribution(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": len(hr), "buckets": hr.Histogram(bins)})
}

func (s *Server) bmiDistribution(c *gin.Context) {
	rows, err := s.app.Query.BMIDistribution(c.Request.Context(), models.Filter{UserID: c.Query("user_id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) bmiCategories(c *gin.Context) {
	counts, err := s.app.Query.BMICategoryBreakdown(c.Request.Context(), models.Filter{})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) activityTypes(c *gin.Context) {
	f, err := filterParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	types, err := s.app.Query.ActivityTypeDistribution(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (s *Server) calorieTrend(c *gin.Context) {
	days, err := intParam(c, "days", query.DefaultTrendDays)
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := s.app.Query.CalorieTrend(c.Request.Context(), models.Filter{UserID: c.Query("user_id")}, query.Days(days))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) goalStatus(c *gin.Context) {
	statuses, err := s.app.Query.GoalStatusDistribution(c.Request.Context(), models.Filter{UserID: c.Query("user_id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

var contentTypes = map[string]string{
	query.FormatJSON:     "application/json; charset=utf-8",
	query.FormatYAML:     "application/yaml; charset=utf-8",
	query.FormatMarkdown: "text/markdown; charset=utf-8",
}

func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", query.FormatJSON))
	ctype, ok := contentTypes[format]
	if !ok {
		badRequest(c, errors.New("format must be json, yaml or markdown"))
		return
	}
	f, err := filterParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	days, err := intParam(c, "days", query.DefaultTrendDays)
	if err != nil {
		badRequest(c, err)
		return
	}
	bins, err := binsParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		badRequest(c, err)
		return
	}

	name := c.Param("query")
	if !knownQuery(name) {
		respondError(c, http.StatusNotFound, "unknown_query", errors.New("unknown query: "+name))
		return
	}
	t, err := s.app.Query.Run(c.Request.Context(), name, query.Params{
		Filter: f,
		Window: query.Days(days),
		Bins:   bins,
		Limit:  limit,
	})
	if errors.Is(err, query.ErrBadParams) {
		badRequest(c, err)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := t.Render(format)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, ctype, []byte(out))
}

func knownQuery(name string) bool {
	for _, n := range query.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func (s *Server) resolveAlert(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.app.Repo.ResolveAlert(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.app.Query.Invalidate(ctx); err != nil {
		s.log.Warn("cache invalidation failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"alert_id": id, "resolved": true})
}

func (s *Server) completeGoal(c *gin.Context) {
	ctx := c.Request.Context()
	g, err := s.app.Repo.CompleteGoal(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			s.fail(c, err)
			return
		}
		respondError(c, http.StatusConflict, "goal_state", err)
		return
	}
	if err := s.app.Query.Invalidate(ctx); err != nil {
		s.log.Warn("cache invalidation failed", "error", err)
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) feedStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Feed.Status())
}

type feedStartRequest struct {
	IntervalSeconds int      `json:"interval_seconds"`
	Users           []string `json:"users"`
	Count           int      `json:"count"`
}

func (s *Server) feedStart(c *gin.Context) {
	var req feedStartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	interval := 5 * time.Second
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds) * time.Second
	}
	if _, err := s.app.StartFeed(c.Request.Context(), interval, req.Users, req.Count); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s.app.Feed.Status())
}

func (s *Server) feedStop(c *gin.Context) {
	if err := s.app.StopFeed(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.app.Feed.Status())
}

func (s *Server) recentFeed(c *gin.Context) {
	lookback, err := intParam(c, "lookback", 60)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	w, err := s.app.Query.RecentFeed(c.Request.Context(), time.Duration(lookback)*time.Second, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
