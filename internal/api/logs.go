package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/agentcore/internal/logstore"
)

// parseFilter builds a log filter from the query string.
func parseFilter(c *gin.Context) (*logstore.Filter, error) {
	f := &logstore.Filter{
		Sources: listParam(c, "source"),
		TaskIDs: listParam(c, "taskId"),
		Search:  c.Query("search"),
	}
	for _, l := range listParam(c, "level") {
		level, err := logstore.ParseLevel(strings.ToLower(l))
		if err != nil {
			return nil, err
		}
		f.Levels = append(f.Levels, level)
	}

	var err error
	if f.Since, err = timeParam(c, "since"); err != nil {
		return nil, err
	}
	if f.Until, err = timeParam(c, "until"); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// listParam collects repeated and comma-separated values.
func listParam(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func timeParam(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339, got %q", logstore.ErrInvalidFilter, key, raw)
	}
	return t, nil
}

func (s *Server) queryLogs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a non-negative integer",
			})
			return
		}
	}

	entries := s.logs.Query(filter, limit)
	if entries == nil {
		entries = []logstore.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) clearLogs(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"removed": s.logs.Clear(filter),
	})
}

func (s *Server) logStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.logs.Stats(s.now()))
}

var exportTypes = map[logstore.Format]struct {
	contentType string
	ext         string
}{
	logstore.FormatJSON: {"application/json; charset=utf-8", "json"},
	logstore.FormatCSV:  {"text/csv; charset=utf-8", "csv"},
	logstore.FormatText: {"text/plain; charset=utf-8", "txt"},
}

func (s *Server) exportLogs(c *gin.Context) {
	format, err := logstore.ParseFormat(c.Query("format"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out, err := s.logs.Export(format, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	t := exportTypes[format]
	name := fmt.Sprintf("agentcore-logs-%s.%s", s.now().UTC().Format("2006-01-02"), t.ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, t.contentType, []byte(out))
}

func (s *Server) importLogs(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	n, err := s.logs.Import(body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": n,
	})
}
