package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/agentcore/internal/agent"
	"github.com/dshills/agentcore/internal/logstore"
	"github.com/dshills/agentcore/internal/registry"
	"github.com/dshills/agentcore/internal/status"
)

// TaskView is a task as listed by the API.
type TaskView struct {
	registry.Descriptor
	Status status.Status `json:"status"`
}

// TaskDetail adds the last result to a TaskView.
type TaskDetail struct {
	TaskView
	LastResult *agent.Result `json:"lastResult,omitempty"`
}

// RunRequest is the body of POST /tasks/:id/run. The body is optional.
type RunRequest struct {
	Input     string         `json:"input"`
	TimeoutMs int64          `json:"timeoutMs"`
	Params    map[string]any `json:"params"`

	// Async returns 202 at once instead of waiting for the result.
	Async bool `json:"async"`
}

func (s *Server) view(d registry.Descriptor) TaskView {
	return TaskView{Descriptor: d, Status: s.exec.Statuses().Get(d.ID)}
}

func (s *Server) listTasks(c *gin.Context) {
	descs := s.catalog.List()
	out := make([]TaskView, 0, len(descs))
	for _, d := range descs {
		out = append(out, s.view(d))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) lookup(c *gin.Context) (registry.Descriptor, bool) {
	id := c.Param("id")
	d, ok := s.catalog.Descriptor(id)
	if !ok {
		abortWithError(c, &agent.ValidationError{TaskID: id, Err: agent.ErrUnknownTask})
	}
	return d, ok
}

func (s *Server) getTask(c *gin.Context) {
	d, ok := s.lookup(c)
	if !ok {
		return
	}
	detail := TaskDetail{TaskView: s.view(d)}
	if r, ok := s.exec.LastResult(d.ID); ok {
		detail.LastResult = &r
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) getTaskStatus(c *gin.Context) {
	d, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"taskId": d.ID,
		"status": s.exec.Statuses().Get(d.ID),
	})
}

func (s *Server) runTask(c *gin.Context) {
	d, ok := s.lookup(c)
	if !ok {
		return
	}

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.TimeoutMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "timeoutMs must not be negative",
		})
		return
	}

	opts := agent.RunOptions{
		Timeout: time.Duration(req.TimeoutMs) * time.Millisecond,
		Params:  req.Params,
	}

	if req.Async {
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			if _, err := s.exec.Run(s.baseCtx, d.Task, req.Input, opts); err != nil {
				s.logs.Append(logstore.LevelWarn, fmt.Sprintf("Background run rejected: %v", err),
					logstore.SourceAPI, nil, d.ID)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{
			"taskId":   d.ID,
			"accepted": true,
		})
		return
	}

	// A client that disconnects aborts its run.
	result, err := s.exec.Run(c.Request.Context(), d.Task, req.Input, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) cancelTask(c *gin.Context) {
	d, ok := s.lookup(c)
	if !ok {
		return
	}
	s.exec.Cancel(d.ID)
	c.JSON(http.StatusOK, gin.H{
		"taskId": d.ID,
		"status": s.exec.Statuses().Get(d.ID),
	})
}

func (s *Server) cancelAll(c *gin.Context) {
	n := s.exec.CancelAll()
	c.JSON(http.StatusOK, gin.H{
		"cancelled": n,
	})
}

func (s *Server) getHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"active": s.exec.Active(),
	}
	if s.conn != nil {
		state, err := s.conn.State()
		conn := gin.H{
			"name":  s.conn.Name(),
			"state": state,
		}
		if err != nil {
			conn["error"] = err.Error()
		}
		body["bridge"] = conn
	}
	c.JSON(http.StatusOK, body)
}
