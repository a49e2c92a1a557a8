package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/engine"
	"github.com/roach88/todo/internal/task"
	"github.com/roach88/todo/internal/view"
)

type createRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	DueDate  string `json:"dueDate"`
	DueTime  string `json:"dueTime"`
}

type editRequest struct {
	Text string `json:"text"`
}

type sessionRequest struct {
	Owner string `json:"owner" binding:"required"`
}

func errorBody(code task.Code, msg string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": msg}}
}

// badRequest answers 400 for err.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody(task.CodeValidation, err.Error()))
}

// unavailable answers 503 when the engine cannot take requests.
func unavailable(c *gin.Context, err error) {
	c.JSON(http.StatusServiceUnavailable, errorBody(task.CodeUnavailable, err.Error()))
}

func records(ts []task.Task) []task.Record {
	out := make([]task.Record, len(ts))
	for i, t := range ts {
		out[i] = task.ToRecord(t)
	}
	return out
}

func (s *Server) handleListTasks(c *gin.Context) {
	status, err := view.ParseStatus(c.Query("status"))
	if err != nil {
		badRequest(c, err)
		return
	}
	sortBy := s.defaultSort
	if raw := c.Query("sort"); raw != "" {
		if sortBy, err = view.ParseSortKey(raw); err != nil {
			badRequest(c, err)
			return
		}
	}

	snap, err := s.engine.Snapshot(c.Request.Context())
	if err != nil {
		unavailable(c, err)
		return
	}

	q := view.Query{Status: status, Filter: c.Query("filter"), Search: c.Query("search"), SortBy: sortBy}
	tasks := view.Project(snap.Active, q)
	c.JSON(http.StatusOK, gin.H{
		"owner": snap.Owner,
		"tasks": records(tasks),
		"shown": len(tasks),
		"total": len(snap.Active),
	})
}

func (s *Server) handleListArchived(c *gin.Context) {
	snap, err := s.engine.Snapshot(c.Request.Context())
	if err != nil {
		unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": records(snap.Archived),
		"total": len(snap.Archived),
	})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	priority, err := task.ParsePriority(req.Priority)
	if err != nil {
		badRequest(c, err)
		return
	}
	category, err := task.MatchCategory(s.categories, req.Category)
	if err != nil {
		badRequest(c, err)
		return
	}
	var due time.Time
	if req.DueDate != "" || req.DueTime != "" {
		if due, err = task.JoinDue(req.DueDate, req.DueTime); err != nil {
			badRequest(c, err)
			return
		}
	}

	s.submit(c, engine.Command{
		Kind:     collection.KindAdd,
		Text:     req.Text,
		Category: category,
		Priority: priority,
		DueAt:    due,
	})
}

func (s *Server) handleEditTask(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.submit(c, engine.Command{Kind: collection.KindEdit, TaskID: c.Param("id"), Text: req.Text})
}

func (s *Server) handleToggleTask(c *gin.Context) {
	s.submit(c, engine.Command{Kind: collection.KindToggle, TaskID: c.Param("id")})
}

func (s *Server) handleArchiveTask(c *gin.Context) {
	s.submit(c, engine.Command{Kind: collection.KindArchive, TaskID: c.Param("id")})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	s.submit(c, engine.Command{Kind: collection.KindDelete, TaskID: c.Param("id")})
}

func (s *Server) handleDeleteArchived(c *gin.Context) {
	s.submit(c, engine.Command{Kind: collection.KindDeleteArchived, TaskID: c.Param("id")})
}

// submit queues cmd and answers 202 with the notification sequence to poll
// from.
func (s *Server) submit(c *gin.Context, cmd engine.Command) {
	var since int64
	if n, ok := s.recorder.Last(); ok {
		since = n.Seq
	}
	if err := s.engine.Submit(cmd); err != nil {
		unavailable(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
		"op":     cmd.Kind,
		"since":  since,
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	owner, ok := s.session.Current()
	c.JSON(http.StatusOK, gin.H{"owner": owner, "signedIn": ok})
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.session.SignIn(req.Owner)
	c.JSON(http.StatusOK, gin.H{"owner": req.Owner, "signedIn": true})
}

func (s *Server) handleSignOut(c *gin.Context) {
	s.session.SignOut()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleNotifications(c *gin.Context) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		badRequest(c, errors.New("since must be an integer"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": s.recorder.Since(since)})
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": s.categories,
		"priorities": task.Priorities,
		"filters":    view.FilterValues(s.categories),
	})
}
