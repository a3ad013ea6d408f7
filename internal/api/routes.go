package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foryou-care/foryou/internal/escalation"
	"github.com/foryou-care/foryou/internal/events"
	"github.com/foryou-care/foryou/internal/models"
	"github.com/foryou-care/foryou/internal/session"
	"github.com/foryou-care/foryou/internal/triage"
	"github.com/foryou-care/foryou/internal/volunteer"
)

// registerRoutes sets up all JSON API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, pipeline *session.Pipeline, em *events.Emitter, dir volunteer.Directory) {
	apiGroup := router.Group("/api")

	apiGroup.POST("/sessions", handleStartSession(db))
	apiGroup.GET("/sessions/:uuid", handleGetSession(db))
	apiGroup.POST("/sessions/:uuid/messages", handleSendMessage(pipeline))
	apiGroup.POST("/sessions/:uuid/end", handleEndSession(db, pipeline, em))

	apiGroup.POST("/triage/:id/accept", handleTriageAccept(db, em))
	apiGroup.POST("/triage/:id/decline", handleTriageDecline(db, em))

	apiGroup.GET("/queue", handleQueueList(db))
	apiGroup.POST("/queue/:id/claim", handleQueueClaim(db, em, dir))
	apiGroup.POST("/queue/:id/release", handleQueueRelease(db, em))
	apiGroup.POST("/queue/:id/complete", handleQueueComplete(db, em))
	apiGroup.GET("/queue/:id/messages", handleDirectHistory(db))
	apiGroup.POST("/queue/:id/messages", handleDirectSend(db))
}

func handleStartSession(db *gorm.DB) gin.HandlerFunc {
	type startReq struct {
		UserID uint   `json:"user_id" binding:"required"`
		Title  string `json:"title"`
	}
	return func(c *gin.Context) {
		var req startReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s, err := session.Start(db, req.UserID, req.Title)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

func handleGetSession(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := session.Get(db, c.Param("uuid"))
		if err != nil {
			writeError(c, err)
			return
		}
		msgs, err := session.RecentMessages(db, s.ID, 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s, "messages": msgs})
	}
}

func handleSendMessage(pipeline *session.Pipeline) gin.HandlerFunc {
	type sendReq struct {
		SenderID uint   `json:"sender_id" binding:"required"`
		Content  string `json:"content" binding:"required"`
	}
	return func(c *gin.Context) {
		var req sendReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := pipeline.ProcessMessage(c.Request.Context(), c.Param("uuid"), req.SenderID, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func handleEndSession(db *gorm.DB, pipeline *session.Pipeline, em *events.Emitter) gin.HandlerFunc {
	type endReq struct {
		Status models.SessionStatus `json:"status"`
	}
	return func(c *gin.Context) {
		req := endReq{Status: models.SessionCompleted}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		s, err := session.End(db, em, c.Param("uuid"), req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		pipeline.Forget(s.ID)
		c.JSON(http.StatusOK, s)
	}
}

func handleTriageAccept(db *gorm.DB, em *events.Emitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		record, req, err := triage.Accept(db, em, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record, "escalation": req})
	}
}

func handleTriageDecline(db *gorm.DB, em *events.Emitter) gin.HandlerFunc {
	type declineReq struct {
		Reason string `json:"reason"`
	}
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req declineReq
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		record, err := triage.Decline(db, em, id, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func handleQueueList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, err := escalation.ListWaiting(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"waiting": reqs})
	}
}

func handleQueueClaim(db *gorm.DB, em *events.Emitter, dir volunteer.Directory) gin.HandlerFunc {
	type claimReq struct {
		VolunteerID uint `json:"volunteer_id" binding:"required"`
	}
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req claimReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claimed, err := escalation.Claim(db, em, dir, id, req.VolunteerID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, claimed)
	}
}

func handleQueueRelease(db *gorm.DB, em *events.Emitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := escalation.Release(db, em, id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleQueueComplete(db *gorm.DB, em *events.Emitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := escalation.Complete(db, em, id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleDirectHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		msgs, err := escalation.History(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

func handleDirectSend(db *gorm.DB) gin.HandlerFunc {
	type directReq struct {
		SenderID uint               `json:"sender_id" binding:"required"`
		Role     models.MessageRole `json:"role" binding:"required"`
		Content  string             `json:"content" binding:"required"`
	}
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req directReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		msg, err := escalation.Send(db, id, req.SenderID, req.Role, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// pathID parses the :id path parameter, writing a 400 on failure.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// writeError maps core error kinds to HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, escalation.ErrClaimConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "this request was already taken"})
	case errors.Is(err, escalation.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "already resolved"})
	case errors.Is(err, triage.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrSessionUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": "session unavailable, please try again"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
