// internal/web/handlers.go - monitor, collection and saved-request endpoints
package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hostpulse/internal/store"
)

type monitorRequest struct {
	Name            string `json:"name"`
	Host            string `json:"host"`
	Port            *int   `json:"port"`
	Enabled         *bool  `json:"enabled"`
	IntervalSeconds *int   `json:"interval_seconds"`
	CollectionID    string `json:"collection_id"`
}

func (r *monitorRequest) validate() error {
	if r.Host == "" {
		return fmt.Errorf("host is required")
	}
	if r.Port != nil && (*r.Port < 1 || *r.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if r.IntervalSeconds != nil && *r.IntervalSeconds < 1 {
		return fmt.Errorf("interval_seconds must be at least 1")
	}
	return nil
}

func (s *Server) getMonitors(c *gin.Context) {
	var (
		monitors []store.MonitorTarget
		err      error
	)

	if c.Query("scope") == "all" {
		monitors, err = s.store.GetAllMonitors(c.Request.Context())
	} else {
		monitors, err = s.store.GetMonitors(c.Request.Context())
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to get monitors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monitors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": monitors, "count": len(monitors)})
}

func (s *Server) getMonitor(c *gin.Context) {
	monitor, err := s.store.GetMonitor(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monitor"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": monitor, "scheduled": s.engine.TargetScheduled(monitor.ID)})
}

func (s *Server) createMonitor(c *gin.Context) {
	var req monitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	interval := int(s.config.Monitoring.DefaultInterval.Seconds())
	if req.IntervalSeconds != nil {
		interval = *req.IntervalSeconds
	}

	monitor := &store.MonitorTarget{
		Name:            req.Name,
		Host:            req.Host,
		Port:            req.Port,
		Enabled:         enabled,
		IntervalSeconds: interval,
		Status:          store.StatusUnknown,
		PreviousStatus:  store.StatusUnknown,
	}
	if monitor.Name == "" {
		monitor.Name = monitor.Host
	}

	if err := s.store.CreateMonitor(c.Request.Context(), monitor, req.CollectionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
			return
		}
		logrus.WithError(err).Error("Failed to create monitor")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create monitor"})
		return
	}

	if monitor.Enabled {
		if err := s.engine.StartTarget(monitor.ID); err != nil {
			logrus.WithError(err).WithField("monitor", monitor.Name).Warn("Failed to schedule monitor")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"data": monitor})
}

// monitorUpdateRequest patches a monitor: only the fields present in the
// body change. A port of 0 clears the port back to the default.
type monitorUpdateRequest struct {
	Name            *string `json:"name"`
	Host            *string `json:"host"`
	Port            *int    `json:"port"`
	Enabled         *bool   `json:"enabled"`
	IntervalSeconds *int    `json:"interval_seconds"`
}

func (r *monitorUpdateRequest) validate() error {
	if r.Host != nil && *r.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if r.Port != nil && *r.Port != 0 && (*r.Port < 1 || *r.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if r.IntervalSeconds != nil && *r.IntervalSeconds < 1 {
		return fmt.Errorf("interval_seconds must be at least 1")
	}
	return nil
}

func (s *Server) updateMonitor(c *gin.Context) {
	var req monitorUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	monitor, err := s.store.GetMonitor(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monitor"})
		return
	}

	if req.Name != nil && *req.Name != "" {
		monitor.Name = *req.Name
	}
	if req.Host != nil {
		monitor.Host = *req.Host
	}
	if req.Port != nil {
		if *req.Port == 0 {
			monitor.Port = nil
		} else {
			monitor.Port = req.Port
		}
	}
	if req.IntervalSeconds != nil {
		monitor.IntervalSeconds = *req.IntervalSeconds
	}
	if req.Enabled != nil {
		monitor.Enabled = *req.Enabled
	}

	if err := s.store.UpdateMonitor(c.Request.Context(), monitor); err != nil {
		logrus.WithError(err).Error("Failed to update monitor")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update monitor"})
		return
	}

	// Enable flips re-arm or cancel the schedule; host and interval
	// edits are picked up by the running schedule on its next tick.
	if monitor.Enabled {
		if !s.engine.TargetScheduled(monitor.ID) {
			if err := s.engine.StartTarget(monitor.ID); err != nil {
				logrus.WithError(err).WithField("monitor", monitor.Name).Warn("Failed to schedule monitor")
			}
		}
	} else {
		s.engine.StopTarget(monitor.ID)
	}

	c.JSON(http.StatusOK, gin.H{"data": monitor})
}

func (s *Server) deleteMonitor(c *gin.Context) {
	id := c.Param("id")

	s.engine.StopTarget(id)

	if err := s.store.DeleteMonitor(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
			return
		}
		logrus.WithError(err).Error("Failed to delete monitor")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete monitor"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) checkMonitor(c *gin.Context) {
	monitor, err := s.engine.CheckNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
			return
		}
		logrus.WithError(err).Error("Manual check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": monitor})
}

func (s *Server) getCollections(c *gin.Context) {
	collections, err := s.store.GetCollections(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get collections")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get collections"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": collections, "count": len(collections)})
}

func (s *Server) getCollection(c *gin.Context) {
	collection, err := s.store.GetCollection(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get collection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": collection})
}

type collectionRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createCollection(c *gin.Context) {
	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := &store.Collection{Name: req.Name}
	if err := s.store.CreateCollection(c.Request.Context(), collection); err != nil {
		logrus.WithError(err).Error("Failed to create collection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create collection"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": collection})
}

func (s *Server) renameCollection(c *gin.Context) {
	var req collectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.RenameCollection(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rename collection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"renamed": c.Param("id")})
}

func (s *Server) deleteCollection(c *gin.Context) {
	id := c.Param("id")

	// Schedules of grouped monitors die with their collection.
	collection, err := s.store.GetCollection(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get collection"})
		return
	}
	for _, monitor := range collection.Monitors {
		s.engine.StopTarget(monitor.ID)
	}

	if err := s.store.DeleteCollection(c.Request.Context(), id); err != nil {
		logrus.WithError(err).Error("Failed to delete collection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete collection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

type savedRequestBody struct {
	Name    string            `json:"name"`
	Method  string            `json:"method" binding:"required"`
	URL     string            `json:"url" binding:"required"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

func (s *Server) createRequest(c *gin.Context) {
	var req savedRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved := &store.SavedRequest{
		Name:    req.Name,
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Headers,
		Body:    req.Body,
	}
	if saved.Name == "" {
		saved.Name = saved.URL
	}

	if err := s.store.CreateRequest(c.Request.Context(), saved, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collection not found"})
			return
		}
		logrus.WithError(err).Error("Failed to create request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": saved})
}

func (s *Server) updateRequest(c *gin.Context) {
	var req savedRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := s.store.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get request"})
		return
	}

	if req.Name != "" {
		saved.Name = req.Name
	}
	saved.Method = req.Method
	saved.URL = req.URL
	saved.Headers = req.Headers
	saved.Body = req.Body

	if err := s.store.UpdateRequest(c.Request.Context(), saved); err != nil {
		logrus.WithError(err).Error("Failed to update request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": saved})
}

func (s *Server) deleteRequest(c *gin.Context) {
	if err := s.store.DeleteRequest(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) sendRequest(c *gin.Context) {
	saved, err := s.store.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get request"})
		return
	}

	result := s.sender.Send(c.Request.Context(), *saved)
	c.JSON(http.StatusOK, gin.H{"data": result})
}
