package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"presstrack/internal/core"
	"presstrack/internal/jobs"
	"presstrack/internal/recordstore"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ProgressRequest struct {
	Qty     int64  `json:"qty" binding:"required"`
	Machine int    `json:"machine"`
	Region  string `json:"region"`
}

type StartRequest struct {
	Machine int    `json:"machine" binding:"required"`
	Region  string `json:"region"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
	Region string `json:"region"`
}

type CartonsRequest struct {
	// Pointer so an explicit zero ("received, none counted yet") passes
	// required-field binding.
	Cartons *int64 `json:"cartons" binding:"required"`
	Region  string `json:"region"`
}

type JobHandler struct {
	service *jobs.Service
}

func NewJobHandler(service *jobs.Service) *JobHandler {
	return &JobHandler{service: service}
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	region := c.Query("region")

	list, err := h.service.ListJobs(c.Request.Context(), region)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  list,
		"count": len(list),
	})
}

func (h *JobHandler) RecordProgress(c *gin.Context) {
	id := c.Param("id")

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	outcome, err := h.service.RecordProgress(c.Request.Context(), req.Region, id, req.Qty, core.Machine(req.Machine))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"newLeft":  outcome.NewLeft,
		"finished": outcome.Finished,
	})
}

func (h *JobHandler) StartJob(c *gin.Context) {
	id := c.Param("id")

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.service.AssignMachine(c.Request.Context(), req.Region, id, core.Machine(req.Machine)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"machine": req.Machine,
	})
}

func (h *JobHandler) SetStatus(c *gin.Context) {
	id := c.Param("id")

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.service.SetStatus(c.Request.Context(), req.Region, id, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"status": req.Status,
	})
}

func (h *JobHandler) ReceiveCartons(c *gin.Context) {
	id := c.Param("id")

	var req CartonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.service.ReceiveCartons(c.Request.Context(), req.Region, id, *req.Cartons); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"cartonIn": *req.Cartons,
	})
}

// respondError maps the service error taxonomy to HTTP. Caller errors are
// 4xx and never retried upstream; data corruption is a 500; store failures
// forward the upstream status verbatim so callers can decide to retry.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrInvalidMachine),
		errors.Is(err, core.ErrInvalidCartons),
		errors.Is(err, core.ErrMissingStatus),
		errors.Is(err, core.ErrUnknownRegion):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		})
	case errors.Is(err, core.ErrQuantityExceedsRemaining):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "qty_exceeds_remaining",
			Message: err.Error(),
		})
	case errors.Is(err, recordstore.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "record not found",
		})
	default:
		var transErr *core.IllegalTransitionError
		var malformedErr *core.MalformedQuantityError
		var validationErr *recordstore.ValidationError
		var upstreamErr *recordstore.UpstreamError

		switch {
		case errors.As(err, &transErr):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "illegal_transition",
				Message: transErr.Error(),
			})
		case errors.As(err, &malformedErr):
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "malformed_quantity",
				Message: malformedErr.Error(),
			})
		case errors.As(err, &validationErr):
			c.JSON(validationErr.StatusCode, ErrorResponse{
				Error:   "schema_mismatch",
				Message: validationErr.Body,
			})
		case errors.As(err, &upstreamErr):
			c.JSON(upstreamErr.StatusCode, ErrorResponse{
				Error:   "upstream_error",
				Message: upstreamErr.Body,
			})
		default:
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "upstream_unavailable",
				Message: err.Error(),
			})
		}
	}
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs/:id/progress", h.RecordProgress)
	r.POST("/jobs/:id/start", h.StartJob)
	r.POST("/jobs/:id/status", h.SetStatus)
	r.POST("/jobs/:id/cartons", h.ReceiveCartons)
}
