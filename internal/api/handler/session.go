package handler

import (
	"net/http"
	"time"

	"parking_facility/internal/api/middleware"
	"parking_facility/internal/domain"
	"parking_facility/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingSessionHandler struct {
	sessionService *service.SessionService
}

func NewParkingSessionHandler(sessionService *service.SessionService) *ParkingSessionHandler {
	return &ParkingSessionHandler{sessionService: sessionService}
}

// POST /parking-sessions/check-in
func (h *ParkingSessionHandler) VehicleCheckIn(c *gin.Context) {
	var dto domain.StartSessionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessionService.Start(c.Request.Context(), middleware.ActorFromContext(c), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// POST /parking-sessions/:id/check-out
func (h *ParkingSessionHandler) VehicleCheckOut(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sess, err := h.sessionService.Stop(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GET /parking-sessions/:id/preview?end=RFC3339 quotes the cost of the session
// up to the given moment (default now) without closing it.
func (h *ParkingSessionHandler) PreviewCost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	end := time.Now()
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
			return
		}
		end = parsed
	}

	cost, err := h.sessionService.Preview(c.Request.Context(), id, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "end": end, "cost": cost})
}

// GET /parking-sessions
func (h *ParkingSessionHandler) FindParkingSessions(c *gin.Context) {
	var filter domain.SessionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessions, err := h.sessionService.Find(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GET /parking-sessions/:id
func (h *ParkingSessionHandler) GetParkingSessionByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sess, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
