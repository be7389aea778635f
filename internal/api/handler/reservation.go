package handler

import (
	"net/http"

	"parking_facility/internal/api/middleware"
	"parking_facility/internal/domain"
	"parking_facility/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	reservationService *service.ReservationService
	sessionService     *service.SessionService
}

func NewReservationHandler(rs *service.ReservationService, ss *service.SessionService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs, sessionService: ss}
}

// POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var dto domain.CreateReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.reservationService.Create(c.Request.Context(), middleware.ActorFromContext(c), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /reservations lists the caller's own reservations; admins can filter
// across all of them with query parameters.
func (h *ReservationHandler) FindReservations(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if !actor.Admin {
		reservations, err := h.reservationService.ListForUser(c.Request.Context(), actor.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reservations)
		return
	}

	var filter domain.ReservationFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservations, err := h.reservationService.Find(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservationByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.reservationService.GetByID(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/cancel
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.reservationService.Cancel(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/start-session
func (h *ReservationHandler) StartSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sess, err := h.sessionService.StartFromReservation(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// POST /reservations/:id/stop-session
func (h *ReservationHandler) StopSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sess, err := h.sessionService.StopFromReservation(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
