package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"parking_facility/internal/repository"
	"parking_facility/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps a service or repository error onto an HTTP status. Every
// handler funnels unexpected errors through here so 500s are logged once.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoActiveSession),
		errors.Is(err, repository.ErrNoActiveSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrInvalidTimeWindow),
		errors.Is(err, service.ErrDiscountRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrNotReservationOwner),
		errors.Is(err, service.ErrNotVehicleOwner),
		errors.Is(err, service.ErrNotSessionOwner),
		errors.Is(err, service.ErrReservationSessionMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrLotFull),
		errors.Is(err, service.ErrLotNotOpen),
		errors.Is(err, service.ErrLotInUse),
		errors.Is(err, service.ErrReservationConflict),
		errors.Is(err, service.ErrReservationFinal),
		errors.Is(err, service.ErrVehicleAlreadyParked),
		errors.Is(err, service.ErrSessionAlreadyExists),
		errors.Is(err, service.ErrSessionAlreadyStopped),
		errors.Is(err, repository.ErrDuplicateEntry),
		errors.Is(err, repository.ErrOverlap):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
