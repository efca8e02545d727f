package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/middleware"
)

type bikeResponse struct {
	ID        uuid.UUID   `json:"id"`
	Status    bike.Status `json:"status"`
	StationID *uuid.UUID  `json:"stationId,omitempty"`
	UserID    *uuid.UUID  `json:"userId,omitempty"`
}

func toBikeResponse(b bike.Bike) bikeResponse {
	return bikeResponse{
		ID:        b.ID,
		Status:    b.Status,
		StationID: b.StationID,
		UserID:    b.UserID,
	}
}

func toBikeResponses(bikes []bike.Bike) []bikeResponse {
	responses := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		responses = append(responses, toBikeResponse(b))
	}
	return responses
}

type idRequest struct {
	ID string `json:"id" binding:"required"`
}

// bindID reads an entity id from the request body. Replies 400 on failure.
func bindID(c *gin.Context) (uuid.UUID, bool) {
	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Id not provided."})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid id."})
		return uuid.Nil, false
	}
	return id, true
}

// paramID reads an entity id from the URL. Replies 400 on failure.
func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid id."})
		return uuid.Nil, false
	}
	return id, true
}

// sweepExpired normalizes lapsed reservations before a read renders state.
func (a *API) sweepExpired(c *gin.Context) bool {
	if err := a.br.ExpireLapsed(c, a.clock.Now()); err != nil {
		middleware.GetLogger(c).ErrorContext(c, "failed to expire reservations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return false
	}
	return true
}

func (a *API) bikesHandler(c *gin.Context) {
	if !a.sweepExpired(c) {
		return
	}

	bikes, err := a.br.ListByStatus(c, bike.StatusAvailable)
	if err != nil {
		a.fail(c, "list_bikes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bikes": toBikeResponses(bikes)})
}

type createBikeRequest struct {
	StationID string `json:"stationId" binding:"required"`
}

func (a *API) createBikeHandler(c *gin.Context) {
	var req createBikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Station id not provided."})
		return
	}
	stationID, err := uuid.Parse(req.StationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid station id."})
		return
	}

	b, err := a.svc.CreateBike(c, stationID)
	if err != nil {
		a.fail(c, "create_bike", err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

func (a *API) bikeHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if !a.sweepExpired(c) {
		return
	}

	b, err := a.br.Get(c, id)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Bike not found."})
			return
		}
		a.fail(c, "get_bike", err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) deleteBikeHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	err := a.br.Delete(c, id)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Bike not found."})
			return
		}
		a.fail(c, "delete_bike", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) rentedBikesHandler(c *gin.Context) {
	bikes, err := a.br.ListByStatus(c, bike.StatusRented)
	if err != nil {
		a.fail(c, "list_rented", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bikes": toBikeResponses(bikes)})
}

func (a *API) rentBikeHandler(c *gin.Context) {
	actor, _ := middleware.GetUser(c)
	id, ok := bindID(c)
	if !ok {
		return
	}

	b, err := a.svc.Rent(c, id, actor.ID)
	if err != nil {
		a.fail(c, "rent", err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

type reservationResponse struct {
	ID           uuid.UUID  `json:"id"`
	BikeID       uuid.UUID  `json:"bikeId"`
	UserID       uuid.UUID  `json:"userId"`
	ReservedAt   string     `json:"reservedAt"`
	ReservedTill string     `json:"reservedTill"`
	StationID    *uuid.UUID `json:"stationId,omitempty"`
}

func (a *API) reservedBikesHandler(c *gin.Context) {
	actor, _ := middleware.GetUser(c)

	if !a.sweepExpired(c) {
		return
	}

	bikes, err := a.br.ListReservedBy(c, actor.ID)
	if err != nil {
		a.fail(c, "list_reserved", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bikes": toBikeResponses(bikes)})
}

func (a *API) reserveBikeHandler(c *gin.Context) {
	actor, _ := middleware.GetUser(c)
	id, ok := bindID(c)
	if !ok {
		return
	}

	b, res, err := a.svc.Reserve(c, id, actor.ID)
	if err != nil {
		a.fail(c, "reserve", err)
		return
	}
	c.JSON(http.StatusCreated, reservationResponse{
		ID:           res.ID,
		BikeID:       b.ID,
		UserID:       res.UserID,
		ReservedAt:   res.ReservedAt.UTC().Format(timeFormat),
		ReservedTill: res.ReservedTill.UTC().Format(timeFormat),
		StationID:    b.StationID,
	})
}

func (a *API) cancelReservationHandler(c *gin.Context) {
	actor, _ := middleware.GetUser(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	b, err := a.svc.CancelReservation(c, id, actor.ID)
	if err != nil {
		a.fail(c, "cancel_reservation", err)
		return
	}
	c.JSON(http.StatusOK, toBikeResponse(b))
}

func (a *API) blockedBikesHandler(c *gin.Context) {
	bikes, err := a.br.ListByStatus(c, bike.StatusBlocked)
	if err != nil {
		a.fail(c, "list_blocked_bikes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bikes": toBikeResponses(bikes)})
}

func (a *API) blockBikeHandler(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	b, err := a.svc.BlockBike(c, id)
	if err != nil {
		a.fail(c, "block_bike", err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

func (a *API) unblockBikeHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if _, err := a.svc.UnblockBike(c, id); err != nil {
		a.fail(c, "unblock_bike", err)
		return
	}
	c.Status(http.StatusNoContent)
}
