package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/middleware"
	"github.com/saltybikes/fleet-backend/station"
)

type stationResponse struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	State            station.State `json:"state"`
	BikesLimit       int           `json:"bikesLimit"`
	ActiveBikesCount int           `json:"activeBikesCount"`
}

func (a *API) toStationResponse(c *gin.Context, s station.Station) (stationResponse, error) {
	docked, err := a.sr.DockedCount(c, s.ID)
	if err != nil {
		return stationResponse{}, err
	}
	return stationResponse{
		ID:               s.ID,
		Name:             s.Name,
		State:            s.State,
		BikesLimit:       s.BikesLimit,
		ActiveBikesCount: docked,
	}, nil
}

func (a *API) renderStations(c *gin.Context, operation string, stations []station.Station) {
	responses := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		resp, err := a.toStationResponse(c, s)
		if err != nil {
			a.fail(c, operation, err)
			return
		}
		responses = append(responses, resp)
	}
	c.JSON(http.StatusOK, gin.H{"stations": responses})
}

func (a *API) stationsHandler(c *gin.Context) {
	if !a.sweepExpired(c) {
		return
	}

	stations, err := a.sr.List(c)
	if err != nil {
		a.fail(c, "list_stations", err)
		return
	}
	a.renderStations(c, "list_stations", stations)
}

func (a *API) activeStationsHandler(c *gin.Context) {
	if !a.sweepExpired(c) {
		return
	}

	stations, err := a.sr.ListByState(c, station.Working)
	if err != nil {
		a.fail(c, "list_active_stations", err)
		return
	}
	a.renderStations(c, "list_active_stations", stations)
}

type createStationRequest struct {
	Name       string `json:"name" binding:"required"`
	BikesLimit *int   `json:"bikesLimit"`
}

const defaultBikesLimit = 10

func (a *API) createStationHandler(c *gin.Context) {
	var req createStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name not provided."})
		return
	}

	limit := defaultBikesLimit
	if req.BikesLimit != nil {
		if *req.BikesLimit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid bikes limit."})
			return
		}
		limit = *req.BikesLimit
	}

	s, err := a.sr.Create(c, req.Name, limit)
	if err != nil {
		a.fail(c, "create_station", err)
		return
	}

	resp, err := a.toStationResponse(c, s)
	if err != nil {
		a.fail(c, "create_station", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a *API) stationHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	s, err := a.sr.Get(c, id)
	if err != nil {
		if errors.Is(err, station.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Station not found."})
			return
		}
		a.fail(c, "get_station", err)
		return
	}

	resp, err := a.toStationResponse(c, s)
	if err != nil {
		a.fail(c, "get_station", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) deleteStationHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	err := a.sr.Delete(c, id)
	if err != nil {
		if errors.Is(err, station.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Station not found."})
			return
		}
		a.fail(c, "delete_station", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) stationBikesHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if _, err := a.sr.Get(c, id); err != nil {
		if errors.Is(err, station.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Station not found."})
			return
		}
		a.fail(c, "station_bikes", err)
		return
	}

	if !a.sweepExpired(c) {
		return
	}

	bikes, err := a.br.ListDockedAt(c, id, bike.StatusAvailable)
	if err != nil {
		a.fail(c, "station_bikes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bikes": toBikeResponses(bikes)})
}

func (a *API) returnBikeHandler(c *gin.Context) {
	actor, _ := middleware.GetUser(c)
	stationID, ok := paramID(c)
	if !ok {
		return
	}
	bikeID, ok := bindID(c)
	if !ok {
		return
	}

	b, err := a.svc.Return(c, bikeID, stationID, actor.ID)
	if err != nil {
		a.fail(c, "return", err)
		return
	}
	c.JSON(http.StatusCreated, toBikeResponse(b))
}

func (a *API) blockedStationsHandler(c *gin.Context) {
	stations, err := a.sr.ListByState(c, station.Blocked)
	if err != nil {
		a.fail(c, "list_blocked_stations", err)
		return
	}
	a.renderStations(c, "list_blocked_stations", stations)
}

func (a *API) blockStationHandler(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	s, err := a.svc.BlockStation(c, id)
	if err != nil {
		a.fail(c, "block_station", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": s.ID, "name": s.Name})
}

func (a *API) unblockStationHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if _, err := a.svc.UnblockStation(c, id); err != nil {
		a.fail(c, "unblock_station", err)
		return
	}
	c.Status(http.StatusNoContent)
}
