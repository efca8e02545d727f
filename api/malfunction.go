package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/internal/middleware"
	"github.com/saltybikes/fleet-backend/malfunction"
)

type malfunctionResponse struct {
	ID          uuid.UUID `json:"id"`
	BikeID      uuid.UUID `json:"bikeId"`
	UserID      uuid.UUID `json:"userId"`
	Description string    `json:"description"`
	CreatedAt   string    `json:"createdAt"`
}

func toMalfunctionResponse(m malfunction.Malfunction) malfunctionResponse {
	return malfunctionResponse{
		ID:          m.ID,
		BikeID:      m.BikeID,
		UserID:      m.UserID,
		Description: m.Description,
		CreatedAt:   m.CreatedAt.UTC().Format(timeFormat),
	}
}

func (a *API) malfunctionsHandler(c *gin.Context) {
	reports, err := a.mr.List(c)
	if err != nil {
		a.fail(c, "list_malfunctions", err)
		return
	}

	responses := make([]malfunctionResponse, 0, len(reports))
	for _, m := range reports {
		responses = append(responses, toMalfunctionResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"malfunctions": responses})
}

type reportMalfunctionRequest struct {
	ID          string `json:"id" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (a *API) reportMalfunctionHandler(c *gin.Context) {
	actor, _ := middleware.GetUser(c)

	var req reportMalfunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Id and description required."})
		return
	}
	bikeID, err := uuid.Parse(req.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid id."})
		return
	}

	m, err := a.svc.ReportMalfunction(c, bikeID, req.Description, actor.ID)
	if err != nil {
		a.fail(c, "report_malfunction", err)
		return
	}
	c.JSON(http.StatusCreated, toMalfunctionResponse(m))
}

func (a *API) deleteMalfunctionHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	err := a.mr.Delete(c, id)
	if err != nil {
		if errors.Is(err, malfunction.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Malfunction not found."})
			return
		}
		a.fail(c, "delete_malfunction", err)
		return
	}
	c.Status(http.StatusNoContent)
}
