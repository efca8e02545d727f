package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saltybikes/fleet-backend/user"
)

type userResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Role        user.Role  `json:"role"`
	State       user.State `json:"state"`
	RentalLimit int        `json:"rentalLimit"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		State:       u.State,
		RentalLimit: u.RentalLimit,
	}
}

func toUserResponses(users []user.User) []userResponse {
	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	return responses
}

func (a *API) usersHandler(c *gin.Context) {
	users, err := a.ur.ListByRole(c, user.RoleRider)
	if err != nil {
		a.fail(c, "list_users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": toUserResponses(users)})
}

func (a *API) blockedUsersHandler(c *gin.Context) {
	users, err := a.ur.ListBlocked(c)
	if err != nil {
		a.fail(c, "list_blocked_users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": toUserResponses(users)})
}

func (a *API) blockUserHandler(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	u, err := a.svc.BlockUser(c, id)
	if err != nil {
		a.fail(c, "block_user", err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

func (a *API) unblockUserHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if _, err := a.svc.UnblockUser(c, id); err != nil {
		a.fail(c, "unblock_user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) techsHandler(c *gin.Context) {
	techs, err := a.ur.ListByRole(c, user.RoleTech)
	if err != nil {
		a.fail(c, "list_techs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"techs": toUserResponses(techs)})
}

func (a *API) createTechHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request."})
		return
	}

	u, err := a.ur.Create(c, req.Login, req.Password, user.RoleTech)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"message": "Username already taken."})
			return
		}
		a.fail(c, "create_tech", err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// getTech loads a user and confirms the tech role; other accounts are
// reported as missing rather than revealed.
func (a *API) getTech(c *gin.Context, id uuid.UUID) (user.User, bool) {
	u, err := a.ur.Get(c, id)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		a.fail(c, "get_tech", err)
		return user.User{}, false
	}
	if err != nil || u.Role != user.RoleTech {
		c.JSON(http.StatusNotFound, gin.H{"message": "Tech not found."})
		return user.User{}, false
	}
	return u, true
}

func (a *API) techHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	u, ok := a.getTech(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

func (a *API) deleteTechHandler(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	u, ok := a.getTech(c, id)
	if !ok {
		return
	}

	if err := a.ur.Delete(c, u.ID); err != nil {
		a.fail(c, "delete_tech", err)
		return
	}
	c.Status(http.StatusNoContent)
}
