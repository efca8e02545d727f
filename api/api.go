package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saltybikes/fleet-backend/bike"
	"github.com/saltybikes/fleet-backend/internal/clock"
	"github.com/saltybikes/fleet-backend/internal/fault"
	"github.com/saltybikes/fleet-backend/internal/middleware"
	"github.com/saltybikes/fleet-backend/internal/o11y"
	"github.com/saltybikes/fleet-backend/malfunction"
	"github.com/saltybikes/fleet-backend/rental"
	"github.com/saltybikes/fleet-backend/station"
	"github.com/saltybikes/fleet-backend/user"
)

const timeFormat = time.RFC3339

type API struct {
	r     *gin.Engine
	br    *bike.Repository
	sr    *station.Repository
	ur    *user.Repository
	mr    *malfunction.Repository
	svc   *rental.Service
	auth  *middleware.Auth
	clock clock.Clock
}

func New(
	br *bike.Repository,
	sr *station.Repository,
	ur *user.Repository,
	mr *malfunction.Repository,
	svc *rental.Service,
	auth *middleware.Auth,
	clk clock.Clock,
	obs *o11y.Observability,
	metricsUsername, metricsPassword string,
) *API {
	a := &API{
		r:     gin.New(),
		br:    br,
		sr:    sr,
		ur:    ur,
		mr:    mr,
		svc:   svc,
		auth:  auth,
		clock: clk,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metrics := a.r.Group("/", gin.BasicAuth(gin.Accounts{metricsUsername: metricsPassword}))
	metrics.GET("/metrics", gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})))

	a.r.POST("/register", a.registerHandler)
	a.r.POST("/login", a.loginHandler)

	a.setupRoutes(a.r.Group("/", auth.Authenticate()))

	return a
}

func (a *API) setupRoutes(authed *gin.RouterGroup) {
	anyRole := middleware.Restrict(user.RoleRider, user.RoleTech, user.RoleAdmin)
	staff := middleware.Restrict(user.RoleTech, user.RoleAdmin)
	admin := middleware.Restrict(user.RoleAdmin)

	authed.POST("/logout", anyRole, a.logoutHandler)

	authed.GET("/bikes", anyRole, a.bikesHandler)
	authed.POST("/bikes", admin, a.createBikeHandler)
	authed.GET("/bikes/:id", staff, a.bikeHandler)
	authed.DELETE("/bikes/:id", admin, a.deleteBikeHandler)

	authed.GET("/bikes/rented", staff, a.rentedBikesHandler)
	authed.POST("/bikes/rented", anyRole, a.rentBikeHandler)

	authed.GET("/bikes/reserved", anyRole, a.reservedBikesHandler)
	authed.POST("/bikes/reserved", anyRole, a.reserveBikeHandler)
	authed.DELETE("/bikes/reserved/:id", anyRole, a.cancelReservationHandler)

	authed.GET("/bikes/blocked", staff, a.blockedBikesHandler)
	authed.POST("/bikes/blocked", staff, a.blockBikeHandler)
	authed.DELETE("/bikes/blocked/:id", staff, a.unblockBikeHandler)

	authed.GET("/stations", staff, a.stationsHandler)
	authed.POST("/stations", admin, a.createStationHandler)
	authed.GET("/stations/active", anyRole, a.activeStationsHandler)
	authed.GET("/stations/blocked", admin, a.blockedStationsHandler)
	authed.POST("/stations/blocked", admin, a.blockStationHandler)
	authed.DELETE("/stations/blocked/:id", admin, a.unblockStationHandler)
	authed.GET("/stations/:id", staff, a.stationHandler)
	authed.DELETE("/stations/:id", admin, a.deleteStationHandler)
	authed.GET("/stations/:id/bikes", anyRole, a.stationBikesHandler)
	authed.POST("/stations/:id/bikes", anyRole, a.returnBikeHandler)

	authed.GET("/users", admin, a.usersHandler)
	authed.GET("/users/blocked", admin, a.blockedUsersHandler)
	authed.POST("/users/blocked", admin, a.blockUserHandler)
	authed.DELETE("/users/blocked/:id", admin, a.unblockUserHandler)

	authed.GET("/techs", admin, a.techsHandler)
	authed.POST("/techs", admin, a.createTechHandler)
	authed.GET("/techs/:id", admin, a.techHandler)
	authed.DELETE("/techs/:id", admin, a.deleteTechHandler)

	authed.GET("/malfunctions", staff, a.malfunctionsHandler)
	authed.POST("/malfunctions", anyRole, a.reportMalfunctionHandler)
	authed.DELETE("/malfunctions/:id", staff, a.deleteMalfunctionHandler)
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// fail renders err. Fault kinds map to protocol codes here and nowhere else.
func (a *API) fail(c *gin.Context, operation string, err error) {
	kind, ok := fault.KindOf(err)
	if !ok {
		middleware.GetLogger(c).ErrorContext(c, "operation failed",
			"operation", operation, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	middleware.ObserveTransitionFailure(operation, kind.String())
	c.JSON(statusFor(kind), gin.H{"message": err.Error()})
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Forbidden:
		return http.StatusForbidden
	case fault.Conflict:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
