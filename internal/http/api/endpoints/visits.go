package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/db"
	"github.com/minaret-app/minaret/internal/http/api"
)

type visitsController struct {
	store db.Store
}

// VisitsModule lists the user's recorded mosque visits.
func VisitsModule(store db.Store) api.Module {
	ctl := &visitsController{store: store}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.GET("/visits", api.ResolveEndpointWithAuth(ctl.list))
	})
}

// GET /api/visits?limit=
func (v *visitsController) list(c *gin.Context, userID string) (any, *api.Error) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return nil, &api.Error{Code: http.StatusBadRequest, Message: "invalid limit"}
		}
		limit = n
	}

	visits, err := v.store.ListVisits(c.Request.Context(), userID, limit)
	if err != nil {
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "could not list visits"}
	}
	return gin.H{"visits": visits}, nil
}
