package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/geocode"
	"github.com/minaret-app/minaret/internal/http/api"
)

type geocodeController struct {
	client *geocode.Client
}

// GeocodeModule lets a user resolve a typed location when GPS is
// unavailable. Not part of the detection state machine.
func GeocodeModule(client *geocode.Client) api.Module {
	ctl := &geocodeController{client: client}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.GET("/geocode", api.ResolveEndpoint(ctl.search))
	})
}

// GET /api/geocode?q=
func (g *geocodeController) search(c *gin.Context) (any, *api.Error) {
	query := c.Query("q")
	if query == "" {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: "q is required"}
	}
	places, err := g.client.Search(c.Request.Context(), query)
	if err != nil {
		return nil, &api.Error{Code: http.StatusBadGateway, Message: "geocoder unavailable"}
	}
	return gin.H{"places": places}, nil
}
