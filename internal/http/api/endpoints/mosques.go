package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/directory"
	"github.com/minaret-app/minaret/internal/geo"
	"github.com/minaret-app/minaret/internal/http/api"
	"github.com/minaret-app/minaret/internal/http/api/packets"
	"github.com/minaret-app/minaret/internal/model"
)

type mosquesController struct {
	directory *directory.Directory
}

// MosquesModule answers proximity queries and the qibla bearing.
func MosquesModule(dir *directory.Directory) api.Module {
	ctl := &mosquesController{directory: dir}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.GET("/mosques/nearby", api.ResolveEndpoint(ctl.nearby))
		c.Group.GET("/qibla", api.ResolveEndpoint(ctl.qibla))
	})
}

// GET /api/mosques/nearby?lat=&lng=
func (m *mosquesController) nearby(c *gin.Context) (any, *api.Error) {
	coord, apiErr := coordinateQuery(c)
	if apiErr != nil {
		return nil, apiErr
	}
	mosques := m.directory.Nearby(coord, directory.NearbyRadiusMeters)
	return packets.NearbyResponse{Mosques: mosques}, nil
}

// GET /api/qibla?lat=&lng=
func (m *mosquesController) qibla(c *gin.Context) (any, *api.Error) {
	coord, apiErr := coordinateQuery(c)
	if apiErr != nil {
		return nil, apiErr
	}
	return packets.QiblaResponse{
		BearingDegrees: geo.QiblaBearingDegrees(coord.Latitude, coord.Longitude),
		DistanceKm:     geo.DistanceToKaabaKm(coord.Latitude, coord.Longitude),
	}, nil
}

func coordinateQuery(c *gin.Context) (model.Coordinate, *api.Error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return model.Coordinate{}, &api.Error{Code: http.StatusBadRequest, Message: "invalid lat"}
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		return model.Coordinate{}, &api.Error{Code: http.StatusBadRequest, Message: "invalid lng"}
	}
	return model.Coordinate{Latitude: lat, Longitude: lng}, nil
}
