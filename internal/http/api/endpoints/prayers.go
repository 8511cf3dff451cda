package endpoints

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/http/api"
	"github.com/minaret-app/minaret/internal/prayer"
)

type prayersController struct {
	provider prayer.Provider
	method   prayer.CalculationMethod
}

// PrayersModule serves the derived prayer window and the Ramadan countdown.
func PrayersModule(provider prayer.Provider, method prayer.CalculationMethod) api.Module {
	ctl := &prayersController{provider: provider, method: method}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.GET("/prayers/timings", api.ResolveEndpoint(ctl.timings))
		c.Group.GET("/prayers/window", api.ResolveEndpoint(ctl.window))
		c.Group.GET("/prayers/fasting", api.ResolveEndpoint(ctl.fasting))
	})
}

// GET /api/prayers/timings?lat=&lng=
func (p *prayersController) timings(c *gin.Context) (any, *api.Error) {
	table, _, apiErr := p.fetch(c)
	if apiErr != nil {
		return nil, apiErr
	}
	return table, nil
}

// GET /api/prayers/window?lat=&lng=
func (p *prayersController) window(c *gin.Context) (any, *api.Error) {
	table, now, apiErr := p.fetch(c)
	if apiErr != nil {
		return nil, apiErr
	}
	w, err := prayer.ComputeWindow(table, now)
	if err != nil {
		return nil, unavailable(err)
	}
	return w, nil
}

// GET /api/prayers/fasting?lat=&lng=
func (p *prayersController) fasting(c *gin.Context) (any, *api.Error) {
	table, now, apiErr := p.fetch(c)
	if apiErr != nil {
		return nil, apiErr
	}
	f, err := prayer.ComputeFasting(table, now)
	if err != nil {
		return nil, unavailable(err)
	}
	return f, nil
}

// fetch resolves the table for the location's civil day and the query time
// on the location's wall clock.
func (p *prayersController) fetch(c *gin.Context) (prayer.Table, time.Time, *api.Error) {
	coord, apiErr := coordinateQuery(c)
	if apiErr != nil {
		return prayer.Table{}, time.Time{}, apiErr
	}
	table, now, err := prayer.FetchLocal(c.Request.Context(), p.provider, coord, p.method, time.Now())
	if err != nil {
		return prayer.Table{}, time.Time{}, unavailable(err)
	}
	return table, now, nil
}

func unavailable(err error) *api.Error {
	if errors.Is(err, prayer.ErrDataUnavailable) {
		return &api.Error{Code: http.StatusServiceUnavailable, Message: "prayer timings unavailable"}
	}
	return &api.Error{Code: http.StatusInternalServerError, Message: err.Error()}
}
