package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/http/api"
	"github.com/minaret-app/minaret/internal/http/api/packets"
	redisclient "github.com/minaret-app/minaret/internal/redis"
)

type preferencesController struct {
	prefs   *redisclient.PreferenceStore
	streaks *redisclient.StreakCounter
}

// PreferencesModule reads and writes the detection opt-in flags.
func PreferencesModule(prefs *redisclient.PreferenceStore, streaks *redisclient.StreakCounter) api.Module {
	ctl := &preferencesController{prefs: prefs, streaks: streaks}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.GET("/preferences", api.ResolveEndpointWithAuth(ctl.get))
		c.Group.PUT("/preferences", api.ResolveEndpointWithAuth(ctl.update))
	})
}

// GET /api/preferences
func (p *preferencesController) get(c *gin.Context, userID string) (any, *api.Error) {
	return packets.PreferencesResponse{
		Preferences: p.prefs.Get(c.Request.Context(), userID),
		StreakDays:  p.streaks.Current(c.Request.Context(), userID),
	}, nil
}

// PUT /api/preferences
func (p *preferencesController) update(c *gin.Context, userID string) (any, *api.Error) {
	var req packets.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	current := p.prefs.Get(c.Request.Context(), userID)
	if req.AutoSilent != nil {
		current.AutoSilent = *req.AutoSilent
	}
	if req.DetectionAlerts != nil {
		current.DetectionAlerts = *req.DetectionAlerts
	}
	if err := p.prefs.Put(c.Request.Context(), userID, current); err != nil {
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "could not save preferences"}
	}
	return packets.PreferencesResponse{
		Preferences: current,
		StreakDays:  p.streaks.Current(c.Request.Context(), userID),
	}, nil
}
