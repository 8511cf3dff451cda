package endpoints

import (
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"

	"github.com/minaret-app/minaret/internal/engine"
	"github.com/minaret-app/minaret/internal/http/api"
	"github.com/minaret-app/minaret/internal/http/api/packets"
	"github.com/minaret-app/minaret/internal/position"
)

type trackingController struct {
	manager *engine.Manager
	broker  mqtt.Client
}

// TrackingModule exposes the geofence session lifecycle and the browser
// position ingest.
func TrackingModule(manager *engine.Manager, broker mqtt.Client) api.Module {
	ctl := &trackingController{manager: manager, broker: broker}
	return api.ModuleFunc(func(c *api.Controller) {
		c.Group.POST("/track/start", api.ResolveEndpointWithAuth(ctl.startTracking))
		c.Group.POST("/track/stop", api.ResolveEndpointWithAuth(ctl.stopTracking))
		c.Group.GET("/track/status", api.ResolveEndpointWithAuth(ctl.trackingStatus))
		c.Group.POST("/track/position", api.ResolveEndpointWithAuth(ctl.ingestPosition))
	})
}

// POST /api/track/start
func (t *trackingController) startTracking(c *gin.Context, userID string) (any, *api.Error) {
	var req packets.StartTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	// the source is built inside Manager.Start so a repeated start reuses the
	// running session instead of re-subscribing the device topics
	var open func() (position.Source, func(), error)
	switch req.Mode {
	case "device":
		if req.DeviceID == "" {
			return nil, &api.Error{Code: http.StatusBadRequest, Message: "device_id is required for device mode"}
		}
		open = func() (position.Source, func(), error) {
			src, err := position.NewMQTTSource(t.broker, req.DeviceID)
			if err != nil {
				return nil, nil, err
			}
			return src, src.Close, nil
		}
	case "browser":
		open = func() (position.Source, func(), error) {
			src := position.NewIngestSource()
			if req.Permission != "" {
				src.SetPermission(position.Permission(req.Permission))
			}
			return src, nil, nil
		}
	}

	if err := t.manager.Start(c.Request.Context(), userID, open); err != nil {
		if err == engine.ErrPermissionDenied {
			return nil, &api.Error{Code: http.StatusForbidden, Message: "location permission denied"}
		}
		return nil, &api.Error{Code: http.StatusBadGateway, Message: "could not start tracking"}
	}
	return packets.TrackingResponse{State: t.manager.State(userID)}, nil
}

// POST /api/track/stop
func (t *trackingController) stopTracking(_ *gin.Context, userID string) (any, *api.Error) {
	t.manager.Stop(userID)
	return packets.StopResponse{Stopped: true}, nil
}

// GET /api/track/status
func (t *trackingController) trackingStatus(_ *gin.Context, userID string) (any, *api.Error) {
	return packets.TrackingResponse{State: t.manager.State(userID)}, nil
}

// POST /api/track/position
func (t *trackingController) ingestPosition(c *gin.Context, userID string) (any, *api.Error) {
	var req packets.PositionIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, &api.Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	source, ok := t.manager.Session(userID)
	if !ok {
		return nil, &api.Error{Code: http.StatusConflict, Message: "tracking is not active"}
	}
	ingest, ok := source.(*position.IngestSource)
	if !ok {
		return nil, &api.Error{Code: http.StatusConflict, Message: "session is not browser-fed"}
	}

	if req.Error != "" {
		ingest.PushError(position.ErrLocationUnavailable)
		return gin.H{"accepted": true}, nil
	}
	ingest.Push(position.Sample{
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		AccuracyMeters:  req.Accuracy,
		TimestampMillis: req.Timestamp,
	})
	return gin.H{"accepted": true}, nil
}
