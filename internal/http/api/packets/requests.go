package packets

// StartTrackingRequest selects which position source feeds the session.
// "device" streams over MQTT from the native app; "browser" relies on the
// web client pushing samples to the ingest endpoint.
type StartTrackingRequest struct {
	Mode       string `json:"mode" binding:"required,oneof=device browser"`
	DeviceID   string `json:"device_id"`
	Permission string `json:"permission" binding:"omitempty,oneof=granted denied prompt"`
}

// PositionIngestRequest is one browser-reported fix, or a client-side
// geolocation failure when Error is set.
type PositionIngestRequest struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
	Error     string  `json:"error"`
}

// UpdatePreferencesRequest carries the opt-in flags; omitted fields keep
// their stored value.
type UpdatePreferencesRequest struct {
	AutoSilent      *bool `json:"auto_silent"`
	DetectionAlerts *bool `json:"detection_alerts"`
}
