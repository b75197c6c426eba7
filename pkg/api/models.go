package api

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Origin      LatLngJSON `json:"origin"`
	Destination LatLngJSON `json:"destination"`

	// SkipTurnPenalties leaves junction penalties out of duration_seconds.
	SkipTurnPenalties bool `json:"skip_turn_penalties,omitempty"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	DistanceMeters  float64        `json:"distance_meters"`
	DurationSeconds float64        `json:"duration_seconds"`
	Geometry        []LatLngJSON   `json:"geometry"`
	Segments        []SegmentJSON  `json:"segments"`
	Waypoints       []WaypointJSON `json:"waypoints"`
}

// SegmentJSON represents one road edge of the route.
type SegmentJSON struct {
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	Geometry        []LatLngJSON `json:"geometry"`
}

// WaypointJSON is a request endpoint resolved onto the road network.
type WaypointJSON struct {
	Location LatLngJSON `json:"location"`
	Snapped  LatLngJSON `json:"snapped"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes     int `json:"num_nodes"`
	NumEdges     int `json:"num_edges"`
	NumShortcuts int `json:"num_shortcuts"`
	CoreSize     int `json:"core_size"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
