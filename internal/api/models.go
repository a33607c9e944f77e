// internal/api/models.go
package api

// registerLocationRequest is the body of POST /api/v1/locations. Latitude and
// longitude are pointers so a missing field is distinguishable from 0. Either
// both coordinates or a city name must be present; the handler resolves a city
// through the geocoder.
type registerLocationRequest struct {
	FID       int64    `json:"fid" validate:"required,gt=0"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	City      string   `json:"city"`
	Label     string   `json:"label"`
}

// queueMorningRequest is the body of POST /api/v1/queue/morning.
type queueMorningRequest struct {
	FID       int64    `json:"fid" validate:"required,gt=0"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Label     string   `json:"label"`
}

// webhookEvent is the decoded shape of a mini-app lifecycle event after schema
// validation has passed.
type webhookEvent struct {
	Event               string `json:"event"`
	FID                 int64  `json:"fid"`
	NotificationDetails *struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	} `json:"notificationDetails"`
}
