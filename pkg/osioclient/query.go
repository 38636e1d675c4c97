package osioclient

// MessageQuery filters the stored messages endpoints.
// Empty fields are left out of the query. Coordinates are pointers as 0 is a valid
// coordinate, use Float64 to set them.
type MessageQuery struct {
	UserID    string   `url:"user-id,omitempty"`
	Radius    int64    `url:"radius,omitempty"`
	Postcode  string   `url:"postcode,omitempty"`
	Tags      string   `url:"tags,omitempty"`
	StartDate string   `url:"start-date,omitempty"` // ISO8601, eg 2016-01-31T12:00:00Z
	EndDate   string   `url:"end-date,omitempty"`
	Zip       string   `url:"zip,omitempty"`
	Lat       *float64 `url:"lat,omitempty"`
	Lon       *float64 `url:"lon,omitempty"`
	Elevation *float64 `url:"elevation,omitempty"`
	Dur       float64  `url:"dur,omitempty"` // duration in seconds
}

// Float64 returns a pointer to v, for the coordinates of a MessageQuery
func Float64(v float64) *float64 {
	return &v
}

// Credentials for login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
