package types

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the coordinate is the unset zero value.
func (l LatLng) IsZero() bool {
	return l.Lat == 0 && l.Lng == 0
}
