package briefing

// Centroid computes the unweighted centroid of a polygon ring: the arithmetic
// mean of longitude and of latitude across all vertices. This is deliberately
// not area-weighted; forecast zones are small enough that the vertex mean is
// an acceptable coordinate proxy for a weather lookup. Returns ok=false for
// an empty ring.
func Centroid(ring [][2]float64) (lat, lon float64, ok bool) {
	if len(ring) == 0 {
		return 0, 0, false
	}

	var totalLon, totalLat float64
	for _, vertex := range ring {
		totalLon += vertex[0]
		totalLat += vertex[1]
	}

	n := float64(len(ring))
	return totalLat / n, totalLon / n, true
}
