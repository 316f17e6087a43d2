package models

// Location is one of the fixed meeting spots an invite can point at. The set
// is configuration, not user data, so it lives in code.
type Location string

const (
	LocationMACigarette Location = "MA cigarette"
	LocationBCigarette  Location = "B cigarette"
	Location78Cigarette Location = "78 cigarette"
	LocationFFCigarette Location = "FF cigarette"
	Location74Cigarette Location = "74 cigarette"
)

var allLocations = []Location{
	LocationMACigarette,
	LocationBCigarette,
	Location78Cigarette,
	LocationFFCigarette,
	Location74Cigarette,
}

func AllLocations() []Location {
	out := make([]Location, len(allLocations))
	copy(out, allLocations)
	return out
}

func (l Location) Valid() bool {
	for _, known := range allLocations {
		if l == known {
			return true
		}
	}
	return false
}
