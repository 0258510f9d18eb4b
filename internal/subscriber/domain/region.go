package domain

import "strings"

// Service regions bucket subscribers by the cardinal zone named in their
// street address, which is how field teams split their coverage areas.
const (
	RegionNorth   = "north"
	RegionSouth   = "south"
	RegionEast    = "east"
	RegionWest    = "west"
	RegionCentral = "central"
	RegionOther   = "other"
)

var regions = []string{RegionNorth, RegionSouth, RegionEast, RegionWest, RegionCentral}

// DeriveRegion classifies an address by the first zone keyword it contains.
// Addresses naming no zone fall into RegionOther.
func DeriveRegion(address string) string {
	address = strings.ToLower(address)
	for _, region := range regions {
		if strings.Contains(address, region) {
			return region
		}
	}
	return RegionOther
}

func ValidRegion(region string) bool {
	switch region {
	case RegionNorth, RegionSouth, RegionEast, RegionWest, RegionCentral, RegionOther:
		return true
	}
	return false
}
