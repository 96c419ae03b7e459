package conversation

import (
	"strings"
	"time"
)

// limaFallback stands in for America/Lima when the host has no tzdata.
// Peru does not observe daylight saving time.
var limaFallback = time.FixedZone("PET", -5*60*60)

// ClinicLocation resolves the clinic timezone used to stamp appointment
// requests. Empty or unknown names resolve to Lima time.
func ClinicLocation(timezone string) *time.Location {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = defaultClinicTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return limaFallback
	}
	return loc
}
