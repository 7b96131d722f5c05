package seed

import (
	"fmt"
	"log"

	"ropacal-telemetry/internal/models"
)

// BinStore is the part of telemetry.Store the seeder needs
type BinStore interface {
	Len() int
	AddWithCoordinates(ownerID, wasteType, location string, lat, lng *float64) (models.BinTelemetryRecord, error)
}

type site struct {
	street    string
	latitude  float64
	longitude float64
}

// Downtown San Jose curbside locations
var sites = []site{
	{"325 S 1st St", 37.3329, -121.8866},
	{"200 E Santa Clara St", 37.3361, -121.8869},
	{"151 W Mission St", 37.3343, -121.8936},
	{"408 Almaden Blvd", 37.3313, -121.8917},
	{"180 Park Ave", 37.3351, -121.8894},
	{"72 N Almaden Ave", 37.3352, -121.8931},
	{"345 E Santa Clara St", 37.3357, -121.8826},
	{"99 S Market St", 37.3339, -121.8905},
	{"201 S 2nd St", 37.3326, -121.8863},
	{"150 S 1st St", 37.3344, -121.8877},
	{"88 W San Carlos St", 37.3307, -121.8901},
	{"250 S 3rd St", 37.3311, -121.8842},
	{"123 N 4th St", 37.3389, -121.8822},
	{"456 W San Fernando St", 37.3323, -121.8955},
	{"789 E Julian St", 37.3442, -121.8793},
	{"321 N 1st St", 37.3423, -121.8878},
	{"654 E St John St", 37.3473, -121.8786},
	{"147 S 4th St", 37.3341, -121.8828},
	{"258 W St James St", 37.3385, -121.8972},
	{"369 E San Salvador St", 37.3289, -121.8816},
}

var wasteTypes = []string{"General", "Recycling", "Organic"}

// SeedBins adds count demo bins for ownerID, cycling through the
// downtown sites. Skipped when the store already holds records.
func SeedBins(store BinStore, ownerID string, count int) (int, error) {
	if store.Len() > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return 0, nil
	}
	if count <= 0 {
		return 0, nil
	}

	log.Printf("🌱 Seeding %d bins...", count)

	for i := 0; i < count; i++ {
		s := sites[i%len(sites)]
		lat, lng := s.latitude, s.longitude
		location := fmt.Sprintf("%s, San Jose", s.street)
		if _, err := store.AddWithCoordinates(ownerID, wasteTypes[i%len(wasteTypes)], location, &lat, &lng); err != nil {
			return i, fmt.Errorf("failed to seed bin %d: %w", i+1, err)
		}
	}

	log.Printf("✓ Successfully seeded %d bins", count)
	return count, nil
}
