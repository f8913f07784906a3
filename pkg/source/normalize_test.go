package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsAmerican(t *testing.T) {
	tests := []struct {
		nationality string
		want        bool
	}{
		{"United States", true},
		{"USA", true},
		{"American", true},
		{"  united states  ", true},
		{"Turkey", false},
		{"Serbia", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAmerican(tt.nationality), "nationality %q", tt.nationality)
	}
}

func TestParseHeight(t *testing.T) {
	tests := []struct {
		in     string
		cm     int
		feet   int
		inches int
	}{
		{"2.01 m", 201, 6, 7},
		{"1.85 m", 185, 6, 1},
		{"6 ft 7 in", 200, 6, 7},
		{"7 ft 0 in", 213, 7, 0},
		{"", 0, 0, 0},
		{"tall", 0, 0, 0},
		{"ft in", 0, 0, 0},
	}

	for _, tt := range tests {
		cm, feet, inches := ParseHeight(tt.in)
		assert.Equal(t, tt.cm, cm, "cm for %q", tt.in)
		assert.Equal(t, tt.feet, feet, "feet for %q", tt.in)
		assert.Equal(t, tt.inches, inches, "inches for %q", tt.in)
	}
}

func TestNormalizePlayerHeadshotFallback(t *testing.T) {
	now := time.Now().UTC()
	team := apiTeam{ID: "t1", Name: "Fenerbahce"}

	withThumb := normalizePlayer(apiPlayer{ID: "p1", Thumb: "thumb.jpg", Cutout: "cutout.png"}, team, now)
	assert.Equal(t, "thumb.jpg", withThumb.HeadshotURL)

	cutoutOnly := normalizePlayer(apiPlayer{ID: "p2", Cutout: "cutout.png"}, team, now)
	assert.Equal(t, "cutout.png", cutoutOnly.HeadshotURL)
}

func TestNormalizePlayerTruncatesBirthDate(t *testing.T) {
	now := time.Now().UTC()
	p := normalizePlayer(apiPlayer{ID: "p1", BirthDate: "1999-03-14T00:00:00"}, apiTeam{}, now)
	assert.Equal(t, "1999-03-14", p.BirthDate)
	assert.Equal(t, now, p.LastUpdated)
}
