package source

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/benashkar/turkish-bsl/pkg/snapshot"
)

// IsAmerican reports whether a nationality string identifies a US player.
func IsAmerican(nationality string) bool {
	switch strings.ToLower(strings.TrimSpace(nationality)) {
	case "united states", "usa", "american":
		return true
	}
	return false
}

// ParseHeight converts the API's height strings ("2.01 m" or "6 ft 7 in")
// to centimeters plus a feet/inches rendering. Returns zeros when the string
// cannot be parsed; height is cosmetic and never blocks a record.
func ParseHeight(s string) (cm, feet, inches int) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return 0, 0, 0
	}

	switch {
	case strings.Contains(lower, "ft"):
		parts := strings.Fields(strings.NewReplacer("ft", " ", "in", " ").Replace(lower))
		if len(parts) < 2 {
			return 0, 0, 0
		}
		ft, err1 := strconv.Atoi(parts[0])
		in, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, 0, 0
		}
		cm = int(float64(ft*12+in) * 2.54)
	case strings.Contains(lower, "m"):
		meters, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(lower, "m")), 64)
		if err != nil {
			return 0, 0, 0
		}
		cm = int(meters * 100)
	default:
		return 0, 0, 0
	}

	totalInches := float64(cm) / 2.54
	feet = int(totalInches / 12)
	inches = int(math.Round(math.Mod(totalInches, 12)))
	if inches == 12 {
		feet++
		inches = 0
	}
	return cm, feet, inches
}

func normalizePlayer(p apiPlayer, team apiTeam, now time.Time) snapshot.PlayerRecord {
	cm, feet, inches := ParseHeight(p.Height)

	birthDate := p.BirthDate
	if len(birthDate) > 10 {
		birthDate = birthDate[:10]
	}

	headshot := p.Thumb
	if headshot == "" {
		headshot = p.Cutout
	}

	return snapshot.PlayerRecord{
		PlayerID:        p.ID,
		Name:            p.Name,
		Team:            team.Name,
		TeamID:          team.ID,
		Position:        p.Position,
		Nationality:     p.Nationality,
		NationalityFlag: "\U0001F1FA\U0001F1F8",
		Jersey:          p.Number,
		BirthDate:       birthDate,
		HeightCM:        cm,
		HeightFeet:      feet,
		HeightInches:    inches,
		Weight:          p.Weight,
		HeadshotURL:     headshot,
		Hometown:        nil,
		College:         nil,
		LastUpdated:     now,
	}
}
