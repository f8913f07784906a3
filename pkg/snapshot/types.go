package snapshot

import "time"

// PlayerRecord is one American player on the current BSL roster.
// Raw attributes come from the league API and are overwritten every run;
// Hometown and College are enrichment attributes and follow the
// carry-forward rule in the merge engine.
type PlayerRecord struct {
	PlayerID        string    `json:"player_id"`
	Name            string    `json:"name"`
	Team            string    `json:"team"`
	TeamID          string    `json:"team_id,omitempty"`
	Position        string    `json:"position,omitempty"`
	Nationality     string    `json:"nationality"`
	NationalityFlag string    `json:"nationality_flag,omitempty"`
	Jersey          string    `json:"jersey,omitempty"`
	BirthDate       string    `json:"birth_date,omitempty"`
	HeightCM        int       `json:"height_cm,omitempty"`
	HeightFeet      int       `json:"height_feet,omitempty"`
	HeightInches    int       `json:"height_inches,omitempty"`
	Weight          string    `json:"weight,omitempty"`
	HeadshotURL     string    `json:"headshot_url,omitempty"`
	Hometown        *string   `json:"hometown"`
	College         *string   `json:"college,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Snapshot is one run's complete set of player records plus run metadata.
type Snapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	SourceRunID string         `json:"source_run_id"`
	League      string         `json:"league"`
	Season      string         `json:"season"`
	Players     []PlayerRecord `json:"players"`
}

// Index returns the players keyed by PlayerID. The caller must not rely on
// slice order being preserved through the map.
func (s *Snapshot) Index() map[string]PlayerRecord {
	idx := make(map[string]PlayerRecord, len(s.Players))
	for _, p := range s.Players {
		idx[p.PlayerID] = p
	}
	return idx
}
