// Package merge combines the current run's raw roster with hometown
// enrichment and the previous canonical snapshot into the new canonical
// snapshot. The raw fetch is roster truth: it alone decides which players
// exist this run.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benashkar/turkish-bsl/pkg/hometown"
	"github.com/benashkar/turkish-bsl/pkg/snapshot"
)

var (
	// ErrEmptyRoster aborts the run when the raw fetch produced no players.
	// Publishing an empty snapshot would erase the dashboard's data over a
	// transient upstream glitch, so an empty roster is treated as a data
	// anomaly, not a valid state.
	ErrEmptyRoster = errors.New("raw snapshot has an empty roster")

	// ErrMalformedRaw aborts the run when the raw snapshot is missing or
	// lacks run identity.
	ErrMalformedRaw = errors.New("raw snapshot is malformed")
)

// Options tunes a merge.
type Options struct {
	// Now stamps GeneratedAt and LastUpdated. Zero means time.Now().
	Now time.Time

	// GracePeriod retains players that dropped off the roster as long as
	// their last sighting is within the window. Zero disables retention
	// and departed players are dropped immediately.
	GracePeriod time.Duration
}

// Merge builds the new canonical snapshot. For every player on the current
// roster the hometown precedence is: successful resolution, then the
// previous canonical value, then null. A successful resolution with an
// empty field never clears a previously known value.
func Merge(raw *snapshot.Snapshot, enrichment hometown.Result, previous *snapshot.Snapshot, opts Options) (*snapshot.Snapshot, error) {
	if raw == nil || raw.SourceRunID == "" {
		return nil, ErrMalformedRaw
	}
	if len(raw.Players) == 0 {
		return nil, fmt.Errorf("%w (run %s)", ErrEmptyRoster, raw.SourceRunID)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var prevIdx map[string]snapshot.PlayerRecord
	if previous != nil {
		prevIdx = previous.Index()
	}

	// Collapse duplicate ids with last occurrence winning, so the output
	// holds the uniqueness invariant even if the raw snapshot was produced
	// by something other than our own source client.
	players := make([]snapshot.PlayerRecord, 0, len(raw.Players))
	index := make(map[string]int, len(raw.Players))

	for _, p := range raw.Players {
		record := p
		record.LastUpdated = now

		prev, seen := prevIdx[p.PlayerID]
		res := enrichment.Resolutions[p.PlayerID]

		record.Hometown = pick(res.OK(), res.Hometown, seen, prev.Hometown)
		record.College = pick(res.OK(), res.College, seen, prev.College)

		if at, dup := index[p.PlayerID]; dup {
			players[at] = record
			continue
		}
		index[p.PlayerID] = len(players)
		players = append(players, record)
	}

	// Departed players are dropped unless still inside the grace window.
	if opts.GracePeriod > 0 && previous != nil {
		for _, prev := range previous.Players {
			if _, onRoster := index[prev.PlayerID]; onRoster {
				continue
			}
			if now.Sub(prev.LastUpdated) <= opts.GracePeriod {
				index[prev.PlayerID] = len(players)
				players = append(players, prev)
			}
		}
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].Name != players[j].Name {
			return players[i].Name < players[j].Name
		}
		return players[i].PlayerID < players[j].PlayerID
	})

	return &snapshot.Snapshot{
		GeneratedAt: now,
		SourceRunID: raw.SourceRunID,
		League:      raw.League,
		Season:      raw.Season,
		Players:     players,
	}, nil
}

// pick applies the per-field precedence rule.
func pick(resolved bool, value string, seen bool, carried *string) *string {
	if resolved && value != "" {
		return &value
	}
	if seen && carried != nil {
		v := *carried
		return &v
	}
	return nil
}

// Coverage reports the share of players in a merged snapshot that carry a
// hometown, for the run summary.
func Coverage(snap *snapshot.Snapshot) float64 {
	if snap == nil || len(snap.Players) == 0 {
		return 0
	}
	var n int
	for _, p := range snap.Players {
		if p.Hometown != nil {
			n++
		}
	}
	return float64(n) / float64(len(snap.Players))
}
