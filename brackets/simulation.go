package brackets

import (
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/Aibek0/bracket-engine/models"
)

// simulationRoundLimit bounds the forward simulation. A bracket deeper
// than this is abandoned, not an error: simulation only feeds UI
// predictions.
const simulationRoundLimit = 100

// SimulateOutcomes predicts the remainder of the bracket under "the
// better seed always wins": it returns a copy of the match list with
// every resolvable future slot filled in. A nil result without error
// means the simulation was abandoned.
func (b *SingleEliminationBracket) SimulateOutcomes(logger *slog.Logger) ([]*models.Match, error) {
	return simulateElimination(&b.baseBracket, false, logger)
}

func (b *DoubleEliminationBracket) SimulateOutcomes(logger *slog.Logger) ([]*models.Match, error) {
	return simulateElimination(&b.baseBracket, true, logger)
}

// feed is one structural dependency: the winner (or loser) of fromMatch
// occupies the next open slot of toMatch.
type feed struct {
	fromMatch int
	toMatch   int
	loser     bool
}

func simulateElimination(b *baseBracket, double bool, logger *slog.Logger) ([]*models.Match, error) {
	if logger == nil {
		logger = slog.Default()
	}

	matches := copyMatches(b.data.Matches)
	byID := make(map[int]*models.Match, len(matches))
	matchRound := make(map[int]int, len(matches))
	for _, match := range matches {
		byID[match.ID] = match
		matchRound[match.ID] = match.RoundID
	}

	feeds := eliminationFeeds(b.data, double)

	// order rounds by their structural dependencies rather than trusting
	// id order; a malformed stage surfaces as a cycle here
	g := graph.New(graph.IntHash, graph.Directed(), graph.Acyclic())
	for _, round := range b.data.Rounds {
		_ = g.AddVertex(round.ID)
	}
	for _, f := range feeds {
		from, to := matchRound[f.fromMatch], matchRound[f.toMatch]
		if from == to {
			continue
		}
		if err := g.AddEdge(from, to); err != nil &&
			!errors.Is(err, graph.ErrEdgeAlreadyExists) {
			logger.Warn("bracket simulation abandoned: round structure is cyclic",
				"stage", b.id, "from_round", from, "to_round", to)
			return nil, nil
		}
	}

	order, err := graph.TopologicalSort(g)
	if err != nil {
		logger.Warn("bracket simulation abandoned: no round ordering",
			"stage", b.id, "error", err)
		return nil, nil
	}
	if len(order) > simulationRoundLimit {
		logger.Warn("bracket simulation abandoned: too many rounds",
			"stage", b.id, "rounds", len(order))
		return nil, nil
	}

	feedsFrom := make(map[int][]feed)
	for _, f := range feeds {
		feedsFrom[f.fromMatch] = append(feedsFrom[f.fromMatch], f)
	}

	for _, roundID := range order {
		for _, match := range matchesOfRound(matches, roundID) {
			winnerID, loserID := b.predictOutcome(match)
			for _, f := range feedsFrom[match.ID] {
				id := winnerID
				if f.loser {
					id = loserID
				}
				if id != nil {
					fillNextSlot(byID[f.toMatch], *id)
				}
			}
		}
	}

	return matches, nil
}

// predictOutcome resolves a match: the recorded result when played, the
// survivor for a bye, otherwise the better seed of the known opponents.
func (b *baseBracket) predictOutcome(match *models.Match) (winnerID, loserID *int) {
	if match.IsOver() {
		return match.Winner().ID, match.Loser().ID
	}

	if match.IsBye() {
		survivor := match.Opponent1
		if survivor == nil {
			survivor = match.Opponent2
		}
		if survivor != nil && survivor.ID != nil {
			return survivor.ID, nil
		}
		return nil, nil
	}

	one, two := match.Opponent1.ID, match.Opponent2.ID
	switch {
	case one == nil && two == nil:
		return nil, nil
	case one == nil:
		return two, nil
	case two == nil:
		return one, nil
	}

	if b.seedOf(*one) <= b.seedOf(*two) {
		return one, two
	}
	return two, one
}

func (b *baseBracket) seedOf(teamID int) int {
	team, err := b.team(teamID)
	if err != nil || team.Seed == 0 {
		return math.MaxInt
	}
	return team.Seed
}

func fillNextSlot(match *models.Match, teamID int) {
	for _, slot := range []*models.Opponent{match.Opponent1, match.Opponent2} {
		if slot != nil && slot.ID == nil {
			id := teamID
			slot.ID = &id
			return
		}
	}
}

// eliminationFeeds derives every winner/loser progression edge from the
// stage's round layout.
func eliminationFeeds(data *models.BracketData, double bool) []feed {
	winners := roundsOfGroup(data, minGroupID(data))
	winnersMatches := make([][]*models.Match, len(winners))
	for i, round := range winners {
		winnersMatches[i] = matchesOfRound(data.Matches, round.ID)
	}

	var feeds []feed
	for r := 0; r < len(winners)-1; r++ {
		next := winnersMatches[r+1]
		for i, match := range winnersMatches[r] {
			feeds = append(feeds, feed{match.ID, next[i/2].ID, false})
		}
	}

	if !double {
		if len(data.Groups) > 1 && len(winners) >= 2 {
			consolation := matchesOfGroup(data, maxGroupID(data))
			if len(consolation) == 1 {
				for _, semi := range winnersMatches[len(winners)-2] {
					feeds = append(feeds, feed{semi.ID, consolation[0].ID, true})
				}
			}
		}
		return feeds
	}

	losers := roundsOfGroup(data, minGroupID(data)+1)
	losersMatches := make([][]*models.Match, len(losers))
	for i, round := range losers {
		losersMatches[i] = matchesOfRound(data.Matches, round.ID)
	}

	if len(losers) > 0 {
		for i, match := range winnersMatches[0] {
			feeds = append(feeds, feed{match.ID, losersMatches[0][i/2].ID, true})
		}
		// intake rounds take winners bracket losers in reverse order
		for k := 1; 2*k-1 < len(losers); k++ {
			intake := losersMatches[2*k-1]
			for i, match := range winnersMatches[k] {
				feeds = append(feeds, feed{match.ID, intake[len(intake)-1-i].ID, true})
			}
		}
		for r := 0; r < len(losers)-1; r++ {
			next := losersMatches[r+1]
			for i, match := range losersMatches[r] {
				target := next[i/2]
				if losers[r+1].Number%2 == 0 {
					target = next[i]
				}
				feeds = append(feeds, feed{match.ID, target.ID, false})
			}
		}
	}

	finals := matchesOfGroup(data, minGroupID(data)+2)
	if len(finals) > 0 && len(winners) > 0 {
		winnersFinal := winnersMatches[len(winners)-1][0]
		feeds = append(feeds, feed{winnersFinal.ID, finals[0].ID, false})

		if len(losers) > 0 {
			lastLosers := losersMatches[len(losers)-1]
			feeds = append(feeds, feed{lastLosers[len(lastLosers)-1].ID, finals[0].ID, false})
		} else {
			// two-team bracket: the lone winners match feeds both grand
			// final slots
			feeds = append(feeds, feed{winnersFinal.ID, finals[0].ID, true})
		}

		if len(finals) > 1 {
			feeds = append(feeds, feed{finals[0].ID, finals[1].ID, false})
			feeds = append(feeds, feed{finals[0].ID, finals[1].ID, true})
		}
	}

	return feeds
}

func copyMatches(matches []*models.Match) []*models.Match {
	copied := make([]*models.Match, 0, len(matches))
	for _, match := range matches {
		clone := *match
		clone.Opponent1 = copyOpponent(match.Opponent1)
		clone.Opponent2 = copyOpponent(match.Opponent2)
		copied = append(copied, &clone)
	}
	return copied
}

func copyOpponent(opponent *models.Opponent) *models.Opponent {
	if opponent == nil {
		return nil
	}
	clone := *opponent
	if opponent.ID != nil {
		id := *opponent.ID
		clone.ID = &id
	}
	return &clone
}

func roundsOfGroup(data *models.BracketData, groupID int) []models.Round {
	var rounds []models.Round
	for _, round := range data.Rounds {
		if round.GroupID == groupID {
			rounds = append(rounds, round)
		}
	}
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })
	return rounds
}

func matchesOfRound(matches []*models.Match, roundID int) []*models.Match {
	var result []*models.Match
	for _, match := range matches {
		if match.RoundID == roundID {
			result = append(result, match)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result
}

func matchesOfGroup(data *models.BracketData, groupID int) []*models.Match {
	var result []*models.Match
	for _, match := range data.Matches {
		if match.GroupID == groupID {
			result = append(result, match)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].RoundID != result[j].RoundID {
			return result[i].RoundID < result[j].RoundID
		}
		return result[i].Number < result[j].Number
	})
	return result
}
