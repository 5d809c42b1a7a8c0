package skeleton

import (
	"math/bits"

	"github.com/Aibek0/bracket-engine/models"
)

func generateSingleElimination(params GenerateParams) (*models.BracketData, error) {
	slots, err := eliminationSlots(params.Seeding)
	if err != nil {
		return nil, err
	}

	b := newBuilder(params)
	winnersGroup := b.addGroup(1)
	rounds := buildWinnersBracket(b, winnersGroup, slots)

	wantConsolation := params.Settings.ConsolationFinal != nil && *params.Settings.ConsolationFinal
	if wantConsolation && len(rounds) >= 2 {
		consolationGroup := b.addGroup(2)
		roundID := b.addRound(consolationGroup, 1)
		b.addMatch(consolationGroup, roundID, 1, pendingOpponent(), pendingOpponent())
	}

	return b.data, nil
}

func generateDoubleElimination(params GenerateParams) (*models.BracketData, error) {
	slots, err := eliminationSlots(params.Seeding)
	if err != nil {
		return nil, err
	}

	b := newBuilder(params)
	winnersGroup := b.addGroup(1)
	winnersRounds := buildWinnersBracket(b, winnersGroup, slots)

	losersGroup := b.addGroup(2)
	if len(winnersRounds) >= 2 {
		buildLosersBracket(b, losersGroup, winnersRounds)
	}

	grandFinalsGroup := b.addGroup(3)
	grandFinalRounds := 1
	if params.Settings.GrandFinal == "double" {
		grandFinalRounds = 2
	}
	for number := 1; number <= grandFinalRounds; number++ {
		roundID := b.addRound(grandFinalsGroup, number)
		b.addMatch(grandFinalsGroup, roundID, 1, pendingOpponent(), pendingOpponent())
	}

	return b.data, nil
}

func eliminationSlots(seeding []*Seed) ([]*Seed, error) {
	n := len(seeding)
	if n < 2 {
		return nil, ErrNotEnoughSeeds
	}
	if !isPowerOfTwo(n) {
		return nil, ErrSeedCountNotPow2
	}

	real := countRealSeeds(seeding)
	if real < 2 {
		return nil, ErrNotEnoughSeeds
	}
	if n-real > n/2 {
		return nil, ErrTooManyByes
	}

	return placeSeeds(seeding), nil
}

// buildWinnersBracket lays out a full elimination tree for the given slot
// grid and returns its matches grouped by round. Byes are written as rows
// with a nil opponent and their winners advance immediately.
func buildWinnersBracket(b *builder, groupID int, slots []*Seed) [][]*models.Match {
	roundCount := bits.Len(uint(len(slots))) - 1
	rounds := make([][]*models.Match, 0, roundCount)

	roundID := b.addRound(groupID, 1)
	current := make([]*models.Match, 0, len(slots)/2)
	for i := 0; i < len(slots); i += 2 {
		match := b.addMatch(groupID, roundID, i/2+1, knownOpponent(slots[i]), knownOpponent(slots[i+1]))
		current = append(current, match)
	}
	rounds = append(rounds, current)

	for number := 2; number <= roundCount; number++ {
		roundID = b.addRound(groupID, number)
		next := make([]*models.Match, 0, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			match := b.addMatch(groupID, roundID, i/2+1,
				winnerSlot(current[i]), winnerSlot(current[i+1]))
			next = append(next, match)
		}
		rounds = append(rounds, next)
		current = next
	}

	return rounds
}

// winnerSlot derives the opponent slot fed by the given match's winner.
// Bye matches resolve immediately: the sole real opponent advances, and a
// double bye advances nothing.
func winnerSlot(match *models.Match) *models.Opponent {
	if !match.IsBye() {
		return pendingOpponent()
	}

	survivor := match.Opponent1
	if survivor == nil {
		survivor = match.Opponent2
	}
	if survivor == nil {
		return nil
	}
	if survivor.ID != nil {
		id := *survivor.ID
		return &models.Opponent{ID: &id}
	}
	return pendingOpponent()
}

// loserSlot derives the opponent slot fed by the given match's loser. A
// bye produces no loser at all.
func loserSlot(match *models.Match) *models.Opponent {
	if match.IsBye() {
		return nil
	}
	return pendingOpponent()
}

// buildLosersBracket lays out the losers side of a double elimination
// bracket. With W winners rounds there are 2*(W-1) losers rounds: odd
// rounds pair up survivors, even rounds take in the next wave of winners
// bracket losers.
func buildLosersBracket(b *builder, groupID int, winnersRounds [][]*models.Match) {
	roundCount := 2 * (len(winnersRounds) - 1)

	roundID := b.addRound(groupID, 1)
	feed := winnersRounds[0]
	current := make([]*models.Match, 0, len(feed)/2)
	for i := 0; i < len(feed); i += 2 {
		match := b.addMatch(groupID, roundID, i/2+1, loserSlot(feed[i]), loserSlot(feed[i+1]))
		current = append(current, match)
	}

	for number := 2; number <= roundCount; number++ {
		roundID = b.addRound(groupID, number)
		next := make([]*models.Match, 0, len(current))

		if number%2 == 0 {
			// intake round: survivors meet the losers dropping from the
			// winners bracket, paired in reverse to push rematches apart
			droppingFrom := winnersRounds[number/2]
			for i, match := range current {
				dropped := droppingFrom[len(droppingFrom)-1-i]
				next = append(next, b.addMatch(groupID, roundID, i+1,
					winnerSlot(match), loserSlot(dropped)))
			}
		} else {
			for i := 0; i < len(current); i += 2 {
				next = append(next, b.addMatch(groupID, roundID, i/2+1,
					winnerSlot(current[i]), winnerSlot(current[i+1])))
			}
		}

		current = next
	}
}
