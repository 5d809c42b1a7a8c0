package brackets

import (
	"errors"
	"fmt"

	"github.com/Aibek0/bracket-engine/models"
)

// ErrMatchNotOver is returned when propagation is requested for a match
// without a recorded winner.
var ErrMatchNotOver = errors.New("brackets: match has no recorded winner")

// PropagateResult pushes a finished match's winner into the slots of the
// matches it feeds. The bracket's own data is mutated; the modified
// matches are returned for persistence.
func (b *SingleEliminationBracket) PropagateResult(matchID int) ([]*models.Match, error) {
	return propagateResult(&b.baseBracket, false, matchID)
}

// PropagateResult additionally drops the loser into the losers bracket
// (or the bracket reset match).
func (b *DoubleEliminationBracket) PropagateResult(matchID int) ([]*models.Match, error) {
	return propagateResult(&b.baseBracket, true, matchID)
}

// RetractResult removes a still-finished match's winner and loser from
// the slots they were propagated into, ahead of the result being cleared.
func (b *SingleEliminationBracket) RetractResult(matchID int) ([]*models.Match, error) {
	return retractResult(&b.baseBracket, false, matchID)
}

func (b *DoubleEliminationBracket) RetractResult(matchID int) ([]*models.Match, error) {
	return retractResult(&b.baseBracket, true, matchID)
}

func propagateResult(b *baseBracket, double bool, matchID int) ([]*models.Match, error) {
	match, err := matchByID(b.data, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsOver() {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotOver, matchID)
	}

	// a winners side grand final win collapses the bracket reset match;
	// nothing downstream gets fed
	if double && match.GroupID == minGroupID(b.data)+2 && match.Winner() == match.Opponent1 {
		return nil, nil
	}

	winnerID, loserID := match.Winner().ID, match.Loser().ID

	byID := make(map[int]*models.Match, len(b.data.Matches))
	for _, m := range b.data.Matches {
		byID[m.ID] = m
	}

	var modified []*models.Match
	for _, f := range eliminationFeeds(b.data, double) {
		if f.fromMatch != matchID {
			continue
		}

		id := winnerID
		if f.loser {
			id = loserID
		}
		if id == nil {
			if f.loser {
				return nil, fmt.Errorf("%w: match %d", ErrLoserMissing, matchID)
			}
			continue
		}

		target := byID[f.toMatch]
		if slotContains(target, *id) {
			continue
		}
		fillNextSlot(target, *id)
		modified = append(modified, target)
	}

	return modified, nil
}

func retractResult(b *baseBracket, double bool, matchID int) ([]*models.Match, error) {
	match, err := matchByID(b.data, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsOver() {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotOver, matchID)
	}

	winnerID, loserID := match.Winner().ID, match.Loser().ID

	byID := make(map[int]*models.Match, len(b.data.Matches))
	for _, m := range b.data.Matches {
		byID[m.ID] = m
	}

	var modified []*models.Match
	for _, f := range eliminationFeeds(b.data, double) {
		if f.fromMatch != matchID {
			continue
		}

		id := winnerID
		if f.loser {
			id = loserID
		}
		if id == nil {
			continue
		}

		if clearSlot(byID[f.toMatch], *id) {
			modified = append(modified, byID[f.toMatch])
		}
	}

	return modified, nil
}

func matchByID(data *models.BracketData, matchID int) (*models.Match, error) {
	for _, match := range data.Matches {
		if match.ID == matchID {
			return match, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
}

func slotContains(match *models.Match, teamID int) bool {
	for _, slot := range []*models.Opponent{match.Opponent1, match.Opponent2} {
		if slot != nil && slot.ID != nil && *slot.ID == teamID {
			return true
		}
	}
	return false
}

func clearSlot(match *models.Match, teamID int) bool {
	for _, slot := range []*models.Opponent{match.Opponent1, match.Opponent2} {
		if slot != nil && slot.ID != nil && *slot.ID == teamID {
			slot.ID = nil
			slot.Score = nil
			slot.Result = ""
			return true
		}
	}
	return false
}
