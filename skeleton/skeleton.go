package skeleton

import (
	"errors"
	"fmt"

	"github.com/Aibek0/bracket-engine/models"
)

// Seed is one entry of the seed-ordered input list. A nil *Seed marks a
// bye slot; elimination input must be pre-padded to a power of two.
type Seed struct {
	ID   int
	Name string
}

type GenerateParams struct {
	TournamentID int
	StageID      int
	Name         string
	Type         models.BracketType
	Seeding      []*Seed
	Settings     models.StageSettings
}

// Provider produces the normalized group/round/match skeleton for a stage.
// Swiss stages are excluded: their matches are generated round by round by
// the swiss generator instead of up front.
type Provider interface {
	Generate(params GenerateParams) (*models.BracketData, error)
}

var (
	ErrNotEnoughSeeds    = errors.New("skeleton: at least 2 seeds required")
	ErrSeedCountNotPow2  = errors.New("skeleton: elimination seeding must be padded to a power of two")
	ErrSwissUnsupported  = errors.New("skeleton: swiss stages are generated incrementally, not from a skeleton")
	ErrUnknownStageType  = errors.New("skeleton: unknown stage type")
	ErrTooManyByes       = errors.New("skeleton: more than half of the seeds are byes")
	ErrGroupCountInvalid = errors.New("skeleton: group count must be positive")
)

type generator struct{}

// NewGenerator returns the built-in Provider implementation.
func NewGenerator() Provider {
	return generator{}
}

func (g generator) Generate(params GenerateParams) (*models.BracketData, error) {
	switch params.Type {
	case models.BracketSingleElimination:
		return generateSingleElimination(params)
	case models.BracketDoubleElimination:
		return generateDoubleElimination(params)
	case models.BracketRoundRobin:
		return generateRoundRobin(params)
	case models.BracketSwiss:
		return nil, ErrSwissUnsupported
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStageType, params.Type)
	}
}

// FillWithByesUntilPowerOfTwo pads a seed list with nil entries so that
// elimination brackets always have a full slot grid.
func FillWithByesUntilPowerOfTwo(seeding []*Seed) []*Seed {
	size := 2
	for size < len(seeding) {
		size *= 2
	}

	padded := make([]*Seed, size)
	copy(padded, seeding)
	return padded
}

// seedPlacementOrder returns the slot order for the given bracket size so
// that seeds 1 and 2 can only meet in the final, 1-4 in the semifinals and
// so on. Classic doubling expansion: [1 2] -> [1 4 2 3] -> ...
func seedPlacementOrder(size int) []int {
	order := []int{1, 2}
	for len(order) < size {
		doubled := make([]int, 0, len(order)*2)
		mirror := len(order)*2 + 1
		for _, seed := range order {
			doubled = append(doubled, seed, mirror-seed)
		}
		order = doubled
	}
	return order
}

// placeSeeds reorders the padded seed list into bracket slot order. Byes
// end up against the strongest seeds because they pad the tail of the list.
func placeSeeds(seeding []*Seed) []*Seed {
	order := seedPlacementOrder(len(seeding))
	slots := make([]*Seed, len(seeding))
	for slot, seedNumber := range order {
		slots[slot] = seeding[seedNumber-1]
	}
	return slots
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func countRealSeeds(seeding []*Seed) int {
	count := 0
	for _, s := range seeding {
		if s != nil {
			count++
		}
	}
	return count
}

// builder accumulates skeleton rows with dense ids starting from zero,
// matching the ids the persistence layer assigns on first insert.
type builder struct {
	stageID      int
	tournamentID int
	data         *models.BracketData
}

func newBuilder(params GenerateParams) *builder {
	data := &models.BracketData{
		Stages: []models.Stage{{
			ID:           params.StageID,
			TournamentID: params.TournamentID,
			Name:         params.Name,
			Number:       1,
			Type:         params.Type,
			Settings:     params.Settings,
		}},
	}

	b := &builder{stageID: params.StageID, tournamentID: params.TournamentID, data: data}
	for _, seed := range params.Seeding {
		if seed == nil {
			continue
		}
		data.Participants = append(data.Participants, models.BracketParticipant{
			ID:   seed.ID,
			Name: seed.Name,
		})
	}
	return b
}

func (b *builder) addGroup(number int) int {
	id := len(b.data.Groups)
	b.data.Groups = append(b.data.Groups, models.Group{
		ID:      id,
		StageID: b.stageID,
		Number:  number,
	})
	return id
}

func (b *builder) addRound(groupID, number int) int {
	id := len(b.data.Rounds)
	b.data.Rounds = append(b.data.Rounds, models.Round{
		ID:      id,
		StageID: b.stageID,
		GroupID: groupID,
		Number:  number,
	})
	return id
}

func (b *builder) addMatch(groupID, roundID, number int, one, two *models.Opponent) *models.Match {
	match := &models.Match{
		ID:        len(b.data.Matches),
		StageID:   b.stageID,
		GroupID:   groupID,
		RoundID:   roundID,
		Number:    number,
		Opponent1: one,
		Opponent2: two,
	}
	b.data.Matches = append(b.data.Matches, match)
	return match
}

func knownOpponent(seed *Seed) *models.Opponent {
	if seed == nil {
		return nil
	}
	id := seed.ID
	return &models.Opponent{ID: &id}
}

// pendingOpponent is a slot that waits for an earlier match's outcome.
func pendingOpponent() *models.Opponent {
	return &models.Opponent{}
}
