package brackets

import (
	"fmt"
	"sort"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/skeleton"
)

// PreparedMapsResolver re-slots pre-authored per-round map lists onto the
// bracket that actually materialized. Anything malformed degrades to nil
// ("nothing usable") rather than failing: the caller falls back to fresh
// map generation.
type PreparedMapsResolver struct {
	prepared    map[int]*models.PreparedMaps
	progression []models.BracketProgressionEntry
	provider    skeleton.Provider
}

func NewPreparedMapsResolver(prepared map[int]*models.PreparedMaps, progression []models.BracketProgressionEntry, provider skeleton.Provider) *PreparedMapsResolver {
	if provider == nil {
		provider = skeleton.NewGenerator()
	}
	return &PreparedMapsResolver{
		prepared:    prepared,
		progression: progression,
		provider:    provider,
	}
}

// ResolvePreparedForTheBracket returns the prepared maps for the bracket
// itself, or those of a sibling bracket with the same stage type and the
// same upstream brackets, or nil.
func (r *PreparedMapsResolver) ResolvePreparedForTheBracket(bracketIdx int) *models.PreparedMaps {
	if prepared, ok := r.prepared[bracketIdx]; ok && prepared != nil {
		return prepared
	}
	if bracketIdx < 0 || bracketIdx >= len(r.progression) {
		return nil
	}

	entry := r.progression[bracketIdx]
	for idx, sibling := range r.progression {
		if idx == bracketIdx || sibling.Type != entry.Type || !sameSourceBrackets(sibling.Sources, entry.Sources) {
			continue
		}
		if prepared, ok := r.prepared[idx]; ok && prepared != nil {
			return prepared
		}
	}

	return nil
}

func sameSourceBrackets(a, b []models.BracketSource) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].BracketIdx != b[i].BracketIdx {
			return false
		}
	}
	return true
}

// TrimArgs describes the elimination bracket that actually materialized.
type TrimArgs struct {
	Prepared  *models.PreparedMaps
	Type      models.BracketType
	TeamCount int
	Name      string
	Settings  models.StageSettings
}

// TrimPreparedEliminationMaps adapts maps prepared for a larger team-count
// bucket: the real skeleton for the actual count is regenerated and each
// group keeps only its last N prepared rounds, remapped onto the real
// round ids in order. Prepared sets already in the actual count's bucket
// come back unmodified.
func (r *PreparedMapsResolver) TrimPreparedEliminationMaps(args TrimArgs) *models.PreparedMaps {
	prepared := args.Prepared
	if prepared == nil || prepared.EliminationTeamCount == nil || args.TeamCount < 2 {
		return nil
	}
	if *prepared.EliminationTeamCount < args.TeamCount {
		return nil
	}
	if eliminationTeamCountBucket(*prepared.EliminationTeamCount) == eliminationTeamCountBucket(args.TeamCount) {
		return prepared
	}

	data, err := r.actualSkeleton(args)
	if err != nil {
		return nil
	}

	bucket := eliminationTeamCountBucket(args.TeamCount)
	trimmed := &models.PreparedMaps{
		AuthorID:             prepared.AuthorID,
		CreatedAt:            prepared.CreatedAt,
		EliminationTeamCount: &bucket,
	}

	for _, group := range data.Groups {
		actualRounds := roundsOfGroup(data, group.ID)

		groupMaps := make([]models.PreparedRoundMaps, 0, len(actualRounds))
		for _, maps := range prepared.Maps {
			if maps.GroupID == group.ID {
				groupMaps = append(groupMaps, maps)
			}
		}
		sort.SliceStable(groupMaps, func(i, j int) bool { return groupMaps[i].RoundID < groupMaps[j].RoundID })

		// earliest prepared rounds are the ones a smaller bracket never
		// plays, so the tail survives
		if len(groupMaps) > len(actualRounds) {
			groupMaps = groupMaps[len(groupMaps)-len(actualRounds):]
		}

		for i, maps := range groupMaps {
			maps.RoundID = actualRounds[i].ID
			trimmed.Maps = append(trimmed.Maps, maps)
		}
	}

	return trimmed
}

func (r *PreparedMapsResolver) actualSkeleton(args TrimArgs) (*models.BracketData, error) {
	seeding := make([]*skeleton.Seed, 0, args.TeamCount)
	for i := 0; i < args.TeamCount; i++ {
		seeding = append(seeding, &skeleton.Seed{ID: i + 1, Name: fmt.Sprintf("Seed %d", i+1)})
	}

	return r.provider.Generate(skeleton.GenerateParams{
		Name:     args.Name,
		Type:     args.Type,
		Seeding:  skeleton.FillWithByesUntilPowerOfTwo(seeding),
		Settings: args.Settings,
	})
}

// EliminationTeamCountBucket maps a team count to the canonical bucket
// maps are prepared for: 2, 4, 8, 16, 32, 64, 128.
func EliminationTeamCountBucket(teamCount int) int {
	return eliminationTeamCountBucket(teamCount)
}

func eliminationTeamCountBucket(teamCount int) int {
	bucket := 2
	for bucket < teamCount {
		bucket *= 2
	}
	return bucket
}
