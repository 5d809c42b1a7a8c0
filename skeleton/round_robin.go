package skeleton

import "github.com/Aibek0/bracket-engine/models"

func generateRoundRobin(params GenerateParams) (*models.BracketData, error) {
	seeds := make([]*Seed, 0, len(params.Seeding))
	for _, seed := range params.Seeding {
		if seed != nil {
			seeds = append(seeds, seed)
		}
	}
	if len(seeds) < 2 {
		return nil, ErrNotEnoughSeeds
	}

	groupCount := params.Settings.GroupCount
	if groupCount == 0 {
		groupCount = 1
	}
	if groupCount < 0 || groupCount > len(seeds) {
		return nil, ErrGroupCountInvalid
	}

	b := newBuilder(params)
	for _, groupSeeds := range snakeSeedGroups(seeds, groupCount) {
		groupID := b.addGroup(len(b.data.Groups) + 1)
		buildRoundRobinGroup(b, groupID, groupSeeds)
	}

	return b.data, nil
}

// snakeSeedGroups deals seeds into groups in serpentine order so that the
// summed seed strength of every group stays balanced (seed-optimized
// ordering: 1..g left to right, then g+1..2g right to left, and so on).
func snakeSeedGroups(seeds []*Seed, groupCount int) [][]*Seed {
	groups := make([][]*Seed, groupCount)

	for i, seed := range seeds {
		pass := i / groupCount
		offset := i % groupCount
		idx := offset
		if pass%2 == 1 {
			idx = groupCount - 1 - offset
		}
		groups[idx] = append(groups[idx], seed)
	}

	return groups
}

// buildRoundRobinGroup creates the group's full match grid with the circle
// method. An odd team count gets a rotating bye slot; bye rows are written
// with a nil second opponent.
func buildRoundRobinGroup(b *builder, groupID int, seeds []*Seed) {
	entries := seeds
	if len(entries)%2 != 0 {
		entries = append(append([]*Seed{}, entries...), nil)
	}

	n := len(entries)
	for round := 0; round < n-1; round++ {
		roundID := b.addRound(groupID, round+1)

		number := 1
		for matchI := 0; matchI < n/2; matchI++ {
			one := entries[circleIndex(matchI, n, round)]
			two := entries[circleIndex(n-1-matchI, n, round)]

			if one == nil && two == nil {
				continue
			}
			if one == nil {
				one, two = two, one
			}

			b.addMatch(groupID, roundID, number, knownOpponent(one), knownOpponent(two))
			number++
		}
	}
}

// circleIndex rotates an entry index for the given round per the classic
// circle method: index 0 stays fixed, everything else shifts by one each
// round. https://en.wikipedia.org/wiki/Round-robin_tournament#Circle_method
func circleIndex(index, length, round int) int {
	if index == 0 {
		return 0
	}
	index -= 1
	index -= round
	index += length - 1
	index %= length - 1
	return index + 1
}
