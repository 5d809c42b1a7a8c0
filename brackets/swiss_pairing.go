package brackets

import (
	"errors"
	"sort"

	"github.com/Aibek0/bracket-engine/models"
)

var (
	// ErrRoundNotFinished is returned when match generation is requested
	// while the group's current round still has unresolved matches.
	ErrRoundNotFinished = errors.New("brackets: current swiss round is not finished")

	// ErrNoRoundsLeft is returned when every round of the group already has
	// its matches.
	ErrNoRoundsLeft = errors.New("brackets: all swiss rounds have been generated")

	// ErrPairingImpossible is the hard failure of the pairing search: the
	// bounded unification loop ran out without producing a pairing. Callers
	// must surface it, never skip the round.
	ErrPairingImpossible = errors.New("brackets: no valid swiss pairing exists")
)

const (
	defaultSwissRoundCount = 5

	// unificationLimit bounds the section-merge retry loop.
	unificationLimit = 100

	// searchBudget bounds the rematch-avoidance search per generation
	// call. The search space is combinatorial, so the cap is explicit
	// rather than left to stack exhaustion.
	searchBudget = 100000
)

// CreateSwissArgs describes a swiss stage to lay out. Seeding is the
// seed-ordered team list; teams are dealt into groups round-robin style.
type CreateSwissArgs struct {
	TournamentID int
	StageID      int
	Name         string
	Seeding      []models.BracketParticipant
	Settings     models.StageSettings
}

// CreateSwiss builds the initial swiss data set: all groups, every round
// pre-created empty, and the first round of matches paired by seed split
// (top half vs bottom half). Later rounds are filled in one at a time by
// GenerateMatchUps once the prior round resolves.
func CreateSwiss(args CreateSwissArgs) *models.BracketData {
	groupCount, roundCount := 1, defaultSwissRoundCount
	if args.Settings.Swiss != nil {
		if args.Settings.Swiss.GroupCount > 0 {
			groupCount = args.Settings.Swiss.GroupCount
		}
		if args.Settings.Swiss.RoundCount > 0 {
			roundCount = args.Settings.Swiss.RoundCount
		}
	}

	data := &models.BracketData{
		Stages: []models.Stage{{
			ID:           args.StageID,
			TournamentID: args.TournamentID,
			Name:         args.Name,
			Number:       1,
			Type:         models.BracketSwiss,
			Settings:     args.Settings,
		}},
		Participants: args.Seeding,
	}

	groupTeams := make([][]models.BracketParticipant, groupCount)
	for i, participant := range args.Seeding {
		groupTeams[i%groupCount] = append(groupTeams[i%groupCount], participant)
	}

	for groupIdx := 0; groupIdx < groupCount; groupIdx++ {
		data.Groups = append(data.Groups, models.Group{
			ID:      groupIdx,
			StageID: args.StageID,
			Number:  groupIdx + 1,
		})
		for number := 1; number <= roundCount; number++ {
			data.Rounds = append(data.Rounds, models.Round{
				ID:      groupIdx*roundCount + number - 1,
				StageID: args.StageID,
				GroupID: groupIdx,
				Number:  number,
			})
		}
	}

	for groupIdx, teams := range groupTeams {
		firstRoundID := groupIdx * roundCount
		for _, pairing := range seedSplitPairs(teams) {
			match := &models.Match{
				ID:        len(data.Matches),
				StageID:   args.StageID,
				GroupID:   groupIdx,
				RoundID:   firstRoundID,
				Number:    len(data.Matches) + 1,
				Opponent1: participantOpponent(pairing[0]),
				Opponent2: participantOpponent(pairing[1]),
			}
			data.Matches = append(data.Matches, match)
		}
	}

	return data
}

// seedSplitPairs pairs the top half of a seed-ordered list against the
// bottom half (1 vs n/2+1, 2 vs n/2+2, ...). An odd list gives the last
// team a bye, returned as a pair with a nil second entry.
func seedSplitPairs(teams []models.BracketParticipant) [][2]*models.BracketParticipant {
	var byeTeam *models.BracketParticipant
	if len(teams)%2 == 1 {
		byeTeam = &teams[len(teams)-1]
		teams = teams[:len(teams)-1]
	}

	half := len(teams) / 2
	pairs := make([][2]*models.BracketParticipant, 0, half+1)
	for i := 0; i < half; i++ {
		pairs = append(pairs, [2]*models.BracketParticipant{&teams[i], &teams[half+i]})
	}
	if byeTeam != nil {
		pairs = append(pairs, [2]*models.BracketParticipant{byeTeam, nil})
	}
	return pairs
}

func participantOpponent(p *models.BracketParticipant) *models.Opponent {
	if p == nil {
		return nil
	}
	id := p.ID
	return &models.Opponent{ID: &id}
}

type pairKey [2]int

func keyOf(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type poolTeam struct {
	id        int
	seed      int
	mapWins   int
	mapLosses int
}

// GenerateMatchUps pairs the group's next round once its current round is
// fully resolved: bye first, then score sections, then the bounded
// rematch-avoidance search with section unification on failure.
func (b *SwissBracket) GenerateMatchUps(groupID int) ([]models.InsertableMatch, error) {
	for _, match := range b.data.Matches {
		if match.GroupID == groupID && !match.IsBye() && !match.IsOver() {
			return nil, ErrRoundNotFinished
		}
	}

	round, err := b.nextEmptyRound(groupID)
	if err != nil {
		return nil, err
	}

	pool, err := b.pairingPool(groupID)
	if err != nil {
		return nil, err
	}

	history, priorByes := b.groupHistory(groupID)

	var byeTeam *poolTeam
	if len(pool)%2 == 1 {
		pool, byeTeam = assignBye(pool, priorByes)
	}

	pairs, err := pairPool(pool, history)
	if err != nil {
		return nil, err
	}

	matches := make([]models.InsertableMatch, 0, len(pairs)+1)
	for i, pair := range pairs {
		one, two := pair[0].id, pair[1].id
		matches = append(matches, models.InsertableMatch{
			StageID:     round.StageID,
			GroupID:     groupID,
			RoundID:     round.ID,
			Number:      i + 1,
			OpponentOne: &models.Opponent{ID: &one},
			OpponentTwo: &models.Opponent{ID: &two},
		})
	}
	if byeTeam != nil {
		id := byeTeam.id
		matches = append(matches, models.InsertableMatch{
			StageID:     round.StageID,
			GroupID:     groupID,
			RoundID:     round.ID,
			Number:      len(matches) + 1,
			OpponentOne: &models.Opponent{ID: &id},
			OpponentTwo: nil,
		})
	}

	return matches, nil
}

// nextEmptyRound finds the lowest-numbered round of the group with no
// matches yet.
func (b *SwissBracket) nextEmptyRound(groupID int) (*models.Round, error) {
	populated := make(map[int]bool)
	for _, match := range b.data.Matches {
		populated[match.RoundID] = true
	}

	var candidate *models.Round
	for i := range b.data.Rounds {
		round := &b.data.Rounds[i]
		if round.GroupID != groupID || populated[round.ID] {
			continue
		}
		if candidate == nil || round.Number < candidate.Number {
			candidate = round
		}
	}

	if candidate == nil {
		return nil, ErrNoRoundsLeft
	}
	return candidate, nil
}

// pairingPool returns the group's active teams in standings order, best
// first. Dropped-out teams are exempt from pairing.
func (b *SwissBracket) pairingPool(groupID int) ([]poolTeam, error) {
	standings, err := b.Standings()
	if err != nil {
		return nil, err
	}

	var pool []poolTeam
	for _, standing := range standings {
		if standing.GroupID == nil || *standing.GroupID != groupID || standing.Team.DroppedOut {
			continue
		}
		pool = append(pool, poolTeam{
			id:        standing.Team.ID,
			seed:      standing.Team.Seed,
			mapWins:   standing.Stats.MapWins,
			mapLosses: standing.Stats.MapLosses,
		})
	}
	return pool, nil
}

// groupHistory collects every pairing played so far in the group and the
// set of teams that already received a bye.
func (b *SwissBracket) groupHistory(groupID int) (map[pairKey]bool, map[int]bool) {
	history := make(map[pairKey]bool)
	priorByes := make(map[int]bool)

	for _, match := range b.data.Matches {
		if match.GroupID != groupID {
			continue
		}
		if match.IsBye() {
			survivor := match.Opponent1
			if survivor == nil {
				survivor = match.Opponent2
			}
			if survivor != nil && survivor.ID != nil {
				priorByes[*survivor.ID] = true
			}
			continue
		}
		if match.Opponent1.ID != nil && match.Opponent2.ID != nil {
			history[keyOf(*match.Opponent1.ID, *match.Opponent2.ID)] = true
		}
	}

	return history, priorByes
}

// assignBye removes the lowest-standing team without a prior bye from the
// pool. When everyone already had one, the lowest-standing team sits out
// again.
func assignBye(pool []poolTeam, priorByes map[int]bool) ([]poolTeam, *poolTeam) {
	for i := len(pool) - 1; i >= 0; i-- {
		if !priorByes[pool[i].id] {
			bye := pool[i]
			return append(pool[:i:i], pool[i+1:]...), &bye
		}
	}
	bye := pool[len(pool)-1]
	return pool[:len(pool)-1], &bye
}

type pairingSection struct {
	teams []poolTeam
}

// zeroMapLosses sections are paired by seed fold; everyone in them has won
// every map so far, so rematches are impossible by construction in round
// one and acceptable structure later.
func (s pairingSection) zeroMapLosses() bool {
	for _, team := range s.teams {
		if team.mapLosses > 0 {
			return false
		}
	}
	return true
}

// pairPool sections the pool by map-win count and pairs each section,
// merging sections and retrying while pairing fails. The loop is bounded;
// once everything has collapsed into a single section a final pass allows
// rematches before giving up.
func pairPool(pool []poolTeam, history map[pairKey]bool) ([][2]poolTeam, error) {
	if len(pool) == 0 {
		return nil, nil
	}

	sections := sectionize(pool)
	for iteration := 0; iteration < unificationLimit; iteration++ {
		evenOutSections(sections)

		budget := searchBudget
		pairs, failedIdx := pairSections(sections, history, &budget)
		if failedIdx < 0 {
			return pairs, nil
		}

		if len(sections) == 1 {
			// genuinely no rematch-free pairing: fall back to seed fold
			// with rematches allowed rather than dropping the round
			return foldPairs(sections[0].teams), nil
		}

		sections = mergeSections(sections, failedIdx)
	}

	return nil, ErrPairingImpossible
}

// sectionize splits the standings-ordered pool into runs of identical
// map-win counts, so the top section holds the teams still unbeaten on
// maps.
func sectionize(pool []poolTeam) []*pairingSection {
	var sections []*pairingSection
	for _, team := range pool {
		if len(sections) == 0 ||
			sections[len(sections)-1].teams[0].mapWins != team.mapWins {
			sections = append(sections, &pairingSection{})
		}
		last := sections[len(sections)-1]
		last.teams = append(last.teams, team)
	}
	return sections
}

// evenOutSections walks front to back borrowing the top team of the next
// section into each odd-length one. The total pool is even, so the last
// section always comes out even.
func evenOutSections(sections []*pairingSection) {
	for i := 0; i < len(sections)-1; i++ {
		if len(sections[i].teams)%2 == 0 {
			continue
		}
		moved := sections[i+1].teams[0]
		sections[i].teams = append(sections[i].teams, moved)
		sections[i+1].teams = sections[i+1].teams[1:]
	}
}

// pairSections pairs every section, returning the index of the first
// section with no valid pairing, or -1 on success.
func pairSections(sections []*pairingSection, history map[pairKey]bool, budget *int) ([][2]poolTeam, int) {
	var pairs [][2]poolTeam
	for i, section := range sections {
		if len(section.teams) == 0 {
			continue
		}

		if section.zeroMapLosses() {
			pairs = append(pairs, foldPairs(section.teams)...)
			continue
		}

		sectionPairs, ok := searchPairs(section.teams, history, budget)
		if !ok {
			return nil, i
		}
		pairs = append(pairs, sectionPairs...)
	}
	return pairs, -1
}

// foldPairs sorts by seed and pairs the list end to end: best vs worst,
// second vs second worst. Assumes an even list.
func foldPairs(teams []poolTeam) [][2]poolTeam {
	ordered := make([]poolTeam, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].seed < ordered[j].seed })

	pairs := make([][2]poolTeam, 0, len(ordered)/2)
	for i := 0; i < len(ordered)/2; i++ {
		pairs = append(pairs, [2]poolTeam{ordered[i], ordered[len(ordered)-1-i]})
	}
	return pairs
}

// searchPairs backtracks over partner choices for the first unpaired team
// until it finds a full rematch-free assignment. Every explored branch
// costs budget; an exhausted budget reads as failure.
func searchPairs(teams []poolTeam, history map[pairKey]bool, budget *int) ([][2]poolTeam, bool) {
	if len(teams) == 0 {
		return nil, true
	}
	if *budget <= 0 {
		return nil, false
	}

	first := teams[0]
	for i := 1; i < len(teams); i++ {
		*budget--
		if *budget <= 0 {
			return nil, false
		}
		if history[keyOf(first.id, teams[i].id)] {
			continue
		}

		rest := make([]poolTeam, 0, len(teams)-2)
		rest = append(rest, teams[1:i]...)
		rest = append(rest, teams[i+1:]...)

		sub, ok := searchPairs(rest, history, budget)
		if ok {
			return append([][2]poolTeam{{first, teams[i]}}, sub...), true
		}
	}

	return nil, false
}

// mergeSections folds the failing section into its neighbor: forward into
// the next section, or backward when the failure is at the tail.
func mergeSections(sections []*pairingSection, failedIdx int) []*pairingSection {
	if failedIdx == len(sections)-1 {
		failedIdx--
	}

	merged := &pairingSection{
		teams: append(append([]poolTeam{}, sections[failedIdx].teams...), sections[failedIdx+1].teams...),
	}

	result := make([]*pairingSection, 0, len(sections)-1)
	result = append(result, sections[:failedIdx]...)
	result = append(result, merged)
	result = append(result, sections[failedIdx+2:]...)
	return result
}
