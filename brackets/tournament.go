package brackets

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/skeleton"
)

var (
	ErrMatchNotFound   = errors.New("brackets: match not found in any bracket")
	ErrBracketNotFound = errors.New("brackets: bracket index out of range")
)

const (
	defaultTeamsPerGroup = 4

	// regularCheckInWindow is how long before the start time the
	// tournament-wide check-in opens.
	regularCheckInWindow = time.Hour
)

// Args assembles a Tournament from one persistence snapshot. StageData is
// indexed by bracket progression position; a nil entry means the stage has
// not started and gets a preview bracket instead. Now is the caller's
// clock, injected so check-in windows stay testable.
type Args struct {
	Tournament *models.Tournament
	StageData  []*models.BracketData
	Provider   skeleton.Provider
	Logger     *slog.Logger
	Now        time.Time
}

// Tournament orchestrates the configured bracket progression: it decides
// each stage's participant set, applies anti-replay seeding, and answers
// the cross-bracket queries (match lookup, reopen safety, final
// standings). It is built per request from a snapshot and holds no state
// beyond it.
type Tournament struct {
	tournament *models.Tournament
	provider   skeleton.Provider
	logger     *slog.Logger
	now        time.Time
	brackets   []Bracket
}

func NewTournament(args Args) (*Tournament, error) {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}
	if args.Provider == nil {
		args.Provider = skeleton.NewGenerator()
	}
	if args.Now.IsZero() {
		args.Now = time.Now()
	}

	t := &Tournament{
		tournament: args.Tournament,
		provider:   args.Provider,
		logger:     args.Logger,
		now:        args.Now,
	}
	if err := t.initBrackets(args.StageData); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tournament) Brackets() []Bracket { return t.brackets }

func (t *Tournament) BracketByIdx(idx int) (Bracket, error) {
	if idx < 0 || idx >= len(t.brackets) {
		return nil, fmt.Errorf("%w: %d", ErrBracketNotFound, idx)
	}
	return t.brackets[idx], nil
}

// TeamByID returns the team as a standings summary with its derived seed.
func (t *Tournament) TeamByID(id int) (models.StandingTeam, error) {
	for idx, team := range t.tournament.Teams {
		if team.ID == id {
			return standingTeam(team, idx+1), nil
		}
	}
	return models.StandingTeam{}, fmt.Errorf("%w: id %d", ErrTeamNotFound, id)
}

func (t *Tournament) standingTeams() []models.StandingTeam {
	teams := make([]models.StandingTeam, 0, len(t.tournament.Teams))
	for idx, team := range t.tournament.Teams {
		teams = append(teams, standingTeam(team, idx+1))
	}
	return teams
}

func standingTeam(team models.Team, seed int) models.StandingTeam {
	summary := models.StandingTeam{
		ID:         team.ID,
		Name:       team.Name,
		Seed:       seed,
		DroppedOut: team.DroppedOut,
	}
	if team.LogoURL != nil {
		summary.LogoURL = *team.LogoURL
	}
	return summary
}

func (t *Tournament) initBrackets(stageData []*models.BracketData) error {
	progression := t.tournament.Settings.BracketProgression
	t.brackets = make([]Bracket, 0, len(progression))

	for idx, entry := range progression {
		var data *models.BracketData
		if idx < len(stageData) {
			data = stageData[idx]
		}

		var bracket Bracket
		var err error
		if data != nil {
			bracket, err = t.startedBracket(idx, entry, data)
		} else {
			bracket, err = t.previewBracket(idx, entry)
		}
		if err != nil {
			return fmt.Errorf("bracket %d (%s): %w", idx, entry.Name, err)
		}

		t.brackets = append(t.brackets, bracket)
	}

	return nil
}

func (t *Tournament) startedBracket(idx int, entry models.BracketProgressionEntry, data *models.BracketData) (Bracket, error) {
	createdAt := t.tournament.CreatedAt
	if len(data.Stages) > 0 {
		createdAt = data.Stages[0].CreatedAt
	}

	return New(CreateArgs{
		ID:        idx,
		Name:      entry.Name,
		Type:      entry.Type,
		Preview:   false,
		Data:      data,
		Sources:   entry.Sources,
		CreatedAt: createdAt,
		Teams:     t.standingTeams(),
	})
}

func (t *Tournament) previewBracket(idx int, entry models.BracketProgressionEntry) (Bracket, error) {
	participants, relevantFinished, err := t.resolveParticipants(idx, entry)
	if err != nil {
		return nil, err
	}

	checkedIn, pending := t.divideByCheckIn(idx, participants)

	if entry.Type.IsElimination() && len(entry.Sources) == 1 {
		checkedIn = t.adjustSeedingForReplays(entry, checkedIn)
	}

	data, err := t.generatePreviewData(idx, entry, checkedIn)
	if err != nil {
		return nil, err
	}

	pendingIDs := make([]int, 0, len(pending))
	for _, team := range pending {
		pendingIDs = append(pendingIDs, team.ID)
	}

	return New(CreateArgs{
		ID:                  idx,
		Name:                entry.Name,
		Type:                entry.Type,
		Preview:             true,
		Data:                data,
		Sources:             entry.Sources,
		CanBeStarted:        relevantFinished && len(checkedIn) >= 2 && !t.tournament.IsFinalized,
		TeamsPendingCheckIn: pendingIDs,
		CreatedAt:           t.tournament.CreatedAt,
		Teams:               t.standingTeams(),
	})
}

// resolveParticipants determines who plays in a preview bracket: the full
// seed-ordered team list for a sourceless stage, otherwise the
// concatenated results of every upstream source. The second return is
// false while any contributing upstream match is unresolved.
func (t *Tournament) resolveParticipants(idx int, entry models.BracketProgressionEntry) ([]models.StandingTeam, bool, error) {
	if len(entry.Sources) == 0 {
		return t.standingTeams(), true, nil
	}

	finished := true
	var participants []models.StandingTeam
	for _, source := range entry.Sources {
		upstream, err := t.BracketByIdx(source.BracketIdx)
		if err != nil {
			return nil, false, err
		}
		result, err := upstream.Source(source.Placements)
		if err != nil {
			return nil, false, err
		}
		finished = finished && result.RelevantMatchesFinished
		participants = append(participants, result.Teams...)
	}

	return participants, finished, nil
}

// divideByCheckIn splits a bracket's participants into checked-in and
// pending. The first bracket uses the tournament-wide check-in window:
// before it opens nobody is expected to have checked in yet. Later
// brackets require an explicit per-bracket check-in.
func (t *Tournament) divideByCheckIn(idx int, participants []models.StandingTeam) (checkedIn, pending []models.StandingTeam) {
	checkInOpen := !t.now.Before(t.tournament.StartDate.Add(-regularCheckInWindow))
	if idx == 0 && !checkInOpen {
		return participants, nil
	}

	for _, participant := range participants {
		if t.teamCheckedIn(participant.ID, idx) {
			checkedIn = append(checkedIn, participant)
		} else {
			pending = append(pending, participant)
		}
	}
	return checkedIn, pending
}

func (t *Tournament) teamCheckedIn(teamID, bracketIdx int) bool {
	for _, team := range t.tournament.Teams {
		if team.ID != teamID {
			continue
		}
		for _, checkIn := range team.CheckIns {
			if checkIn.BracketIdx == bracketIdx {
				return true
			}
		}
	}
	return false
}

// generatePreviewData runs the skeleton provider (or the swiss generator)
// with the stage settings derived from the tournament configuration.
func (t *Tournament) generatePreviewData(idx int, entry models.BracketProgressionEntry, teams []models.StandingTeam) (*models.BracketData, error) {
	stageID := -(idx + 1) // previews get synthetic negative stage ids

	if entry.Type == models.BracketSwiss {
		seeding := make([]models.BracketParticipant, 0, len(teams))
		for _, team := range teams {
			seeding = append(seeding, models.BracketParticipant{ID: team.ID, Name: team.Name})
		}
		return CreateSwiss(CreateSwissArgs{
			TournamentID: t.tournament.ID,
			StageID:      stageID,
			Name:         entry.Name,
			Seeding:      seeding,
			Settings:     t.stageSettings(entry.Type, len(teams)),
		}), nil
	}

	if len(teams) < 2 {
		// not enough teams for a real skeleton yet; an empty preview keeps
		// the progression navigable
		return &models.BracketData{
			Stages: []models.Stage{{
				ID:           stageID,
				TournamentID: t.tournament.ID,
				Name:         entry.Name,
				Number:       1,
				Type:         entry.Type,
				Settings:     t.stageSettings(entry.Type, len(teams)),
			}},
		}, nil
	}

	seeding := teamSeeds(teams)
	if entry.Type.IsElimination() {
		seeding = skeleton.FillWithByesUntilPowerOfTwo(seeding)
	}

	return t.provider.Generate(skeleton.GenerateParams{
		TournamentID: t.tournament.ID,
		StageID:      stageID,
		Name:         entry.Name,
		Type:         entry.Type,
		Seeding:      seeding,
		Settings:     t.stageSettings(entry.Type, len(teams)),
	})
}

func teamSeeds(teams []models.StandingTeam) []*skeleton.Seed {
	seeding := make([]*skeleton.Seed, 0, len(teams))
	for _, team := range teams {
		seeding = append(seeding, &skeleton.Seed{ID: team.ID, Name: team.Name})
	}
	return seeding
}

// stageSettings derives the per-type skeleton settings from the
// tournament configuration.
func (t *Tournament) stageSettings(bracketType models.BracketType, teamCount int) models.StageSettings {
	switch bracketType {
	case models.BracketSingleElimination:
		enabled := teamCount >= 4
		if t.tournament.Settings.ThirdPlaceMatch != nil && !*t.tournament.Settings.ThirdPlaceMatch {
			enabled = false
		}
		return models.StageSettings{ConsolationFinal: &enabled}

	case models.BracketDoubleElimination:
		// the reset match is always modeled; standings collapse it when
		// the winners side takes the first grand final
		return models.StageSettings{GrandFinal: "double"}

	case models.BracketRoundRobin:
		teamsPerGroup := t.tournament.Settings.TeamsPerGroup
		if teamsPerGroup <= 0 {
			teamsPerGroup = defaultTeamsPerGroup
		}
		groupCount := int(math.Ceil(float64(teamCount) / float64(teamsPerGroup)))
		if groupCount < 1 {
			groupCount = 1
		}
		return models.StageSettings{GroupCount: groupCount}

	case models.BracketSwiss:
		return models.StageSettings{Swiss: t.tournament.Settings.Swiss}
	}

	return models.StageSettings{}
}

// MatchIDToBracketIdx locates the bracket a match belongs to. Preview
// brackets are skipped: their synthetic match ids are not addressable.
func (t *Tournament) MatchIDToBracketIdx(matchID int) (int, error) {
	for idx, bracket := range t.brackets {
		if bracket.Preview() {
			continue
		}
		for _, match := range bracket.Data().Matches {
			if match.ID == matchID {
				return idx, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
}

// FollowingMatches returns the matches whose outcome can depend on the
// given one: same bracket, a later group or a later round of the same
// group, sharing at least one participant. For swiss the participant
// filter is dropped, since any later generated round was paired off this
// match's result.
func (t *Tournament) FollowingMatches(matchID int) ([]*models.Match, error) {
	idx, err := t.MatchIDToBracketIdx(matchID)
	if err != nil {
		return nil, err
	}
	bracket := t.brackets[idx]

	var match *models.Match
	for _, m := range bracket.Data().Matches {
		if m.ID == matchID {
			match = m
			break
		}
	}

	isSwiss := bracket.Type() == models.BracketSwiss
	var following []*models.Match
	for _, m := range bracket.Data().Matches {
		later := m.GroupID > match.GroupID ||
			(m.GroupID == match.GroupID && m.RoundID > match.RoundID)
		if !later {
			continue
		}
		if isSwiss || sharesParticipant(match, m) {
			following = append(following, m)
		}
	}

	return following, nil
}

func sharesParticipant(a, b *models.Match) bool {
	for _, one := range []*models.Opponent{a.Opponent1, a.Opponent2} {
		if one == nil || one.ID == nil {
			continue
		}
		for _, two := range []*models.Opponent{b.Opponent1, b.Opponent2} {
			if two != nil && two.ID != nil && *two.ID == *one.ID {
				return true
			}
		}
	}
	return false
}

// MatchCanBeReopened reports whether undoing a match result is safe: not
// after finalization, never for byes, not once the result has fed an
// already-started downstream bracket, and not once a following match in
// the same bracket has progressed.
func (t *Tournament) MatchCanBeReopened(matchID int) (bool, error) {
	if t.tournament.IsFinalized {
		return false, nil
	}

	idx, err := t.MatchIDToBracketIdx(matchID)
	if err != nil {
		return false, err
	}
	bracket := t.brackets[idx]

	var match *models.Match
	for _, m := range bracket.Data().Matches {
		if m.ID == matchID {
			match = m
			break
		}
	}
	if match.IsBye() {
		return false, nil
	}

	if t.affectsStartedBracket(idx, match) {
		return false, nil
	}

	following, err := t.FollowingMatches(matchID)
	if err != nil {
		return false, err
	}

	isSwiss := bracket.Type() == models.BracketSwiss
	for _, m := range following {
		if isSwiss {
			// swiss rounds are generated off prior results, so any later
			// match at all pins this one
			return false, nil
		}
		if hasScore(m.Opponent1) || hasScore(m.Opponent2) {
			return false, nil
		}
	}

	return true, nil
}

// affectsStartedBracket reports whether a downstream bracket sourcing this
// one has already started with participants this match touches. Round
// robin and swiss standings depend on every match, so any started
// downstream bracket blocks.
func (t *Tournament) affectsStartedBracket(bracketIdx int, match *models.Match) bool {
	alwaysBlocks := !t.brackets[bracketIdx].Type().IsElimination()

	for idx, downstream := range t.brackets {
		if idx == bracketIdx || downstream.Preview() {
			continue
		}

		sourced := false
		for _, source := range downstream.Sources() {
			if source.BracketIdx == bracketIdx {
				sourced = true
				break
			}
		}
		if !sourced {
			continue
		}

		if alwaysBlocks {
			return true
		}
		for _, participant := range downstream.Data().Participants {
			id := participant.ID
			if sharesParticipant(match, &models.Match{Opponent1: &models.Opponent{ID: &id}}) {
				return true
			}
		}
	}

	return false
}

func hasScore(opponent *models.Opponent) bool {
	return opponent != nil && opponent.Score != nil && *opponent.Score > 0
}

// EveryBracketOver reports whether the whole progression has played out.
func (t *Tournament) EveryBracketOver() bool {
	for _, bracket := range t.brackets {
		if bracket.Preview() || !bracket.EveryMatchOver() {
			return false
		}
	}
	return len(t.brackets) > 0
}

// FinalStandings merges per-bracket standings into one tournament-wide
// list: the last bracket ranks highest, and teams already placed by a
// later bracket keep that placement over anything an earlier bracket
// says.
func (t *Tournament) FinalStandings() ([]models.Standing, error) {
	type row struct {
		standing   models.Standing
		bracketIdx int
	}

	seen := make(map[int]bool)
	var rows []row
	for idx := len(t.brackets) - 1; idx >= 0; idx-- {
		bracket := t.brackets[idx]
		if bracket.Preview() {
			continue
		}

		standings, err := bracket.Standings()
		if err != nil {
			if errors.Is(err, ErrGroupsNotFinished) {
				continue
			}
			return nil, err
		}

		sort.SliceStable(standings, func(i, j int) bool {
			return standings[i].Placement < standings[j].Placement
		})
		for _, standing := range standings {
			if seen[standing.Team.ID] {
				continue
			}
			seen[standing.Team.ID] = true
			rows = append(rows, row{standing: standing, bracketIdx: idx})
		}
	}

	placements := collapsePlacements(len(rows), func(prev, cur int) bool {
		return rows[prev].bracketIdx == rows[cur].bracketIdx &&
			rows[prev].standing.Placement == rows[cur].standing.Placement
	})

	merged := make([]models.Standing, 0, len(rows))
	for i, r := range rows {
		standing := r.standing
		standing.Placement = placements[i]
		merged = append(merged, standing)
	}
	return merged, nil
}
