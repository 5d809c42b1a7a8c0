package handlers

import (
	"net/http"

	"github.com/Aibek0/bracket-engine/models"
	"github.com/Aibek0/bracket-engine/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

// List handles GET /tournaments/{tournamentID}/brackets
func (h *BracketHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	views, err := h.bracketService.GetBrackets(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"brackets": views}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Standings handles GET /tournaments/{tournamentID}/brackets/{bracketIdx}/standings
func (h *BracketHandler) Standings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracketIdx, err := urlParamInt(r, "bracketIdx")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.bracketService.GetStandings(r.Context(), tournamentID, bracketIdx)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FinalStandings handles GET /tournaments/{tournamentID}/standings
func (h *BracketHandler) FinalStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.bracketService.GetFinalStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Start handles POST /tournaments/{tournamentID}/brackets/{bracketIdx}/start
func (h *BracketHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracketIdx, err := urlParamInt(r, "bracketIdx")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	data, err := h.bracketService.StartBracket(r.Context(), actor, tournamentID, bracketIdx)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": data}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GenerateSwissRound handles POST /tournaments/{tournamentID}/brackets/{bracketIdx}/swiss-rounds
func (h *BracketHandler) GenerateSwissRound(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracketIdx, err := urlParamInt(r, "bracketIdx")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		GroupID int `json:"group_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.GenerateSwissRound(r.Context(), actor, tournamentID, bracketIdx, input.GroupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportMatchResult handles POST /tournaments/{tournamentID}/matches/{matchID}/result
func (h *BracketHandler) ReportMatchResult(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.MatchResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.MatchID = matchID

	if err := h.bracketService.ReportMatchResult(r.Context(), actor, tournamentID, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReopenMatch handles POST /tournaments/{tournamentID}/matches/{matchID}/reopen
func (h *BracketHandler) ReopenMatch(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.bracketService.ReopenMatch(r.Context(), actor, tournamentID, matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MatchCanBeReopened handles GET /tournaments/{tournamentID}/matches/{matchID}/can-reopen
func (h *BracketHandler) MatchCanBeReopened(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID, err := urlParamInt(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	canReopen, err := h.bracketService.MatchCanBeReopened(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"can_be_reopened": canReopen}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Simulate handles GET /tournaments/{tournamentID}/brackets/{bracketIdx}/simulation
func (h *BracketHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracketIdx, err := urlParamInt(r, "bracketIdx")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.SimulateBracket(r.Context(), tournamentID, bracketIdx)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetPreparedMaps handles GET /tournaments/{tournamentID}/brackets/{bracketIdx}/prepared-maps
func (h *BracketHandler) GetPreparedMaps(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracketIdx, err := urlParamInt(r, "bracketIdx")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prepared, err := h.bracketService.GetPreparedMaps(r.Context(), tournamentID, bracketIdx)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"prepared_maps": prepared}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SavePreparedMaps handles PUT /tournaments/{tournamentID}/brackets/{bracketIdx}/prepared-maps
func (h *BracketHandler) SavePreparedMaps(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	bracketIdx, err := urlParamInt(r, "bracketIdx")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var prepared models.PreparedMaps
	if err := readJSON(w, r, &prepared); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.bracketService.SavePreparedMaps(r.Context(), actor, tournamentID, bracketIdx, &prepared); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Finalize handles POST /tournaments/{tournamentID}/finalize
func (h *BracketHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.bracketService.Finalize(r.Context(), actor, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
