package httpapi

import (
	"net/http"
	"strings"

	"example.com/abonos/internal/domain"
)

// MatchRequest is the body of manual match create and update calls.
// Kickoff accepts RFC 3339 or local "YYYY-MM-DD HH:MM[:SS]".
type MatchRequest struct {
	Round       *int   `json:"round"`
	Opponent    string `json:"opponent"`
	Kickoff     string `json:"kickoff"`
	Home        bool   `json:"home"`
	Competition string `json:"competition"`
	Venue       string `json:"venue"`
}

func (a *API) matchFromRequest(req MatchRequest) (domain.Match, error) {
	kickoff, err := domain.NormalizeKickoff(req.Kickoff, a.Location)
	if err != nil {
		return domain.Match{}, err
	}
	in := domain.MatchInput{
		Round:       req.Round,
		Opponent:    strings.TrimSpace(req.Opponent),
		Kickoff:     kickoff,
		Home:        req.Home,
		Competition: strings.TrimSpace(req.Competition),
		Venue:       strings.TrimSpace(req.Venue),
	}
	if err := domain.ValidateMatchInput(in); err != nil {
		return domain.Match{}, err
	}

	home, away := domain.BuildTeamNames(in.Home, a.ClubName, in.Opponent)
	return domain.Match{
		Round:       in.Round,
		Opponent:    in.Opponent,
		Kickoff:     in.Kickoff,
		Home:        in.Home,
		Competition: in.Competition,
		Venue:       in.Venue,
		HomeTeam:    home,
		AwayTeam:    away,
	}, nil
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	list, err := a.Reads.UpcomingMatches(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) matchDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	d, err := a.Reads.MatchDetail(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) createMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := a.matchFromRequest(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	m, err = a.Matches.Insert(r.Context(), m)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) updateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req MatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := a.matchFromRequest(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	m.ID = id
	if err := a.Matches.Update(r.Context(), m); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) deleteMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok, err := a.Matches.Delete(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !ok {
		a.fail(w, r, domain.ErrMatchNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
