package httpapi

import (
	"net/http"

	"example.com/abonos/internal/domain"
)

type AssignRequest struct {
	Kind       domain.ResourceKind `json:"kind"`
	ResourceID int64               `json:"resourceId"`
	CustomerID int64               `json:"customerId"`
}

type BulkAssignRequest struct {
	SeatIDs    []int64 `json:"seatIds"`
	ParkingIDs []int64 `json:"parkingIds"`
	CustomerID int64   `json:"customerId"`
}

func (a *API) assignSingle(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := domain.ParseResourceKind(string(req.Kind))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.Engine.AssignSingle(r.Context(), matchID, kind, req.ResourceID, req.CustomerID, Actor(r.Context())); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"matchId":    matchID,
		"kind":       kind,
		"resourceId": req.ResourceID,
		"customerId": req.CustomerID,
	})
}

func (a *API) assignBulk(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req BulkAssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := a.Engine.AssignBulk(r.Context(), matchID, req.SeatIDs, req.ParkingIDs, req.CustomerID, Actor(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) resourcePath(r *http.Request) (int64, domain.ResourceKind, int64, error) {
	matchID, err := pathID(r, "id")
	if err != nil {
		return 0, "", 0, err
	}
	kind, err := domain.ParseResourceKind(r.PathValue("kind"))
	if err != nil {
		return 0, "", 0, err
	}
	resID, err := pathID(r, "resourceId")
	if err != nil {
		return 0, "", 0, err
	}
	return matchID, kind, resID, nil
}

func (a *API) release(w http.ResponseWriter, r *http.Request) {
	matchID, kind, resID, err := a.resourcePath(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	released, err := a.Engine.Release(r.Context(), matchID, kind, resID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"released": released})
}

func (a *API) assignmentContext(w http.ResponseWriter, r *http.Request) {
	matchID, kind, resID, err := a.resourcePath(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.Reads.AssignmentContext(r.Context(), kind, matchID, resID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
