package httpapi

import (
	"net/http"
	"strconv"

	"example.com/abonos/internal/reconcile"
)

func (a *API) sync(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	res := a.Sync.Sync(r.Context(), force)
	a.Log.Info("manual sync", "by", Actor(r.Context()), "force", force, "status", res.Status, "changed", res.Changed)

	code := http.StatusOK
	if res.Status == reconcile.StatusFailed {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, res)
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	totals, err := a.Totals.Totals(r.Context(), a.Clock.Now())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	body := map[string]any{
		"totals": totals,
		"caches": a.Reads.Stats(),
	}
	if a.Hub != nil {
		body["wsClients"] = a.Hub.Len()
	}
	writeJSON(w, http.StatusOK, body)
}
