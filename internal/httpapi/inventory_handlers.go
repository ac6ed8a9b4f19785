package httpapi

import (
	"context"
	"net/http"

	"example.com/abonos/internal/domain"
)

type SeatRequest struct {
	Sector  int    `json:"sector"`
	Gate    int    `json:"gate"`
	Row     int    `json:"row"`
	Number  int    `json:"number"`
	OwnerID *int64 `json:"ownerId"`
}

type ParkingRequest struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID *int64 `json:"ownerId"`
}

type OwnerRequest struct {
	OwnerID *int64 `json:"ownerId"`
}

type CustomerRequest struct {
	Name string `json:"name"`
}

func (a *API) listSeats(w http.ResponseWriter, r *http.Request) {
	list, err := a.Seats.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) createSeat(w http.ResponseWriter, r *http.Request) {
	var req SeatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	seat := domain.Seat{Sector: req.Sector, Gate: req.Gate, Row: req.Row, Number: req.Number, OwnerID: req.OwnerID}
	if err := domain.ValidateSeat(seat); err != nil {
		a.fail(w, r, err)
		return
	}
	seat, err := a.Seats.Insert(r.Context(), seat)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, seat)
}

func (a *API) setSeatOwner(w http.ResponseWriter, r *http.Request) {
	a.setOwner(w, r, a.Seats.SetOwner)
}

func (a *API) deleteSeat(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, a.Seats.Delete, domain.ErrSeatNotFound)
}

func (a *API) listParking(w http.ResponseWriter, r *http.Request) {
	list, err := a.Parking.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) createParking(w http.ResponseWriter, r *http.Request) {
	var req ParkingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := domain.CleanName("name", req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	slot := domain.ParkingSlot{ID: req.ID, Name: name, OwnerID: req.OwnerID}
	if err := domain.ValidateParkingSlot(slot); err != nil {
		a.fail(w, r, err)
		return
	}
	slot, err = a.Parking.Insert(r.Context(), slot)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (a *API) setParkingOwner(w http.ResponseWriter, r *http.Request) {
	a.setOwner(w, r, a.Parking.SetOwner)
}

func (a *API) deleteParking(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, a.Parking.Delete, domain.ErrParkingNotFound)
}

func (a *API) listCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := a.Reads.CustomerOptions(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := a.Engine.CreateCustomerIfNew(r.Context(), req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	a.deleteByID(w, r, a.Customers.Delete, domain.ErrCustomerNotFound)
}

func (a *API) customerAgenda(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	agenda, err := a.Customers.Agenda(r.Context(), id, a.Clock.Now())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agenda)
}

func (a *API) setOwner(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id int64, owner *int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req OwnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OwnerID != nil {
		if err := domain.ValidateID("ownerId", *req.OwnerID); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if err := set(r.Context(), id, req.OwnerID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int64) (bool, error), missing error) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok, err := del(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !ok {
		a.fail(w, r, missing)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
