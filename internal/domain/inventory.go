package domain

import "fmt"

type Seat struct {
	ID        int64  `json:"id"`
	Sector    int    `json:"sector"`
	Gate      int    `json:"gate"`
	Row       int    `json:"row"`
	Number    int    `json:"number"`
	OwnerID   *int64 `json:"ownerId,omitempty"`
	OwnerName string `json:"ownerName,omitempty"`
}

// Label renders the seat the way box-office staff read it.
func (s Seat) Label() string {
	return fmt.Sprintf("Sector %d · Puerta %d · Fila %d · Asiento %d", s.Sector, s.Gate, s.Row, s.Number)
}

type ParkingSlot struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	OwnerID   *int64 `json:"ownerId,omitempty"`
	OwnerName string `json:"ownerName,omitempty"`
}

type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
