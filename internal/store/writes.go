package store

import "example.com/abonos/internal/ledger"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpUpsert Op = "upsert"
)

// Write declares one mutating statement: the table it touches and the
// cache tags it invalidates, including tables reached by cascades.
type Write struct {
	Name  string
	Op    Op
	Table string
	Tags  []ledger.Tag
}

var assignmentTags = []ledger.Tag{ledger.TagSeatAssign, ledger.TagSlotAssign, ledger.TagAssignments}

func tags(ts ...[]ledger.Tag) []ledger.Tag {
	var out []ledger.Tag
	for _, t := range ts {
		out = append(out, t...)
	}
	return out
}

var (
	WriteMatchInsert = Write{"match.insert", OpInsert, "partidos", []ledger.Tag{ledger.TagMatches}}
	WriteMatchUpsert = Write{"match.upsert", OpUpsert, "partidos", []ledger.Tag{ledger.TagMatches}}
	WriteMatchUpdate = Write{"match.update", OpUpdate, "partidos", []ledger.Tag{ledger.TagMatches}}
	WriteMatchDelete = Write{"match.delete", OpDelete, "partidos", tags([]ledger.Tag{ledger.TagMatches}, assignmentTags)}

	WriteSeatInsert = Write{"seat.insert", OpInsert, "abonos", []ledger.Tag{ledger.TagSeats}}
	WriteSeatOwner  = Write{"seat.owner", OpUpdate, "abonos", []ledger.Tag{ledger.TagSeats}}
	WriteSeatDelete = Write{"seat.delete", OpDelete, "abonos", []ledger.Tag{ledger.TagSeats, ledger.TagSeatAssign, ledger.TagAssignments}}

	WriteParkingInsert = Write{"parking.insert", OpInsert, "parkings", []ledger.Tag{ledger.TagParking}}
	WriteParkingOwner  = Write{"parking.owner", OpUpdate, "parkings", []ledger.Tag{ledger.TagParking}}
	WriteParkingDelete = Write{"parking.delete", OpDelete, "parkings", []ledger.Tag{ledger.TagParking, ledger.TagSlotAssign, ledger.TagAssignments}}

	WriteCustomerInsert = Write{"customer.insert", OpInsert, "clientes", []ledger.Tag{ledger.TagCustomers}}
	WriteCustomerDelete = Write{"customer.delete", OpDelete, "clientes",
		tags([]ledger.Tag{ledger.TagCustomers, ledger.TagSeats, ledger.TagParking}, assignmentTags)}

	WriteSeatAssign     = Write{"seat.assign", OpInsert, "asignaciones_abonos", []ledger.Tag{ledger.TagSeatAssign, ledger.TagAssignments}}
	WriteSeatRelease    = Write{"seat.release", OpDelete, "asignaciones_abonos", []ledger.Tag{ledger.TagSeatAssign, ledger.TagAssignments}}
	WriteParkingAssign  = Write{"parking.assign", OpInsert, "asignaciones_parkings", []ledger.Tag{ledger.TagSlotAssign, ledger.TagAssignments}}
	WriteParkingRelease = Write{"parking.release", OpDelete, "asignaciones_parkings", []ledger.Tag{ledger.TagSlotAssign, ledger.TagAssignments}}

	WriteUserInsert   = Write{"user.insert", OpInsert, "usuarios", []ledger.Tag{ledger.TagUsers}}
	WriteUserPassword = Write{"user.password", OpUpdate, "usuarios", []ledger.Tag{ledger.TagUsers}}
)

// Writes lists every declared write.
func Writes() []Write {
	return []Write{
		WriteMatchInsert, WriteMatchUpsert, WriteMatchUpdate, WriteMatchDelete,
		WriteSeatInsert, WriteSeatOwner, WriteSeatDelete,
		WriteParkingInsert, WriteParkingOwner, WriteParkingDelete,
		WriteCustomerInsert, WriteCustomerDelete,
		WriteSeatAssign, WriteSeatRelease, WriteParkingAssign, WriteParkingRelease,
		WriteUserInsert, WriteUserPassword,
	}
}
