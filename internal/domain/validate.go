package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxInventoryNumber = 9999
	MaxParkingID       = 999999
	MaxNameLength      = 128
	MaxRound           = 60
	MinPasswordLength  = 8
)

func ValidateSeat(s Seat) error {
	fields := []struct {
		name string
		v    int
	}{
		{"sector", s.Sector},
		{"gate", s.Gate},
		{"row", s.Row},
		{"number", s.Number},
	}
	for _, f := range fields {
		if f.v < 1 || f.v > MaxInventoryNumber {
			return Invalid(f.name, fmt.Sprintf("must be between 1 and %d", MaxInventoryNumber))
		}
	}
	return nil
}

func ValidateParkingSlot(p ParkingSlot) error {
	if p.ID < 1 || p.ID > MaxParkingID {
		return Invalid("id", fmt.Sprintf("must be between 1 and %d", MaxParkingID))
	}
	return ValidateName("name", p.Name)
}

// CleanName trims surrounding whitespace and validates the result.
func CleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(field, name); err != nil {
		return "", err
	}
	return name, nil
}

func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid(field, "is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Invalid(field, fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	return nil
}

func ValidateMatchInput(in MatchInput) error {
	if in.Round != nil && (*in.Round < 1 || *in.Round > MaxRound) {
		return Invalid("round", fmt.Sprintf("must be between 1 and %d", MaxRound))
	}
	if err := ValidateName("opponent", in.Opponent); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Competition) > MaxNameLength {
		return Invalid("competition", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	if utf8.RuneCountInString(in.Venue) > MaxNameLength {
		return Invalid("venue", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	return nil
}

func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	return nil
}

func ValidateID(field string, id int64) error {
	if id < 1 {
		return Invalid(field, "must be a positive integer")
	}
	return nil
}
