package utils

import (
	"errors"
	"strconv"
	"strings"
)

// Vineyard coordinates are stored on chain as decimal strings. These helpers
// validate them before submission so a malformed value never reaches a
// transaction.

var (
	ErrEmptyCoordinate   = errors.New("coordinate is empty")
	ErrInvalidCoordinate = errors.New("coordinate is not a decimal number")
	ErrCoordinateRange   = errors.New("coordinate out of range")
)

// ValidateLatitude checks a latitude string (-90..90)
func ValidateLatitude(s string) error {
	return validateCoord(s, 90)
}

// ValidateLongitude checks a longitude string (-180..180)
func ValidateLongitude(s string) error {
	return validateCoord(s, 180)
}

func validateCoord(s string, limit float64) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyCoordinate
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalidCoordinate
	}
	if v < -limit || v > limit {
		return ErrCoordinateRange
	}
	return nil
}
