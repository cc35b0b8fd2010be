package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidToken = errors.New("invalid token")
var ErrExpiredToken = errors.New("token has expired")

// Failure taxonomy. Handlers map these to HTTP statuses; everything not
// wrapping one of them is treated as an internal failure.
var ErrAuthentication = errors.New("authentication failed")
var ErrAuthorization = errors.New("forbidden")
var ErrValidation = errors.New("validation failed")
var ErrConflict = errors.New("room already reserved")
var ErrNotFound = errors.New("not found")

// ConflictError names the room(s) whose booking attempt overlapped an
// existing reservation. errors.Is(err, ErrConflict) holds.
func ConflictError(rooms ...string) error {
	if len(rooms) == 0 {
		return ErrConflict
	}
	if len(rooms) == 1 {
		return fmt.Errorf("%w: room %s is already booked for this time slot", ErrConflict, rooms[0])
	}
	return fmt.Errorf("%w: rooms %s are already booked for this time slot", ErrConflict, strings.Join(rooms, ", "))
}
