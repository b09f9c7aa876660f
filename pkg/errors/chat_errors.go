package errors

var (
	// Domain errors returned by services, matched with errors.Is
	ErrUserNotFound         = NotFound("user not found")
	ErrRecipientNotFound    = NotFound("recipient not found")
	ErrTripNotFound         = NotFound("trip not found")
	ErrReservationNotFound  = NotFound("reservation not found")
	ErrNotEligible          = Forbidden("you are not allowed to contact this user")
	ErrDriverOnly           = Forbidden("only drivers can perform this action")
	ErrPassengerOnly        = Forbidden("only passengers can perform this action")
	ErrNotReservationOwner  = Forbidden("reservation belongs to another passenger")
	ErrOwnTrip              = Forbidden("cannot book your own trip")
	ErrEmailTaken           = AlreadyExists("email already registered")
	ErrAlreadyReviewed      = AlreadyExists("reservation already reviewed")
	ErrInvalidCreds         = Unauthorized("invalid email or password")
	ErrNotEnoughSeats       = FailedPrecondition("not enough seats available")
	ErrReservationCancelled = FailedPrecondition("reservation is cancelled")
)

func ErrStoreUnavailable(cause error) error {
	return Transient("store unavailable", cause)
}
