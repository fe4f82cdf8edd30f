package models

import "github.com/Dan9191/bank-cards/internal/apperr"

// Card and user failures surfaced to callers. Compare with errors.Is
var (
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")
	ErrCardNotFound = apperr.New(apperr.KindNotFound, "card not found")

	ErrPhoneRegistered      = apperr.New(apperr.KindConflict, "a user with this phone number is already registered")
	ErrConcurrentCardUpdate = apperr.New(apperr.KindConflict, "card was modified concurrently, retry the operation")

	ErrAdminCardholder   = apperr.New(apperr.KindRejected, "operation rejected: an administrator cannot be a cardholder")
	ErrSameCardTransfer  = apperr.New(apperr.KindRejected, "operation rejected: source and destination card are the same")
	ErrInsufficientFunds = apperr.New(apperr.KindRejected, "insufficient funds on card")

	ErrCardBlocked        = apperr.New(apperr.KindInvalidStatus, "operation rejected: card is blocked")
	ErrCardExpired        = apperr.New(apperr.KindInvalidStatus, "card has expired, please contact support")
	ErrCardBlockPending   = apperr.New(apperr.KindInvalidStatus, "operation rejected: card block has been requested")
	ErrCardAlreadyBlocked = apperr.New(apperr.KindInvalidStatus, "card has already been blocked")
	ErrCardInactive       = apperr.New(apperr.KindInvalidStatus, "card has expired and is not active")
	ErrBlockRequested     = apperr.New(apperr.KindInvalidStatus, "card block has already been requested")
	ErrUnknownCardStatus  = apperr.New(apperr.KindInvalidStatus, "card has an unknown status")
	ErrBlockNotRequested  = apperr.New(apperr.KindInvalidStatus, "a block request is required before the card can be blocked")
	ErrCardAlreadyActive  = apperr.New(apperr.KindInvalidStatus, "card is already active")

	ErrInvalidCardNumber = apperr.New(apperr.KindInvalidInput, "card number is missing")
	ErrNonPositiveAmount = apperr.New(apperr.KindInvalidInput, "amount must be greater than zero")
	ErrInvalidAmount     = apperr.New(apperr.KindInvalidInput, "amount must have at most two fractional digits")

	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid phone number or password")
	ErrInvalidToken       = apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	ErrAccessDenied       = apperr.New(apperr.KindForbidden, "access denied")

	ErrCardNumberUnavailable = apperr.New(apperr.KindInternal, "could not generate a unique card number")
)
