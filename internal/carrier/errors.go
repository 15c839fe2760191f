package carrier

// User-facing translations of the carrier error code tables.
const (
	msgInsufficientBalance = "Insufficient wallet balance. Top up and try again."
	msgWrongPIN            = "Wrong mobile money PIN entered."
	msgTimeout             = "The request timed out before it was approved."
	msgUserCancelled       = "The payment was declined on the handset."
	msgNetworkError        = "A network error interrupted the payment."
	msgServiceUnavailable  = "The mobile money service is temporarily unavailable."
	msgInvalidPhone        = "The phone number is not registered for mobile money."
	msgLimitExceeded       = "The amount exceeds the wallet transaction limit."

	msgGenericFailure = "Payment could not be completed. Please try again."
)

// ParseErrorCode translates a carrier error code into a user-facing message.
// Unknown and empty codes get the generic fallback; the lookup never fails.
func (a *Adapter) ParseErrorCode(code string) string {
	if a == nil {
		return msgGenericFailure
	}
	if msg, ok := a.cfg.ErrorMessages[code]; ok {
		return msg
	}
	return msgGenericFailure
}
