package booking

// registrationTransitions is the full set of legal lifecycle moves.
// cancelled is terminal; no transition skips a state.
var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationStatusPending:         {RegistrationStatusConfirmed, RegistrationStatusCancelled},
	RegistrationStatusPendingTransfer: {RegistrationStatusConfirmed, RegistrationStatusCancelled},
	RegistrationStatusConfirmed:       {RegistrationStatusCancelled},
	RegistrationStatusCancelled:       {},
}

// CanTransitionTo reports whether moving to next is legal from the current status.
func (status RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	for _, allowed := range registrationTransitions[status] {
		if allowed == next {
			return true
		}
	}
	return false
}

var waitlistTransitions = map[WaitlistStatus][]WaitlistStatus{
	WaitlistStatusWaiting:   {WaitlistStatusNotified, WaitlistStatusConverted},
	WaitlistStatusNotified:  {WaitlistStatusConverted, WaitlistStatusExpired},
	WaitlistStatusExpired:   {},
	WaitlistStatusConverted: {},
}

// CanTransitionTo reports whether moving to next is legal from the current status.
func (status WaitlistStatus) CanTransitionTo(next WaitlistStatus) bool {
	for _, allowed := range waitlistTransitions[status] {
		if allowed == next {
			return true
		}
	}
	return false
}
