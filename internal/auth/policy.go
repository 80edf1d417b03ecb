package auth

// Access is the level of authentication an operation requires.
type Access int

const (
	// Public operations need no token.
	Public Access = iota
	// Authenticated operations need a valid token.
	Authenticated
	// Organizer operations need a valid token whose user may manage events.
	Organizer
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case Organizer:
		return "organizer"
	default:
		return "unknown"
	}
}

// Operation names one route of the API.
type Operation string

const (
	OpHealth              Operation = "health"
	OpListEvents          Operation = "events.list"
	OpGetEvent            Operation = "events.get"
	OpCreateEvent         Operation = "events.create"
	OpUpdateEvent         Operation = "events.update"
	OpDeleteEvent         Operation = "events.delete"
	OpListBookings        Operation = "bookings.list"
	OpCreateBooking       Operation = "bookings.create"
	OpGetBooking          Operation = "bookings.get"
	OpRegisterUser        Operation = "users.register"
	OpListUsers           Operation = "users.list"
	OpIssueToken          Operation = "tokens.issue"
	OpCreatePaymentIntent Operation = "payments.intent"
	OpConfirmPayment      Operation = "payments.confirm"
)

// Policy maps every operation to the access it requires.
type Policy map[Operation]Access

// DefaultPolicy is the access table of the public API.
func DefaultPolicy() Policy {
	return Policy{
		OpHealth:              Public,
		OpListEvents:          Public,
		OpGetEvent:            Public,
		OpCreateEvent:         Organizer,
		OpUpdateEvent:         Organizer,
		OpDeleteEvent:         Organizer,
		OpListBookings:        Authenticated,
		OpCreateBooking:       Authenticated,
		OpGetBooking:          Public,
		OpRegisterUser:        Public,
		OpListUsers:           Authenticated,
		OpIssueToken:          Public,
		OpCreatePaymentIntent: Authenticated,
		OpConfirmPayment:      Public,
	}
}

// Access returns the access required by op. Operations missing from the
// table require authentication.
func (p Policy) Access(op Operation) Access {
	if a, ok := p[op]; ok {
		return a
	}
	return Authenticated
}
