package booking

// Actor is the role a caller plays relative to a booking.
type Actor uint8

const (
	ActorDriver Actor = 1 << iota
	ActorPassenger
	ActorSystem
)

func (a Actor) String() string {
	switch a {
	case ActorDriver:
		return "DRIVER"
	case ActorPassenger:
		return "PASSENGER"
	case ActorSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Effect is the side effect a transition has on the ride or on ratings.
type Effect int

const (
	EffectNone Effect = iota
	EffectReserve
	EffectRelease
	EffectComplete
)

// Rule is one edge of the booking state machine.
type Rule struct {
	Allowed Actor
	Effect  Effect
}

// Permits reports whether actor may take this edge.
func (rule Rule) Permits(actor Actor) bool {
	return rule.Allowed&actor != 0
}

var transitions = map[Status]map[Status]Rule{
	StatusPending: {
		StatusConfirmed: {Allowed: ActorDriver | ActorSystem, Effect: EffectReserve},
		StatusRejected:  {Allowed: ActorDriver, Effect: EffectNone},
		StatusCancelled: {Allowed: ActorPassenger, Effect: EffectNone},
	},
	StatusConfirmed: {
		StatusCancelled: {Allowed: ActorDriver | ActorPassenger, Effect: EffectRelease},
		StatusCompleted: {Allowed: ActorDriver, Effect: EffectComplete},
	},
}

// Lookup returns the rule for from -> to, if the edge exists.
func Lookup(from, to Status) (Rule, bool) {
	rule, ok := transitions[from][to]
	return rule, ok
}
