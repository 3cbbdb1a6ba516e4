package workflow

// Transition defines a state transition
type Transition struct {
	From   State
	Event  Event
	To     State
	Guards []GuardFunc
}

// TransitionKey uniquely identifies a transition
type TransitionKey struct {
	From  State
	Event Event
}

// TransitionTable maps (state, event) pairs to transitions.
//
//	not_started -> downloading -> extracting -> integrating -> completed
//	any non-terminal state -> failed (error)
//	downloading -> cancelled (cancel)
var TransitionTable = map[TransitionKey][]Transition{
	{StateNotStarted, EventStart}: {
		{From: StateNotStarted, Event: EventStart, To: StateDownloading, Guards: []GuardFunc{GuardHasPlan}},
	},
	{StateNotStarted, EventError}: {
		{From: StateNotStarted, Event: EventError, To: StateFailed},
	},

	{StateDownloading, EventDownloaded}: {
		{From: StateDownloading, Event: EventDownloaded, To: StateExtracting, Guards: []GuardFunc{GuardArchiveMatches}},
	},
	{StateDownloading, EventError}: {
		{From: StateDownloading, Event: EventError, To: StateFailed},
	},
	{StateDownloading, EventCancel}: {
		{From: StateDownloading, Event: EventCancel, To: StateCancelled},
	},

	{StateExtracting, EventExtracted}: {
		{From: StateExtracting, Event: EventExtracted, To: StateIntegrating},
	},
	{StateExtracting, EventError}: {
		{From: StateExtracting, Event: EventError, To: StateFailed},
	},

	// Integration never fails the run; step errors become warnings.
	{StateIntegrating, EventIntegrated}: {
		{From: StateIntegrating, Event: EventIntegrated, To: StateCompleted},
	},
	{StateIntegrating, EventError}: {
		{From: StateIntegrating, Event: EventError, To: StateFailed},
	},
}

// GetTransitions returns possible transitions for a state/event pair
func GetTransitions(from State, event Event) []Transition {
	return TransitionTable[TransitionKey{From: from, Event: event}]
}

// CanTransition checks if a transition is possible without guards
func CanTransition(from State, event Event) bool {
	return len(GetTransitions(from, event)) > 0
}
