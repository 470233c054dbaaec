package dialogue

// State is a step of the guided campaign conversation.
type State string

const (
	StateAskObjective      State = "ask_objective"
	StateAskURL            State = "ask_url"
	StateThinking          State = "thinking"
	StateAskAgeRange       State = "ask_age_range"
	StateAskInterests      State = "ask_interests"
	StateAskReview         State = "ask_review"
	StateFinalConfirmation State = "final_confirmation"
	StateCompleted         State = "completed"
)

// Valid transitions: from -> []to. Self transitions are re-prompts.
var transitions = map[State][]State{
	StateAskObjective:      {StateAskObjective, StateAskURL},
	StateAskURL:            {StateAskURL, StateThinking},
	StateThinking:          {StateAskAgeRange},
	StateAskAgeRange:       {StateAskAgeRange, StateAskInterests},
	StateAskInterests:      {StateAskInterests, StateAskReview},
	StateAskReview:         {StateAskReview, StateFinalConfirmation, StateAskObjective},
	StateFinalConfirmation: {StateFinalConfirmation, StateCompleted, StateAskObjective},
	StateCompleted:         {StateCompleted},
}

func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}
