package grammar

type Terminal struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	Pattern       string `json:"pattern"`
	Skip          bool   `json:"skip"`
	Fallback      int    `json:"fallback"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type NonTerminal struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type Production struct {
	Number        int    `json:"number"`
	LHS           int    `json:"lhs"`
	RHS           []int  `json:"rhs"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
}

type Item struct {
	Production int `json:"production"`
	Dot        int `json:"dot"`
}

// Transition is a shift or a goto. State is -1 when the transition is fused with a reduction
// (ShiftReduce holds the rule) or accepts the input.
type Transition struct {
	Symbol      int  `json:"symbol"`
	State       int  `json:"state"`
	ShiftReduce *int `json:"shift_reduce,omitempty"`
	Accept      bool `json:"accept,omitempty"`
}

type Reduce struct {
	LookAhead  []int `json:"look_ahead"`
	Production int   `json:"production"`
}

// SRConflict is a shift/reduce conflict. State is the shift target, or -1 when the target is a
// fused state; ShiftReduce then holds the rule the fused shift reduces by. The same goes for
// AdoptedState and AdoptedShiftReduce.
type SRConflict struct {
	Symbol             int  `json:"symbol"`
	State              int  `json:"state"`
	ShiftReduce        *int `json:"shift_reduce,omitempty"`
	Production         int  `json:"production"`
	AdoptedState       *int `json:"adopted_state"`
	AdoptedShiftReduce *int `json:"adopted_shift_reduce,omitempty"`
	AdoptedProduction  *int `json:"adopted_production"`
	ResolvedBy         int  `json:"resolved_by"`
}

type RRConflict struct {
	Symbol            int `json:"symbol"`
	Production1       int `json:"production_1"`
	Production2       int `json:"production_2"`
	AdoptedProduction int `json:"adopted_production"`
	ResolvedBy        int `json:"resolved_by"`
}

type State struct {
	Number     int           `json:"number"`
	Kernel     []*Item       `json:"kernel"`
	Shift      []*Transition `json:"shift"`
	Reduce     []*Reduce     `json:"reduce"`
	GoTo       []*Transition `json:"goto"`
	SRConflict []*SRConflict `json:"sr_conflict"`
	RRConflict []*RRConflict `json:"rr_conflict"`

	// DefaultReduction is the production reduced on any lookahead without an explicit entry.
	// It is nil when the default action of the state is an error.
	DefaultReduction *int `json:"default_reduction"`

	// AutoReduce is true when the default reduction is the only action of the state. Shifts into
	// such a state are fused into shift-reduce actions.
	AutoReduce bool `json:"auto_reduce"`

	// Fused is true when the state has no row in the tables because every shift into it became a
	// shift-reduce action.
	Fused bool `json:"fused,omitempty"`
}

type Report struct {
	Name         string         `json:"name"`
	Wildcard     int            `json:"wildcard"`
	ErrorSymbol  int            `json:"error_symbol"`
	Terminals    []*Terminal    `json:"terminals"`
	NonTerminals []*NonTerminal `json:"non_terminals"`
	Productions  []*Production  `json:"productions"`
	States       []*State       `json:"states"`
	FusedStates  []*State       `json:"fused_states,omitempty"`
}

// AllStates returns the emitted states followed by the fused ones.
func (r *Report) AllStates() []*State {
	states := make([]*State, 0, len(r.States)+len(r.FusedStates))
	states = append(states, r.States...)
	return append(states, r.FusedStates...)
}
