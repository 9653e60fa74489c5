package protocol

// Runner activity states. Exactly one is active per runner at any time.
type AgentState string

const (
	StateIdle       AgentState = "IDLE"
	StateTraveling  AgentState = "TRAVELING"
	StateGathering  AgentState = "GATHERING"
	StateDepositing AgentState = "DEPOSITING"
)

// Rule layers.
type Layer string

const (
	LayerMacro Layer = "MACRO"
	LayerMicro Layer = "MICRO"
)

// Events published on the simulation bus. Payloads are small value types so
// subscribers never share mutable state with the simulation.

type RunnerCreated struct {
	Tick     uint64
	RunnerID string
	Name     string
	Node     string
}

type TravelStarted struct {
	Tick     uint64
	RunnerID string
	From     string
	To       string
	Distance float64
}

type TravelRedirected struct {
	Tick     uint64
	RunnerID string
	OldTo    string
	NewTo    string
	Distance float64
}

type TravelArrived struct {
	Tick     uint64
	RunnerID string
	Node     string
}

type GatheringStarted struct {
	Tick       uint64
	RunnerID   string
	Node       string
	Gatherable int
	Item       string
}

type GatheringFailed struct {
	Tick       uint64
	RunnerID   string
	Node       string
	Gatherable int
	Reason     string
}

type ItemProduced struct {
	Tick     uint64
	RunnerID string
	Node     string
	Item     string
}

type InventoryFull struct {
	Tick     uint64
	RunnerID string
	Node     string
	Item     string
}

type DepositStarted struct {
	Tick     uint64
	RunnerID string
	Node     string
}

type DepositCompleted struct {
	Tick     uint64
	RunnerID string
	Node     string
	Stacks   int // distinct item kinds moved
	Units    int // total units moved
}

type SkillLevelUp struct {
	Tick     uint64
	RunnerID string
	Skill    string
	Level    int
}

type SequenceAssigned struct {
	Tick       uint64
	RunnerID   string
	SequenceID string
	Deferred   bool
}

type SequenceCleared struct {
	Tick     uint64
	RunnerID string
}

type SequenceCompleted struct {
	Tick       uint64
	RunnerID   string
	SequenceID string
}

type RuleFired struct {
	Tick       uint64
	RunnerID   string
	Node       string
	Layer      Layer
	RulesetID  string
	RuleIndex  int
	RuleLabel  string
	Action     string
	Conditions string // human-readable snapshot of why the rule matched
	Deferred   bool
}

type NoRuleMatched struct {
	Tick      uint64
	RunnerID  string
	Node      string
	Layer     Layer
	RulesetID string
}

type RunnerStuck struct {
	Tick     uint64
	RunnerID string
	Node     string
	Reason   string
	Detail   string
}
