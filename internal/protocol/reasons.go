package protocol

const (
	// Gathering preconditions.
	ErrNoGatherable     = "E_NO_GATHERABLE"
	ErrSkillTooLow      = "E_SKILL_TOO_LOW"
	ErrInventoryFull    = "E_INVENTORY_FULL"
	ErrBadGatherableIdx = "E_BAD_GATHERABLE_INDEX"

	// Automation layer.
	ErrNoRuleMatched   = "E_NO_RULE_MATCHED"
	ErrEmptyRuleset    = "E_EMPTY_RULESET"
	ErrUnknownRuleset  = "E_UNKNOWN_RULESET"
	ErrUnknownSequence = "E_UNKNOWN_SEQUENCE"
	ErrBadAction       = "E_BAD_ACTION" // ruleset exists but a rule's action does not fit the layer
	ErrBadStep         = "E_BAD_STEP"   // sequence exists but a step kind is unrecognized

	// Command layer.
	ErrUnknownRunner = "E_UNKNOWN_RUNNER"
	ErrUnknownNode   = "E_UNKNOWN_NODE"
)

var knownReasons = map[string]struct{}{
	ErrNoGatherable:     {},
	ErrSkillTooLow:      {},
	ErrInventoryFull:    {},
	ErrBadGatherableIdx: {},
	ErrNoRuleMatched:    {},
	ErrEmptyRuleset:     {},
	ErrUnknownRuleset:   {},
	ErrUnknownSequence:  {},
	ErrBadAction:        {},
	ErrBadStep:          {},
	ErrUnknownRunner:    {},
	ErrUnknownNode:      {},
}

func IsKnownReason(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownReasons[code]
	return ok
}
