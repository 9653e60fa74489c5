// Package catalogs loads the authored game data files: item definitions,
// the world graph, rulesets, and sequence templates. Every file is
// validated against its embedded JSON schema before decoding, and a
// sha256 digest of the raw bytes is kept so saves can detect that they
// were written against different data.
package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/rules"
	"runnerkeep.gg/internal/sim/sequences"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/worldmap"
)

//go:embed schemas/items.schema.json
var itemsSchema string

//go:embed schemas/world.schema.json
var worldSchema string

//go:embed schemas/rulesets.schema.json
var rulesetsSchema string

//go:embed schemas/sequences.schema.json
var sequencesSchema string

type Catalogs struct {
	Items *items.Catalog
	Map   *worldmap.Map

	MacroRulesets []*rules.Ruleset
	MicroRulesets []*rules.Ruleset
	Sequences     []*sequences.Sequence

	ItemsDigest     string
	WorldDigest     string
	RulesetsDigest  string
	SequencesDigest string
}

type worldFile struct {
	TravelDistanceScale float64         `json:"travel_distance_scale"`
	Nodes               []worldmap.Node `json:"nodes"`
	Edges               []worldmap.Edge `json:"edges"`
}

type rulesetsFile struct {
	Macro []*rules.Ruleset `json:"macro"`
	Micro []*rules.Ruleset `json:"micro"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	raw, err := loadValidated(filepath.Join(configDir, "items.json"), "items.schema.json", itemsSchema)
	if err != nil {
		return nil, err
	}
	c.ItemsDigest = sha256Hex(raw)
	var defs []items.ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("items.json: %w", err)
	}
	c.Items = items.NewCatalog(defs)

	raw, err = loadValidated(filepath.Join(configDir, "world.json"), "world.schema.json", worldSchema)
	if err != nil {
		return nil, err
	}
	c.WorldDigest = sha256Hex(raw)
	var wf worldFile
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("world.json: %w", err)
	}
	m := worldmap.New()
	m.TravelDistanceScale = wf.TravelDistanceScale
	for _, n := range wf.Nodes {
		m.AddNode(n)
	}
	for _, e := range wf.Edges {
		m.AddEdge(e.A, e.B, e.Distance)
	}
	if err := m.Initialize(); err != nil {
		return nil, fmt.Errorf("world.json: %w", err)
	}
	c.Map = m

	raw, err = loadValidated(filepath.Join(configDir, "rulesets.json"), "rulesets.schema.json", rulesetsSchema)
	if err != nil {
		return nil, err
	}
	c.RulesetsDigest = sha256Hex(raw)
	var rf rulesetsFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("rulesets.json: %w", err)
	}
	c.MacroRulesets = rf.Macro
	c.MicroRulesets = rf.Micro

	raw, err = loadValidated(filepath.Join(configDir, "sequences.json"), "sequences.schema.json", sequencesSchema)
	if err != nil {
		return nil, err
	}
	c.SequencesDigest = sha256Hex(raw)
	if err := json.Unmarshal(raw, &c.Sequences); err != nil {
		return nil, fmt.Errorf("sequences.json: %w", err)
	}

	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

// crossCheck verifies references between files: gatherables must name
// defined items and real skills, sequence steps must name real nodes and
// loaded micro rulesets. Schema validation cannot see across files, so
// this is where authoring typos surface.
func (c *Catalogs) crossCheck() error {
	microIDs := map[string]bool{}
	for _, rs := range c.MicroRulesets {
		if rs.ID == "" {
			return fmt.Errorf("rulesets.json: micro ruleset with empty id")
		}
		if microIDs[rs.ID] {
			return fmt.Errorf("rulesets.json: duplicate micro ruleset id %q", rs.ID)
		}
		microIDs[rs.ID] = true
	}
	for _, rs := range c.MacroRulesets {
		if rs.ID == "" {
			return fmt.Errorf("rulesets.json: macro ruleset with empty id")
		}
	}

	for _, n := range c.Map.Nodes {
		for i, gc := range n.Gatherables {
			if _, ok := c.Items.Defs[gc.Item]; !ok {
				return fmt.Errorf("world.json: node %s gatherable %d: unknown item %q", n.ID, i, gc.Item)
			}
			if !skills.IsValid(gc.Skill) {
				return fmt.Errorf("world.json: node %s gatherable %d: unknown skill %q", n.ID, i, gc.Skill)
			}
			if gc.BaseTicks <= 0 {
				return fmt.Errorf("world.json: node %s gatherable %d: base_ticks must be positive", n.ID, i)
			}
		}
	}

	seqIDs := map[string]bool{}
	for _, seq := range c.Sequences {
		if seq.ID == "" {
			return fmt.Errorf("sequences.json: sequence with empty id")
		}
		if seqIDs[seq.ID] {
			return fmt.Errorf("sequences.json: duplicate sequence id %q", seq.ID)
		}
		seqIDs[seq.ID] = true
		for i, step := range seq.Steps {
			switch step.Kind {
			case sequences.StepTravelTo:
				if c.Map.GetNode(step.Node) == nil {
					return fmt.Errorf("sequences.json: %s step %d: unknown node %q", seq.ID, i, step.Node)
				}
			case sequences.StepWork:
				if !microIDs[step.MicroRuleset] {
					return fmt.Errorf("sequences.json: %s step %d: unknown micro ruleset %q", seq.ID, i, step.MicroRuleset)
				}
			case sequences.StepDeposit:
			default:
				return fmt.Errorf("sequences.json: %s step %d: unknown step kind %q", seq.ID, i, step.Kind)
			}
		}
	}

	for _, rs := range c.MacroRulesets {
		for i, rule := range rs.Rules {
			if rule.Action.Kind == rules.ActAssignSequence && !seqIDs[rule.Action.Sequence] {
				return fmt.Errorf("rulesets.json: macro %s rule %d: unknown sequence %q", rs.ID, i, rule.Action.Sequence)
			}
		}
	}
	return nil
}

func loadValidated(path, schemaName, schemaText string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaName, strings.NewReader(schemaText)); err != nil {
		return nil, fmt.Errorf("%s: %w", schemaName, err)
	}
	schema, err := compiler.Compile(schemaName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", schemaName, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return raw, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
