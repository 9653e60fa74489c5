// Package skills defines the fixed skill catalog. It is duplicated at the
// bottom of the dependency graph (no sim imports) so worldmap, rules, and
// world can all reference skill ids without cycles.
package skills

type ID string

const (
	Athletics    ID = "ATHLETICS"
	Woodcutting  ID = "WOODCUTTING"
	Mining       ID = "MINING"
	Fishing      ID = "FISHING"
	Foraging     ID = "FORAGING"
	Herbalism    ID = "HERBALISM"
	Hunting      ID = "HUNTING"
	Farming      ID = "FARMING"
	Excavation   ID = "EXCAVATION"
	Crystallurgy ID = "CRYSTALLURGY"
	Mycology     ID = "MYCOLOGY"
	Apiculture   ID = "APICULTURE"
	Scavenging   ID = "SCAVENGING"
	Divination   ID = "DIVINATION"
	Combat       ID = "COMBAT" // reserved; no combat systems exist yet
)

// All lists every skill in stable order. Runners carry exactly this set.
func All() []ID {
	return []ID{
		Athletics, Woodcutting, Mining, Fishing, Foraging,
		Herbalism, Hunting, Farming, Excavation, Crystallurgy,
		Mycology, Apiculture, Scavenging, Divination, Combat,
	}
}

func IsValid(id ID) bool {
	for _, s := range All() {
		if s == id {
			return true
		}
	}
	return false
}
