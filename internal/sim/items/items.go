// Package items holds the item catalog, the fixed-slot runner inventory,
// and the shared unlimited bank.
package items

import "sort"

type ItemDef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Stackable bool   `json:"stackable"`
	StackSize int    `json:"stack_size,omitempty"`
}

type Catalog struct {
	Defs  map[string]ItemDef
	Order []string // stable iteration order for digests and UI
}

func NewCatalog(defs []ItemDef) *Catalog {
	c := &Catalog{Defs: make(map[string]ItemDef, len(defs))}
	for _, d := range defs {
		if _, dup := c.Defs[d.ID]; dup {
			continue
		}
		c.Defs[d.ID] = d
		c.Order = append(c.Order, d.ID)
	}
	return c
}

// stackLimit returns how many units of item fit in one slot. Non-stackable
// and unknown items consume one slot per unit.
func (c *Catalog) stackLimit(item string) int {
	d, ok := c.Defs[item]
	if !ok || !d.Stackable || d.StackSize <= 1 {
		return 1
	}
	return d.StackSize
}

type Stack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Inventory is a fixed-slot container. Stackable items fill existing
// under-capacity stacks before opening new slots.
type Inventory struct {
	Capacity int     `json:"capacity"`
	Slots    []Stack `json:"slots"`
}

func NewInventory(capacity int) *Inventory {
	return &Inventory{Capacity: capacity}
}

// Add places one unit of item, returning false when no stack and no free
// slot can take it.
func (inv *Inventory) Add(cat *Catalog, item string) bool {
	limit := cat.stackLimit(item)
	if limit > 1 {
		for i := range inv.Slots {
			if inv.Slots[i].Item == item && inv.Slots[i].Count < limit {
				inv.Slots[i].Count++
				return true
			}
		}
	}
	if len(inv.Slots) >= inv.Capacity {
		return false
	}
	inv.Slots = append(inv.Slots, Stack{Item: item, Count: 1})
	return true
}

// CanAdd reports whether one unit of item would fit.
func (inv *Inventory) CanAdd(cat *Catalog, item string) bool {
	limit := cat.stackLimit(item)
	if limit > 1 {
		for i := range inv.Slots {
			if inv.Slots[i].Item == item && inv.Slots[i].Count < limit {
				return true
			}
		}
	}
	return len(inv.Slots) < inv.Capacity
}

func (inv *Inventory) FreeSlots() int {
	return inv.Capacity - len(inv.Slots)
}

// IsFull reports whether every slot is occupied. An under-capacity stack
// may still accept more of its own item; use CanAdd for that question.
func (inv *Inventory) IsFull() bool {
	return len(inv.Slots) >= inv.Capacity
}

func (inv *Inventory) Count(item string) int {
	n := 0
	for _, s := range inv.Slots {
		if s.Item == item {
			n += s.Count
		}
	}
	return n
}

func (inv *Inventory) TotalUnits() int {
	n := 0
	for _, s := range inv.Slots {
		n += s.Count
	}
	return n
}

// Clear empties the inventory and returns what it held.
func (inv *Inventory) Clear() []Stack {
	out := inv.Slots
	inv.Slots = nil
	return out
}

// Bank is the shared deposit target: unlimited slots, and everything
// stacks regardless of the item's own stackability.
type Bank struct {
	Holdings map[string]int `json:"holdings"`
}

func NewBank() *Bank {
	return &Bank{Holdings: map[string]int{}}
}

func (b *Bank) Deposit(item string, count int) {
	if count <= 0 {
		return
	}
	b.Holdings[item] += count
}

// DepositAll moves every stack into the bank and returns how many distinct
// kinds and total units moved.
func (b *Bank) DepositAll(stacks []Stack) (kinds, units int) {
	seen := map[string]bool{}
	for _, s := range stacks {
		if s.Count <= 0 {
			continue
		}
		b.Holdings[s.Item] += s.Count
		units += s.Count
		if !seen[s.Item] {
			seen[s.Item] = true
			kinds++
		}
	}
	return kinds, units
}

func (b *Bank) Count(item string) int {
	return b.Holdings[item]
}

// List returns holdings sorted by item id.
func (b *Bank) List() []Stack {
	out := make([]Stack, 0, len(b.Holdings))
	for item, c := range b.Holdings {
		if c <= 0 {
			continue
		}
		out = append(out, Stack{Item: item, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
