package items

import "testing"

func testCatalog() *Catalog {
	return NewCatalog([]ItemDef{
		{ID: "LOG", Name: "Log", Stackable: false},
		{ID: "BERRY", Name: "Berry", Stackable: true, StackSize: 10},
		{ID: "ORE", Name: "Ore", Stackable: false},
	})
}

func TestInventory_NonStackableOneSlotPerUnit(t *testing.T) {
	cat := testCatalog()
	inv := NewInventory(3)
	for i := 0; i < 3; i++ {
		if !inv.Add(cat, "LOG") {
			t.Fatalf("add %d failed with free slots", i)
		}
	}
	if inv.Add(cat, "LOG") {
		t.Fatalf("add succeeded on full inventory")
	}
	if !inv.IsFull() || inv.FreeSlots() != 0 || inv.Count("LOG") != 3 {
		t.Fatalf("full=%v free=%d count=%d", inv.IsFull(), inv.FreeSlots(), inv.Count("LOG"))
	}
}

func TestInventory_StackableFillsExistingStacksFirst(t *testing.T) {
	cat := testCatalog()
	inv := NewInventory(2)
	for i := 0; i < 10; i++ {
		if !inv.Add(cat, "BERRY") {
			t.Fatalf("add %d failed", i)
		}
	}
	if len(inv.Slots) != 1 {
		t.Fatalf("10 berries used %d slots, want 1", len(inv.Slots))
	}
	inv.Add(cat, "BERRY") // 11th opens a second slot
	if len(inv.Slots) != 2 || inv.Count("BERRY") != 11 {
		t.Fatalf("slots=%d count=%d", len(inv.Slots), inv.Count("BERRY"))
	}
}

func TestInventory_CanAddOnFullStackableSlot(t *testing.T) {
	cat := testCatalog()
	inv := NewInventory(1)
	for i := 0; i < 9; i++ {
		inv.Add(cat, "BERRY")
	}
	// One slot occupied but the stack has room.
	if !inv.IsFull() {
		t.Fatalf("expected all slots occupied")
	}
	if !inv.CanAdd(cat, "BERRY") {
		t.Fatalf("under-capacity stack should accept its own item")
	}
	if inv.CanAdd(cat, "LOG") {
		t.Fatalf("no slot for a different item")
	}
}

func TestInventory_Clear(t *testing.T) {
	cat := testCatalog()
	inv := NewInventory(5)
	inv.Add(cat, "LOG")
	inv.Add(cat, "BERRY")
	out := inv.Clear()
	if len(out) != 2 || inv.TotalUnits() != 0 || len(inv.Slots) != 0 {
		t.Fatalf("clear returned %v, remaining %v", out, inv.Slots)
	}
}

func TestBank_EverythingStacks(t *testing.T) {
	b := NewBank()
	kinds, units := b.DepositAll([]Stack{
		{Item: "LOG", Count: 1},
		{Item: "LOG", Count: 1},
		{Item: "BERRY", Count: 7},
	})
	if kinds != 2 || units != 9 {
		t.Fatalf("kinds=%d units=%d, want 2/9", kinds, units)
	}
	if b.Count("LOG") != 2 || b.Count("BERRY") != 7 {
		t.Fatalf("holdings LOG=%d BERRY=%d", b.Count("LOG"), b.Count("BERRY"))
	}
	ls := b.List()
	if len(ls) != 2 || ls[0].Item != "BERRY" || ls[1].Item != "LOG" {
		t.Fatalf("list = %v", ls)
	}
}
