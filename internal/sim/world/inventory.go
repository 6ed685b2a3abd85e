package world

// Inventory is an ordered slot list of item ids.
type Inventory struct {
	capacity int
	items    []int
}

func NewInventory(capacity int) *Inventory {
	return &Inventory{capacity: capacity}
}

func (inv *Inventory) Size() int     { return len(inv.items) }
func (inv *Inventory) Capacity() int { return inv.capacity }
func (inv *Inventory) Full() bool    { return len(inv.items) >= inv.capacity }

func (inv *Inventory) Count(id int) int {
	n := 0
	for _, it := range inv.items {
		if it == id {
			n++
		}
	}
	return n
}

func (inv *Inventory) Get(i int) (int, bool) {
	if i < 0 || i >= len(inv.items) {
		return 0, false
	}
	return inv.items[i], true
}

func (inv *Inventory) Index(id int) int {
	for i, it := range inv.items {
		if it == id {
			return i
		}
	}
	return -1
}

func (inv *Inventory) Add(id int) bool {
	if inv.Full() {
		return false
	}
	inv.items = append(inv.items, id)
	return true
}

func (inv *Inventory) RemoveAt(i int) (int, bool) {
	id, ok := inv.Get(i)
	if !ok {
		return 0, false
	}
	inv.items = append(inv.items[:i], inv.items[i+1:]...)
	return id, true
}

// Remove takes up to n of id, last slots first, and returns how many went.
func (inv *Inventory) Remove(id, n int) int {
	removed := 0
	for i := len(inv.items) - 1; i >= 0 && removed < n; i-- {
		if inv.items[i] == id {
			inv.items = append(inv.items[:i], inv.items[i+1:]...)
			removed++
		}
	}
	return removed
}

func (inv *Inventory) Items() []int {
	out := make([]int, len(inv.items))
	copy(out, inv.items)
	return out
}
