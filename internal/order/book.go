package order

// Book holds all orders of one run grouped by status. It is owned exclusively
// by the simulation loop; no order appears in two lists at once.
type Book struct {
	Opening   []Order
	Triggered []Order
	Filled    []Order
	Canceled  []Order
	Rejected  []Order
	// Submitted holds terminal CANCEL orders.
	Submitted []Order
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{}
}

// Resting returns the OPENING and TRIGGERED orders, in that list order.
// The slice is a copy; the book's lists stay unaliased.
func (b *Book) Resting() []Order {
	out := make([]Order, 0, len(b.Opening)+len(b.Triggered))
	out = append(out, b.Opening...)
	out = append(out, b.Triggered...)
	return out
}

// FindResting locates a resting order by id. The second result reports
// whether it was found in the triggered list.
func (b *Book) FindResting(id string) (Order, bool, bool) {
	for _, o := range b.Opening {
		if o.ID == id {
			return o, false, true
		}
	}
	for _, o := range b.Triggered {
		if o.ID == id {
			return o, true, true
		}
	}
	return Order{}, false, false
}

// RemoveResting deletes a resting order by id from whichever list holds it.
func (b *Book) RemoveResting(id string) {
	b.Opening = remove(b.Opening, id)
	b.Triggered = remove(b.Triggered, id)
}

func remove(list []Order, id string) []Order {
	for i, o := range list {
		if o.ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
