package mutate

// Savable is implemented by the pointer types of every synced entity.
type Savable[T any] interface {
	*T
	EntityID() string
	// Version changes whenever the entity is edited.
	Version() string
	Saved() bool
	SetSaved(bool)
}

// Unsaved returns copies of the entities not yet acknowledged by the server.
func Unsaved[T any, PT Savable[T]](items []T) []T {
	var out []T
	for i := range items {
		if !PT(&items[i]).Saved() {
			out = append(out, items[i])
		}
	}
	return out
}

// CountUnsaved returns len(Unsaved(items)) without copying.
func CountUnsaved[T any, PT Savable[T]](items []T) int {
	n := 0
	for i := range items {
		if !PT(&items[i]).Saved() {
			n++
		}
	}
	return n
}

// Versions maps entity ID to version for items.
func Versions[T any, PT Savable[T]](items []T) map[string]string {
	out := make(map[string]string, len(items))
	for i := range items {
		p := PT(&items[i])
		out[p.EntityID()] = p.Version()
	}
	return out
}

// MarkSaved returns a copy of items with every entity whose ID and version
// appear in sent flipped to saved. Entities edited after they were sent keep
// their unsaved flag. The count of flipped entities is returned.
func MarkSaved[T any, PT Savable[T]](items []T, sent map[string]string) ([]T, int) {
	out := make([]T, len(items))
	copy(out, items)
	n := 0
	for i := range out {
		p := PT(&out[i])
		if v, ok := sent[p.EntityID()]; ok && v == p.Version() && !p.Saved() {
			p.SetSaved(true)
			n++
		}
	}
	return out, n
}
