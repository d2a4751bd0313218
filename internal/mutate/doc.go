// Package mutate holds the pure entity mutators of the point of sale.
//
// Every function takes the current collection and a requested change and
// returns a new slice with the change applied; the input slice is never
// modified. New or changed entities are stamped IsSaved=false so the sync
// driver picks them up. Identity is the entity's stable ID, never its
// position in the slice.
package mutate
