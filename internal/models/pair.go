package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PairKey is the canonical key of an unordered pair of principals.
func PairKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// SortedPair returns a and b in the order used by PairKey.
func SortedPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if b.Hex() < a.Hex() {
		return []primitive.ObjectID{b, a}
	}
	return []primitive.ObjectID{a, b}
}
