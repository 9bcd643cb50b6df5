package domain

import (
	"math"

	"github.com/google/uuid"
)

// SimilarityKey describes the owned instance whose similarity group is being
// reconciled. Name and Brand are normalized.
type SimilarityKey struct {
	UserID uuid.UUID
	Name   string
	Brand  string
	Size   *float64
}

// NewSimilarityKey normalizes name and brand into a key.
func NewSimilarityKey(userID uuid.UUID, name, brand string, size *float64) SimilarityKey {
	return SimilarityKey{
		UserID: userID,
		Name:   NormalizeText(name),
		Brand:  NormalizeText(brand),
		Size:   size,
	}
}

// GroupKey identifies the (user, name, brand) bucket the key belongs to.
// Size is excluded: size windows overlap, buckets do not.
func (k SimilarityKey) GroupKey() string {
	return k.UserID.String() + "|" + k.Name + "|" + k.Brand
}

// SimilarInstance is the projection of an owned instance needed to decide
// group membership.
type SimilarInstance struct {
	ID       uuid.UUID
	Name     string
	Brand    string
	Size     *float64
	Quantity int
}

// SizeWithin reports whether a and b are within tolerance of each other.
// A missing size on either side disables the comparison.
func SizeWithin(a, b *float64, tolerance float64) bool {
	if a == nil || b == nil {
		return true
	}
	return math.Abs(*a-*b) <= tolerance
}

// SimilarityQuery is the part of a similarity predicate a store can evaluate.
// Nil size bounds disable the size filter.
type SimilarityQuery struct {
	UserID  uuid.UUID
	Name    string
	Brand   string
	SizeMin *float64
	SizeMax *float64
}

// InstanceKey pairs an owned instance with the similarity key it produces.
type InstanceKey struct {
	InstanceID uuid.UUID
	Key        SimilarityKey
}
