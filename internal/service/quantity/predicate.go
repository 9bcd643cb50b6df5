package quantity

import "github.com/heartmarshall/beautyshelf-backend/internal/domain"

// DefaultSizeTolerance is the size window used when none is configured.
const DefaultSizeTolerance = 10.0

// Predicate decides which of a user's instances are similar to a key.
//
// Query narrows the candidates a store has to return; Match makes the final
// decision per candidate. A stricter predicate can return the same Query and
// reject more candidates in Match.
type Predicate interface {
	Query(key domain.SimilarityKey) domain.SimilarityQuery
	Match(key domain.SimilarityKey, candidate domain.SimilarInstance) bool
}

// NameBrandSize treats instances as similar when normalized name and brand
// are equal and, if both sizes are known, the sizes are within Tolerance.
type NameBrandSize struct {
	Tolerance float64
}

// NewNameBrandSize creates the default predicate. A non-positive tolerance
// falls back to DefaultSizeTolerance.
func NewNameBrandSize(tolerance float64) NameBrandSize {
	if tolerance <= 0 {
		tolerance = DefaultSizeTolerance
	}
	return NameBrandSize{Tolerance: tolerance}
}

// Query implements Predicate.
func (p NameBrandSize) Query(key domain.SimilarityKey) domain.SimilarityQuery {
	q := domain.SimilarityQuery{
		UserID: key.UserID,
		Name:   key.Name,
		Brand:  key.Brand,
	}
	if key.Size != nil {
		lo, hi := *key.Size-p.Tolerance, *key.Size+p.Tolerance
		q.SizeMin, q.SizeMax = &lo, &hi
	}
	return q
}

// Match implements Predicate.
func (p NameBrandSize) Match(key domain.SimilarityKey, c domain.SimilarInstance) bool {
	return domain.NormalizeText(c.Name) == key.Name &&
		domain.NormalizeText(c.Brand) == key.Brand &&
		domain.SizeWithin(key.Size, c.Size, p.Tolerance)
}
