package records

import "fmt"

// RecordType distinguishes the two result kinds a record can hold.
const (
	TypeSingle  = "single"
	TypeAverage = "average"
)

// Record models one regional record entry as delivered by the source.
type Record struct {
	Region        string `json:"region" validate:"required"`
	EventID       string `json:"eventId" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=single average"`
	Result        int64  `json:"result" validate:"required,gt=0"`
	PersonID      string `json:"personId" validate:"required"`
	PersonName    string `json:"personName"`
	CompetitionID string `json:"competitionId"`
	SetAt         string `json:"setAt"`
}

// Key returns the composite index key for the record.
func (r Record) Key() string {
	return IndexKey(r.Region, r.EventID, r.Type)
}

// IndexKey builds the composite key used by Index.
func IndexKey(region, eventID, recordType string) string {
	return fmt.Sprintf("%s|%s|%s", region, eventID, recordType)
}

// Index maps a composite region|event|type key to the records for that key,
// preserving the order they appeared in the source list.
type Index map[string][]Record

// DeriveIndex groups records by composite key. It is pure: the input slice is
// never modified and the same input always yields the same index.
func DeriveIndex(recs []Record) Index {
	idx := make(Index, len(recs))
	for _, r := range recs {
		k := r.Key()
		idx[k] = append(idx[k], r)
	}
	return idx
}
