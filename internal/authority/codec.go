package authority

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/udisondev/towergate/internal/game/region"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Unknown fields are ignored so writers can add attributes.
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Record is one region as stored in the authority hash. Regions with a
// higher Priority win when several contain the same point.
type Record struct {
	ID       string   `cbor:"1,keyasint"`
	World    string   `cbor:"2,keyasint"`
	Min      [3]int32 `cbor:"3,keyasint"`
	Max      [3]int32 `cbor:"4,keyasint"`
	Priority int32    `cbor:"5,keyasint,omitempty"`
}

// RecordOf converts a region into a Record.
func RecordOf(r region.Region, priority int32) Record {
	lo, hi := r.Min(), r.Max()
	return Record{
		ID:       r.ID(),
		World:    r.World(),
		Min:      [3]int32{lo.X, lo.Y, lo.Z},
		Max:      [3]int32{hi.X, hi.Y, hi.Z},
		Priority: priority,
	}
}

// Region validates the record and builds the region.
func (r Record) Region() (region.Region, error) {
	return region.New(r.ID, r.World,
		region.Corner{X: r.Min[0], Y: r.Min[1], Z: r.Min[2]},
		region.Corner{X: r.Max[0], Y: r.Max[1], Z: r.Max[2]})
}

// Encode serializes rec.
func Encode(rec Record) ([]byte, error) {
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode region %q: %w", rec.ID, err)
	}
	return data, nil
}

// Decode parses a serialized record.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode region record: %w", err)
	}
	return rec, nil
}
