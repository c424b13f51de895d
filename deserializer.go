package arcbuf

// Deserializer tracks deserialize-side shared-pointer state for one
// unarchive operation. Scoped to that operation, never process-global.
type Deserializer struct {
	shared map[int]any // archived payload offset -> materialized allocation
}

func NewDeserializer() *Deserializer {
	return &Deserializer{}
}

// SharedValue materializes the shared payload at the given archived offset
// exactly once: the first call runs produce and registers the result; later
// calls for the same offset return the same allocation. Registration only
// happens after produce succeeds, so a failed deserialize never leaves a
// half-initialized allocation in the pool.
func (d *Deserializer) SharedValue(off int, produce func() (any, error)) (any, error) {
	if v, ok := d.shared[off]; ok {
		return v, nil
	}
	v, err := produce()
	if err != nil {
		return nil, err
	}
	if d.shared == nil {
		d.shared = make(map[int]any)
	}
	d.shared[off] = v
	return v, nil
}
