package zone

import "errors"

// SyncResult summarizes a Registry.Sync call.
type SyncResult struct {
	Added     int
	Updated   int
	Removed   int
	Unchanged int
	Rejected  int
}

// Changed reports whether the sync mutated the registry.
func (r SyncResult) Changed() bool {
	return r.Added+r.Updated+r.Removed > 0
}

// Sync makes the registry hold exactly defs. Zones whose fingerprint did not
// change are left untouched, so reloading an unchanged zone set does not
// dirty the index. Invalid definitions are skipped and reported in the
// joined error; an invalid replacement keeps the previously registered zone.
func (r *Registry) Sync(defs []Definition) (SyncResult, error) {
	var (
		res  SyncResult
		errs []error
	)

	want := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		want[d.ID] = struct{}{}

		if z, ok := r.index.Zone(d.ID); ok && z.Fingerprint == d.Fingerprint() {
			res.Unchanged++
			continue
		}

		_, existed := r.index.Zone(d.ID)
		if err := r.AddDefinition(d); err != nil {
			res.Rejected++
			errs = append(errs, err)
			continue
		}

		if existed {
			res.Updated++
		} else {
			res.Added++
		}
	}

	for _, id := range r.index.IDs() {
		if _, ok := want[id]; ok {
			continue
		}
		if r.Remove(id) {
			res.Removed++
		}
	}

	if res.Changed() || res.Rejected > 0 {
		r.logger.Info("zones synced",
			"added", res.Added,
			"updated", res.Updated,
			"removed", res.Removed,
			"unchanged", res.Unchanged,
			"rejected", res.Rejected,
		)
	}

	return res, errors.Join(errs...)
}
