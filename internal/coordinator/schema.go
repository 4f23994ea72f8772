package coordinator

import (
	"fmt"

	"github.com/quietmesh/rfcoord/internal/ramses"
)

// MergeSchemas decides which schema to hand the gateway client.
//
// If the declared schema is a subset of the cached one, the cached schema
// is trusted as-is (it is the declared schema plus everything the gateway
// learned since). Otherwise the two are merged with declared values
// winning on conflict, provided they share structure to merge; two
// schemas with no top-level keys in common have no valid superset
// relation and the result is nil, telling the caller to fall back to the
// declared schema alone.
func MergeSchemas(declared, cached ramses.Schema) ramses.Schema {
	if len(cached) == 0 {
		return declared.DeepCopy()
	}
	if isSubset(declared, cached) {
		return cached.DeepCopy()
	}
	if !sharesTopLevelKey(declared, cached) {
		return nil
	}

	merged := mergeMaps(declared, cached)
	if !isSubset(declared, merged) {
		return nil
	}
	return merged
}

// sharesTopLevelKey reports whether the two schemas overlap at all.
func sharesTopLevelKey(a, b ramses.Schema) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// isSubset reports whether every key/value pair in a is present in b.
// Nested maps recurse; everything else compares by equality.
func isSubset(a, b map[string]any) bool {
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !valueSubset(av, bv) {
			return false
		}
	}
	return true
}

func valueSubset(av, bv any) bool {
	am, aIsMap := asMap(av)
	bm, bIsMap := asMap(bv)
	if aIsMap && bIsMap {
		return isSubset(am, bm)
	}
	if aIsMap != bIsMap {
		return false
	}
	return fmt.Sprintf("%v", av) == fmt.Sprintf("%v", bv)
}

// mergeMaps deep-merges b into a copy of a, with a winning on conflicts.
func mergeMaps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range b {
		out[k] = ramses.CopyValue(v)
	}
	for k, av := range a {
		if bv, ok := out[k]; ok {
			am, aIsMap := asMap(av)
			bm, bIsMap := asMap(bv)
			if aIsMap && bIsMap {
				out[k] = mergeMaps(am, bm)
				continue
			}
		}
		out[k] = ramses.CopyValue(av)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case ramses.Schema:
		return m, true
	}
	return nil, false
}

// allowed keys inside a controller subtree.
var controllerSubtreeKeys = map[string]bool{
	"system": true,
	"zones":  true,
}

// IsMinimal reports whether a declared schema carries only information
// that cannot be derived from device self-reporting: reserved top-level
// keys and controller subtrees with no foreign sensor references. The
// check is advisory; a non-minimal schema is logged, never rejected.
func IsMinimal(schema ramses.Schema) (bool, string) {
	for key, value := range schema {
		if key == ramses.SchemaKeyBlockList || key == ramses.SchemaKeyKnownList {
			continue
		}

		ctlID, err := ramses.ParseDeviceID(key)
		if err != nil {
			return false, fmt.Sprintf("unexpected top-level key %q", key)
		}

		subtree, ok := asMap(value)
		if !ok {
			return false, fmt.Sprintf("controller %s subtree is not a mapping", ctlID)
		}
		if ok, reason := controllerSubtreeMinimal(ctlID, subtree); !ok {
			return false, reason
		}
	}
	return true, ""
}

func controllerSubtreeMinimal(ctlID ramses.DeviceID, subtree map[string]any) (bool, string) {
	for key, value := range subtree {
		if !controllerSubtreeKeys[key] {
			return false, fmt.Sprintf("controller %s has unexpected key %q", ctlID, key)
		}
		if key != "zones" {
			continue
		}

		zones, ok := asMap(value)
		if !ok {
			continue
		}
		for idx, zv := range zones {
			zone, ok := asMap(zv)
			if !ok {
				continue
			}
			sensor, ok := zone["sensor"].(string)
			if !ok || sensor == "" {
				continue
			}
			if id, err := ramses.ParseDeviceID(sensor); err != nil || id != ctlID {
				return false, fmt.Sprintf(
					"controller %s zone %s references foreign sensor %q", ctlID, idx, sensor)
			}
		}
	}
	return true, ""
}
