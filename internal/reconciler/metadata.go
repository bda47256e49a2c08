package reconciler

import (
	"slices"
	"sort"

	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// planMetadata converges the desired metadata map against the live one:
// one upsert per differing or missing kind, one delete per live kind absent
// from the desired map. Reserved kinds are owned by the zone attribute
// handling and never touched here, regardless of their live value.
// Keys are independent; they are processed in sorted order so plans and
// logs stay deterministic.
func planMetadata(zone string, desired, live map[string][]string) []Action {
	var actions []Action

	for _, kind := range sortedKinds(desired) {
		if pdns.IsReservedMetadataKind(kind) {
			continue
		}
		if !slices.Equal(live[kind], desired[kind]) {
			actions = append(actions, Action{
				Type:           ActionUpsertMetadata,
				Zone:           zone,
				MetadataKind:   kind,
				MetadataValues: desired[kind],
			})
		}
	}

	for _, kind := range sortedKinds(live) {
		if pdns.IsReservedMetadataKind(kind) {
			continue
		}
		if _, ok := desired[kind]; !ok {
			actions = append(actions, Action{
				Type:         ActionDeleteMetadata,
				Zone:         zone,
				MetadataKind: kind,
			})
		}
	}

	return actions
}

func sortedKinds(metadata map[string][]string) []string {
	kinds := make([]string, 0, len(metadata))
	for kind := range metadata {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
