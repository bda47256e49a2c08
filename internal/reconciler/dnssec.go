package reconciler

import (
	"strings"

	"github.com/kreigan/powerdns-zone-reconciler/internal/config"
	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// planDnssec decides secure/unsecure transitions and NSEC3 parameter
// updates for a zone already known to exist. Slave zones never reach this:
// their DNSSEC state is owned by their primaries.
func planDnssec(zone string, spec *config.Zone, state *pdns.DnssecState) []Action {
	var actions []Action

	if !spec.DNSSEC {
		if state.Secured {
			actions = append(actions, Action{Type: ActionDisableDnssec, Zone: zone})
		}
		return actions
	}

	if !state.Secured {
		actions = append(actions, Action{Type: ActionSecureZone, Zone: zone})
	}

	if spec.NSEC3 == nil || nsec3StateMatches(spec.NSEC3, state) {
		return actions
	}

	// A parameter change invalidates the zone's ordering data, so a
	// rectify always follows.
	actions = append(actions,
		Action{
			Type: ActionSetNSEC3,
			Zone: zone,
			NSEC3: &pdns.NSEC3{
				Iterations: spec.NSEC3.Iterations,
				Salt:       spec.NSEC3.Salt,
				Narrow:     spec.NSEC3.Narrow,
			},
		},
		Action{Type: ActionRectifyZone, Zone: zone},
	)
	return actions
}

func nsec3StateMatches(desired *config.NSEC3, state *pdns.DnssecState) bool {
	if state.NSEC3 == nil {
		return false
	}
	return state.NSEC3.Algorithm == pdns.NSEC3Algorithm &&
		state.NSEC3.Iterations == desired.Iterations &&
		strings.EqualFold(state.NSEC3.Salt, desired.Salt) &&
		state.Narrow == desired.Narrow
}
