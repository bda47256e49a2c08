package reconciler

import (
	"slices"
	"strings"

	"github.com/kreigan/powerdns-zone-reconciler/internal/config"
	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// validateSpec checks the kind-dependent mandatory fields before any
// mutating call is considered.
func validateSpec(zone string, spec *config.Zone) error {
	switch spec.Kind {
	case pdns.KindSlave:
		if len(spec.Masters) == 0 {
			return &ConfigError{Zone: zone, Reason: "masters is required for Slave zones"}
		}
	case pdns.KindMaster, pdns.KindNative:
		if spec.SOAEdit == "" {
			return &ConfigError{Zone: zone, Reason: "soaEdit is required for " + spec.Kind + " zones"}
		}
	default:
		return &ConfigError{Zone: zone, Reason: "invalid kind " + spec.Kind}
	}
	return nil
}

// planZoneState ensures the zone exists with the declared attributes:
// a single create when the zone is absent, a single full-attribute update
// when any live attribute differs, nothing otherwise.
func planZoneState(zone string, spec *config.Zone, live *pdns.Zone) []Action {
	if live == nil {
		return []Action{{Type: ActionCreateZone, Zone: zone, Create: createPayload(zone, spec)}}
	}
	if zoneAttributesMatch(spec, live) {
		return nil
	}
	return []Action{{Type: ActionUpdateZone, Zone: zone, Update: updatePayload(spec)}}
}

func createPayload(zone string, spec *config.Zone) *pdns.Zone {
	name := config.CanonicalZoneName(zone)
	if spec.Kind == pdns.KindSlave {
		return &pdns.Zone{
			Name:    name,
			Kind:    pdns.KindSlave,
			Masters: spec.Masters,
		}
	}

	payload := &pdns.Zone{
		Name: name,
		Kind: spec.Kind,
		// The API refuses to create a primary zone without a nameserver.
		// The apex serves as placeholder; the declared NS records replace
		// it in the same run's RRset patch.
		Nameservers: []string{name},
		SOAEdit:     spec.SOAEdit,
		SOAEditAPI:  spec.SOAEditAPI,
		DNSSEC:      spec.DNSSEC,
		Presigned:   spec.Presigned,
		APIRectify:  spec.APIRectify,
	}
	if spec.NSEC3 != nil {
		payload.NSEC3Param = pdns.FormatNSEC3Param(pdns.NSEC3{
			Iterations: spec.NSEC3.Iterations,
			Salt:       spec.NSEC3.Salt,
		})
		payload.NSEC3Narrow = spec.NSEC3.Narrow
	}
	return payload
}

func updatePayload(spec *config.Zone) *pdns.ZoneUpdate {
	if spec.Kind == pdns.KindSlave {
		return &pdns.ZoneUpdate{
			Kind:    pdns.KindSlave,
			Masters: spec.Masters,
		}
	}

	nsec3Param := ""
	nsec3Narrow := false
	if spec.NSEC3 != nil {
		nsec3Param = pdns.FormatNSEC3Param(pdns.NSEC3{
			Iterations: spec.NSEC3.Iterations,
			Salt:       spec.NSEC3.Salt,
		})
		nsec3Narrow = spec.NSEC3.Narrow
	}

	soaEdit := spec.SOAEdit
	soaEditAPI := spec.SOAEditAPI
	dnssec := spec.DNSSEC
	presigned := spec.Presigned
	apiRectify := spec.APIRectify
	return &pdns.ZoneUpdate{
		Kind:        spec.Kind,
		SOAEdit:     &soaEdit,
		SOAEditAPI:  &soaEditAPI,
		DNSSEC:      &dnssec,
		Presigned:   &presigned,
		APIRectify:  &apiRectify,
		NSEC3Param:  &nsec3Param,
		NSEC3Narrow: &nsec3Narrow,
	}
}

func zoneAttributesMatch(spec *config.Zone, live *pdns.Zone) bool {
	if live.Kind != spec.Kind {
		return false
	}
	if spec.Kind == pdns.KindSlave {
		// Master order matters to the server's transfer logic.
		return slices.Equal(live.Masters, spec.Masters)
	}
	if live.SOAEdit != spec.SOAEdit || live.SOAEditAPI != spec.SOAEditAPI {
		return false
	}
	if live.DNSSEC != spec.DNSSEC || live.Presigned != spec.Presigned || live.APIRectify != spec.APIRectify {
		return false
	}
	return nsec3AttributesMatch(spec.NSEC3, live)
}

func nsec3AttributesMatch(desired *config.NSEC3, live *pdns.Zone) bool {
	liveParam, err := pdns.ParseNSEC3Param(live.NSEC3Param)
	if err != nil {
		// An unparseable live value is rewritten rather than trusted.
		return false
	}
	if desired == nil {
		return liveParam == nil && !live.NSEC3Narrow
	}
	if liveParam == nil {
		return false
	}
	return liveParam.Algorithm == pdns.NSEC3Algorithm &&
		liveParam.Iterations == desired.Iterations &&
		strings.EqualFold(liveParam.Salt, desired.Salt) &&
		live.NSEC3Narrow == desired.Narrow
}
