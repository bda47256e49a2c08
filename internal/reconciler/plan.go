package reconciler

import (
	"fmt"

	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// ActionType identifies one kind of zone store mutation.
type ActionType int

// Action types, in the order the reconciler may issue them for one zone.
const (
	ActionCreateZone ActionType = iota
	ActionUpdateZone
	ActionDeleteZone
	ActionSecureZone
	ActionDisableDnssec
	ActionSetNSEC3
	ActionRectifyZone
	ActionUpsertMetadata
	ActionDeleteMetadata
	ActionPatchRRsets
)

func (t ActionType) String() string {
	switch t {
	case ActionCreateZone:
		return "create-zone"
	case ActionUpdateZone:
		return "update-zone"
	case ActionDeleteZone:
		return "delete-zone"
	case ActionSecureZone:
		return "secure-zone"
	case ActionDisableDnssec:
		return "disable-dnssec"
	case ActionSetNSEC3:
		return "set-nsec3"
	case ActionRectifyZone:
		return "rectify-zone"
	case ActionUpsertMetadata:
		return "upsert-metadata"
	case ActionDeleteMetadata:
		return "delete-metadata"
	case ActionPatchRRsets:
		return "patch-rrsets"
	default:
		return fmt.Sprintf("action(%d)", int(t))
	}
}

// Action is one planned zone store mutation. Exactly the payload fields
// matching Type are set. Plans are ephemeral: computed per zone per run,
// applied in order, then discarded.
type Action struct {
	Type ActionType
	Zone string

	// Create is the zone payload for ActionCreateZone.
	Create *pdns.Zone
	// Update is the full desired attribute set for ActionUpdateZone.
	Update *pdns.ZoneUpdate
	// NSEC3 carries the parameters for ActionSetNSEC3.
	NSEC3 *pdns.NSEC3
	// MetadataKind and MetadataValues are set for the metadata actions;
	// values are nil for ActionDeleteMetadata.
	MetadataKind   string
	MetadataValues []string
	// Patch is the batched RRset change list for ActionPatchRRsets.
	Patch *pdns.RRsetPatch
}

// describe renders a one-line human description for plan output.
func (a *Action) describe() string {
	switch a.Type {
	case ActionCreateZone:
		return fmt.Sprintf("create zone %s (kind=%s)", a.Zone, a.Create.Kind)
	case ActionUpdateZone:
		return fmt.Sprintf("update attributes of zone %s", a.Zone)
	case ActionDeleteZone:
		return fmt.Sprintf("delete zone %s", a.Zone)
	case ActionSecureZone:
		return fmt.Sprintf("enable DNSSEC for zone %s", a.Zone)
	case ActionDisableDnssec:
		return fmt.Sprintf("disable DNSSEC for zone %s", a.Zone)
	case ActionSetNSEC3:
		return fmt.Sprintf("set NSEC3 parameters of zone %s (iterations=%d narrow=%t)",
			a.Zone, a.NSEC3.Iterations, a.NSEC3.Narrow)
	case ActionRectifyZone:
		return fmt.Sprintf("rectify zone %s", a.Zone)
	case ActionUpsertMetadata:
		return fmt.Sprintf("set metadata %s of zone %s to %v", a.MetadataKind, a.Zone, a.MetadataValues)
	case ActionDeleteMetadata:
		return fmt.Sprintf("delete metadata %s of zone %s", a.MetadataKind, a.Zone)
	case ActionPatchRRsets:
		return fmt.Sprintf("patch %d record set(s) in zone %s", len(a.Patch.RRsets), a.Zone)
	default:
		return a.Type.String()
	}
}

// symbol returns the diff marker used when logging the action.
func (a *Action) symbol() string {
	switch a.Type {
	case ActionCreateZone, ActionSecureZone:
		return "+"
	case ActionDeleteZone, ActionDisableDnssec, ActionDeleteMetadata:
		return "-"
	default:
		return "~"
	}
}
