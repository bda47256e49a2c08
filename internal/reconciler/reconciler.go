// Package reconciler converges declared DNS state against a live PowerDNS
// server: zone attributes, DNSSEC/NSEC3 state, zone metadata and record
// sets. It computes a minimal plan of mutations per zone and applies it
// through the ZoneStore interface, so that re-running an unchanged
// configuration issues zero operations.
package reconciler

import (
	"context"
	"fmt"

	"github.com/kreigan/powerdns-zone-reconciler/internal/config"
	"github.com/kreigan/powerdns-zone-reconciler/internal/logger"
	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// ZoneStore is the client surface the reconciler mutates DNS state through.
// The PowerDNS server behind it remains the sole source of truth; the
// reconciler holds no state between runs.
type ZoneStore interface {
	GetZone(ctx context.Context, name string) (*pdns.Zone, error)
	CreateZone(ctx context.Context, zone *pdns.Zone) (*pdns.Zone, error)
	UpdateZone(ctx context.Context, name string, update *pdns.ZoneUpdate) error
	DeleteZone(ctx context.Context, name string) error
	ListZones(ctx context.Context) ([]pdns.Zone, error)
	GetMetadata(ctx context.Context, name string) (map[string][]string, error)
	UpsertMetadata(ctx context.Context, name, kind string, values []string) error
	DeleteMetadata(ctx context.Context, name, kind string) error
	PatchRRsets(ctx context.Context, name string, patch *pdns.RRsetPatch) error
	QueryDnssecState(ctx context.Context, name string) (*pdns.DnssecState, error)
	SecureZone(ctx context.Context, name string) error
	DisableDnssec(ctx context.Context, name string) error
	SetNSEC3(ctx context.Context, name string, params pdns.NSEC3) error
	RectifyZone(ctx context.Context, name string) error
}

// Reconciler converges desired zone configuration against a zone store.
type Reconciler struct {
	store ZoneStore
	log   *logger.Logger
}

// New creates a new reconciler.
func New(store ZoneStore, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Options contains options for a reconciliation run.
type Options struct {
	// DryRun computes and logs plans without issuing any mutation.
	DryRun bool
}

// Result contains the outcome of a reconciliation run.
type Result struct {
	// Changed reports whether at least one mutating action was issued
	// (or, in dry-run mode, would have been issued).
	Changed bool

	ZonesCreated    int
	ZonesUpdated    int
	ZonesDeleted    int
	DnssecChanges   int
	MetadataChanges int
	RRsetsReplaced  int
	RRsetsDeleted   int

	// Errors holds zone-scoped failures; a failing zone never prevents
	// the remaining zones from being attempted.
	Errors []error
}

// Run reconciles every configured zone in deterministic order, then
// garbage-collects unknown zones when enabled. Within one zone processing
// is fail-fast and strictly ordered: zone state, DNSSEC, metadata, record
// sets. There is no rollback; recovery relies on re-running.
func (r *Reconciler) Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}

	result := &Result{}
	for _, name := range cfg.ZoneNames() {
		zone := cfg.Zones[name]
		zone.Normalize()

		r.log.Info("Processing zone: %s", name)
		desiredMetadata := zone.MergedMetadata(cfg.DefaultMetadata)
		if err := r.reconcileZone(ctx, name, &zone, desiredMetadata, opts, result); err != nil {
			r.log.Error("%v", err)
			result.Errors = append(result.Errors, err)
		}
	}

	if cfg.DeleteUnknownZones {
		if err := r.cleanupZones(ctx, cfg, opts, result); err != nil {
			r.log.Error("%v", err)
			result.Errors = append(result.Errors, err)
		}
	}

	return result, nil
}

// reconcileZone runs the per-zone stages in their fixed order. The zone
// must exist before anything else can act on it, so zone state goes first.
func (r *Reconciler) reconcileZone(
	ctx context.Context,
	name string,
	spec *config.Zone,
	desiredMetadata map[string][]string,
	opts Options,
	result *Result,
) error {
	if err := validateSpec(name, spec); err != nil {
		return err
	}

	live, err := r.store.GetZone(ctx, name)
	if err != nil {
		return &StoreError{Zone: name, Op: "get-zone", Err: err}
	}
	wasAbsent := live == nil

	created, err := r.applyActions(ctx, planZoneState(name, spec, live), opts, result)
	if err != nil {
		return err
	}
	if created != nil {
		live = created
	}

	if spec.Kind != pdns.KindSlave {
		state, err := r.dnssecState(ctx, name, live, wasAbsent, opts)
		if err != nil {
			return err
		}
		if _, err := r.applyActions(ctx, planDnssec(name, spec, state), opts, result); err != nil {
			return err
		}
	}

	liveMetadata, err := r.liveMetadata(ctx, name, wasAbsent, opts)
	if err != nil {
		return err
	}
	if _, err := r.applyActions(ctx, planMetadata(name, desiredMetadata, liveMetadata), opts, result); err != nil {
		return err
	}

	if spec.Kind != pdns.KindSlave {
		var liveRRsets []pdns.RRset
		if live != nil {
			liveRRsets = live.RRsets
		}
		actions, err := planRRsets(name, spec, liveRRsets)
		if err != nil {
			return err
		}
		if _, err := r.applyActions(ctx, actions, opts, result); err != nil {
			return err
		}
	}

	return nil
}

// dnssecState reads the zone's live DNSSEC state. In dry-run mode a zone
// that does not exist yet is judged by its planned create payload, so the
// plan output matches what a real run would do after the create.
func (r *Reconciler) dnssecState(ctx context.Context, name string, live *pdns.Zone, wasAbsent bool, opts Options) (*pdns.DnssecState, error) {
	if opts.DryRun && wasAbsent {
		state, err := live.DnssecState()
		if err != nil {
			return nil, &ValidationError{Zone: name, Reason: err.Error()}
		}
		return state, nil
	}
	state, err := r.store.QueryDnssecState(ctx, name)
	if err != nil {
		return nil, &StoreError{Zone: name, Op: "query-dnssec-state", Err: err}
	}
	return state, nil
}

func (r *Reconciler) liveMetadata(ctx context.Context, name string, wasAbsent bool, opts Options) (map[string][]string, error) {
	if opts.DryRun && wasAbsent {
		return map[string][]string{}, nil
	}
	metadata, err := r.store.GetMetadata(ctx, name)
	if err != nil {
		return nil, &StoreError{Zone: name, Op: "get-metadata", Err: err}
	}
	return metadata, nil
}

// applyActions executes one stage's plan in order. It returns the created
// zone when the plan contained a create, so later stages can diff against
// the bootstrap state the server reports. The failing action is wrapped in
// a StoreError and aborts the stage; actions already applied stay applied.
func (r *Reconciler) applyActions(ctx context.Context, actions []Action, opts Options, result *Result) (*pdns.Zone, error) {
	var created *pdns.Zone

	for i := range actions {
		action := &actions[i]
		r.log.Info("  %s %s", action.symbol(), action.describe())
		r.logActionDetail(action)

		if opts.DryRun {
			if action.Type == ActionCreateZone {
				synthetic := *action.Create
				synthetic.RRsets = nil
				created = &synthetic
			}
			r.countAction(action, result)
			continue
		}

		if err := r.execute(ctx, action, &created); err != nil {
			return created, &StoreError{Zone: action.Zone, Op: action.Type.String(), Err: err}
		}
		r.countAction(action, result)
	}

	return created, nil
}

func (r *Reconciler) execute(ctx context.Context, action *Action, created **pdns.Zone) error {
	switch action.Type {
	case ActionCreateZone:
		zone, err := r.store.CreateZone(ctx, action.Create)
		if err != nil {
			return err
		}
		*created = zone
		return nil
	case ActionUpdateZone:
		return r.store.UpdateZone(ctx, action.Zone, action.Update)
	case ActionDeleteZone:
		return r.store.DeleteZone(ctx, action.Zone)
	case ActionSecureZone:
		return r.store.SecureZone(ctx, action.Zone)
	case ActionDisableDnssec:
		return r.store.DisableDnssec(ctx, action.Zone)
	case ActionSetNSEC3:
		return r.store.SetNSEC3(ctx, action.Zone, *action.NSEC3)
	case ActionRectifyZone:
		return r.store.RectifyZone(ctx, action.Zone)
	case ActionUpsertMetadata:
		return r.store.UpsertMetadata(ctx, action.Zone, action.MetadataKind, action.MetadataValues)
	case ActionDeleteMetadata:
		return r.store.DeleteMetadata(ctx, action.Zone, action.MetadataKind)
	case ActionPatchRRsets:
		return r.store.PatchRRsets(ctx, action.Zone, action.Patch)
	default:
		return fmt.Errorf("unknown action type %d", int(action.Type))
	}
}

func (r *Reconciler) countAction(action *Action, result *Result) {
	result.Changed = true
	switch action.Type {
	case ActionCreateZone:
		result.ZonesCreated++
	case ActionUpdateZone:
		result.ZonesUpdated++
	case ActionDeleteZone:
		result.ZonesDeleted++
	case ActionSecureZone, ActionDisableDnssec, ActionSetNSEC3, ActionRectifyZone:
		result.DnssecChanges++
	case ActionUpsertMetadata, ActionDeleteMetadata:
		result.MetadataChanges++
	case ActionPatchRRsets:
		for _, entry := range action.Patch.RRsets {
			if entry.ChangeType == pdns.ChangeDelete {
				result.RRsetsDeleted++
			} else {
				result.RRsetsReplaced++
			}
		}
	}
}

// logActionDetail renders RRset patch entries record by record.
func (r *Reconciler) logActionDetail(action *Action) {
	if action.Type != ActionPatchRRsets {
		return
	}
	for _, entry := range action.Patch.RRsets {
		if entry.ChangeType == pdns.ChangeDelete {
			r.log.Diff("-", "%s %s", entry.Name, entry.Type)
			continue
		}
		for _, record := range entry.Records {
			r.log.Diff("~", "%s %d %s %s", entry.Name, entry.TTL, entry.Type, record.Content)
		}
	}
}
