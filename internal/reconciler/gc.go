package reconciler

import (
	"context"
	"sort"

	"github.com/miekg/dns"

	"github.com/kreigan/powerdns-zone-reconciler/internal/config"
)

// cleanupZones deletes live zones absent from the desired set. Deletions
// are independent, but the first failure aborts the remaining ones; they
// are picked up by the next run. Changed is only reported for deletions
// that actually went through.
func (r *Reconciler) cleanupZones(ctx context.Context, cfg *config.Config, opts Options, result *Result) error {
	zones, err := r.store.ListZones(ctx)
	if err != nil {
		return &StoreError{Op: "list-zones", Err: err}
	}

	desired := make(map[string]bool, len(cfg.Zones))
	for name := range cfg.Zones {
		desired[config.CanonicalZoneName(name)] = true
	}

	var unknown []string
	for _, zone := range zones {
		if !desired[dns.Fqdn(zone.Name)] {
			unknown = append(unknown, zone.Name)
		}
	}
	sort.Strings(unknown)

	for _, name := range unknown {
		r.log.Warn("Deleting unknown zone: %s", name)
		if opts.DryRun {
			result.ZonesDeleted++
			result.Changed = true
			continue
		}
		if err := r.store.DeleteZone(ctx, name); err != nil {
			return &StoreError{Zone: name, Op: "delete-zone", Err: err}
		}
		result.ZonesDeleted++
		result.Changed = true
	}

	return nil
}
