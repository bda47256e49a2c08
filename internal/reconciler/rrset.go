package reconciler

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/kreigan/powerdns-zone-reconciler/internal/config"
	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// autoSerial is the sentinel serial value replaced with the live SOA serial
// before diffing, so that SOA-EDIT-API (or a human) owns serial bumps.
const autoSerial = "AUTO"

// soaSerialField is the position of the serial within SOA rdata.
const soaSerialField = 2

// fallbackSOASerial is substituted for AUTO when the zone has no live SOA.
const fallbackSOASerial = 1

type rrsetKey struct {
	Name string
	Type string
}

// planRRsets groups the zone's flat record declarations into record sets,
// diffs them against the live record sets, and emits at most one batched
// patch action: a REPLACE entry per changed or missing set, a DELETE entry
// per live set absent from the declarations.
func planRRsets(zone string, spec *config.Zone, live []pdns.RRset) ([]Action, error) {
	desired, err := desiredRRsets(zone, spec)
	if err != nil {
		return nil, err
	}

	liveByKey := indexRRsets(live)
	if err := substituteSOASerial(zone, desired, liveByKey); err != nil {
		return nil, err
	}

	var entries []pdns.RRset
	for _, key := range sortedRRsetKeys(desired) {
		want := desired[key]
		if have, ok := liveByKey[key]; ok && rrsetsEquivalent(want, have) {
			// Unchanged sets are omitted entirely; PTR-sync requests on
			// their records are dropped with them.
			continue
		}
		want.ChangeType = pdns.ChangeReplace
		entries = append(entries, want)
	}

	for _, key := range sortedRRsetKeys(liveByKey) {
		if _, ok := desired[key]; ok {
			continue
		}
		entries = append(entries, pdns.RRset{
			Name:       key.Name,
			Type:       key.Type,
			ChangeType: pdns.ChangeDelete,
		})
	}

	if len(entries) == 0 {
		return nil, nil
	}
	return []Action{{
		Type:  ActionPatchRRsets,
		Zone:  zone,
		Patch: &pdns.RRsetPatch{RRsets: entries},
	}}, nil
}

// desiredRRsets partitions record declarations by (owner name, type) and
// resolves each group's TTL.
func desiredRRsets(zone string, spec *config.Zone) (map[rrsetKey]pdns.RRset, error) {
	apex := config.CanonicalZoneName(zone)
	desired := make(map[rrsetKey]pdns.RRset)

	for name, byType := range spec.Records {
		owner := apex
		if name != "@" {
			owner = dns.Fqdn(name)
		}
		for recordType, items := range byType {
			key := rrsetKey{Name: owner, Type: strings.ToUpper(recordType)}
			if _, exists := desired[key]; exists {
				// Reachable when "@" and the spelled-out apex collide.
				return nil, &ValidationError{
					Zone:   zone,
					Reason: fmt.Sprintf("duplicate record set %s %s", key.Name, key.Type),
				}
			}
			rrset, err := buildRRset(zone, key, items, spec.DefaultTTL)
			if err != nil {
				return nil, err
			}
			desired[key] = rrset
		}
	}

	return desired, nil
}

func buildRRset(zone string, key rrsetKey, items []config.RecordItem, defaultTTL uint32) (pdns.RRset, error) {
	var records []pdns.Record
	var ttlOverride *uint32

	for _, item := range items {
		switch {
		case item.Content != "" && item.TTL != nil:
			return pdns.RRset{}, &ValidationError{
				Zone:   zone,
				Reason: fmt.Sprintf("record set %s %s: an item declares both content and a TTL override", key.Name, key.Type),
			}
		case item.TTL != nil:
			if ttlOverride != nil {
				return pdns.RRset{}, &ValidationError{
					Zone:   zone,
					Reason: fmt.Sprintf("record set %s %s: conflicting TTL overrides", key.Name, key.Type),
				}
			}
			ttlOverride = item.TTL
		case item.Content != "":
			records = append(records, pdns.Record{
				Content: item.Content,
				SetPTR:  item.SetPTR,
			})
		default:
			return pdns.RRset{}, &ValidationError{
				Zone:   zone,
				Reason: fmt.Sprintf("record set %s %s: an item declares neither content nor a TTL override", key.Name, key.Type),
			}
		}
	}

	ttl := defaultTTL
	if ttlOverride != nil {
		ttl = *ttlOverride
	}
	return pdns.RRset{
		Name:    key.Name,
		Type:    key.Type,
		TTL:     ttl,
		Records: records,
	}, nil
}

// substituteSOASerial replaces the AUTO serial sentinel in the desired apex
// SOA with the serial of the zone's live SOA, before the equality check.
// Re-running an unchanged declaration against an unmoved server therefore
// produces no diff, while any other edited SOA field still forces a replace.
func substituteSOASerial(zone string, desired, live map[rrsetKey]pdns.RRset) error {
	key := rrsetKey{Name: config.CanonicalZoneName(zone), Type: "SOA"}
	want, ok := desired[key]
	if !ok || len(want.Records) == 0 {
		return nil
	}

	fields := strings.Fields(want.Records[0].Content)
	if len(fields) != 7 {
		return &ValidationError{
			Zone:   zone,
			Reason: fmt.Sprintf("malformed SOA content %q", want.Records[0].Content),
		}
	}
	if fields[soaSerialField] != autoSerial {
		return nil
	}

	serial := uint32(fallbackSOASerial)
	if have, ok := live[key]; ok && len(have.Records) > 0 {
		if parsed, ok := parseSOASerial(key.Name, have.Records[0].Content); ok {
			serial = parsed
		}
	}

	fields[soaSerialField] = strconv.FormatUint(uint64(serial), 10)
	want.Records[0].Content = strings.Join(fields, " ")
	desired[key] = want
	return nil
}

func parseSOASerial(owner, content string) (uint32, bool) {
	rr, err := dns.NewRR(fmt.Sprintf("%s 3600 IN SOA %s", owner, content))
	if err != nil {
		return 0, false
	}
	soa, ok := rr.(*dns.SOA)
	if !ok {
		return 0, false
	}
	return soa.Serial, true
}

// rrsetsEquivalent compares the resolved TTL and the order-independent
// record content set. The set-ptr flag is a write-time side effect and not
// part of record identity.
func rrsetsEquivalent(want, have pdns.RRset) bool {
	if want.TTL != have.TTL {
		return false
	}
	if len(want.Records) != len(have.Records) {
		return false
	}
	return slices.Equal(contentSet(want.Records), contentSet(have.Records))
}

func contentSet(records []pdns.Record) []string {
	contents := make([]string, len(records))
	for i, r := range records {
		contents[i] = fmt.Sprintf("%s|%t", r.Content, r.Disabled)
	}
	sort.Strings(contents)
	return contents
}

func indexRRsets(rrsets []pdns.RRset) map[rrsetKey]pdns.RRset {
	indexed := make(map[rrsetKey]pdns.RRset, len(rrsets))
	for _, rrset := range rrsets {
		indexed[rrsetKey{Name: dns.Fqdn(rrset.Name), Type: strings.ToUpper(rrset.Type)}] = rrset
	}
	return indexed
}

func sortedRRsetKeys(rrsets map[rrsetKey]pdns.RRset) []rrsetKey {
	keys := make([]rrsetKey, 0, len(rrsets))
	for key := range rrsets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Type < keys[j].Type
	})
	return keys
}
