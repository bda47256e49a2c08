// Package config handles loading and validating the desired DNS state from
// YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"

	"github.com/kreigan/powerdns-zone-reconciler/internal/pdns"
)

// DefaultTTL is applied to record sets of zones that do not set defaultTTL.
const DefaultTTL = 3600

// Config represents the desired state for one PowerDNS server.
type Config struct {
	// DeleteUnknownZones enables removal of live zones absent from Zones.
	DeleteUnknownZones bool `yaml:"deleteUnknownZones,omitempty"`
	// DefaultMetadata is merged under every zone's metadata map.
	DefaultMetadata map[string][]string `yaml:"defaultMetadata,omitempty"`
	Zones           map[string]Zone     `yaml:"zones"`
}

// Zone represents the desired configuration of one zone.
type Zone struct {
	Kind       string              `yaml:"kind,omitempty"`
	SOAEdit    string              `yaml:"soaEdit,omitempty"`
	SOAEditAPI string              `yaml:"soaEditApi,omitempty"`
	DNSSEC     bool                `yaml:"dnssec,omitempty"`
	Presigned  bool                `yaml:"presigned,omitempty"`
	APIRectify bool                `yaml:"apiRectify,omitempty"`
	NSEC3      *NSEC3              `yaml:"nsec3,omitempty"`
	Masters    []string            `yaml:"masters,omitempty"`
	DefaultTTL uint32              `yaml:"defaultTTL,omitempty"`
	Metadata   map[string][]string `yaml:"metadata,omitempty"`
	// Records maps owner name -> record type -> record items.
	// Owner names are absolute; "@" stands for the zone apex.
	Records map[string]map[string][]RecordItem `yaml:"records,omitempty"`
}

// NSEC3 holds the operator-controlled NSEC3 parameters. The hash algorithm
// is fixed at 1 (SHA-1) and not configurable.
type NSEC3 struct {
	Iterations int    `yaml:"iterations"`
	Salt       string `yaml:"salt,omitempty"`
	Narrow     bool   `yaml:"narrow,omitempty"`
}

// RecordItem is one declared record. Exactly one of Content ("c") or TTL
// ("t") must be set; a "t" item overrides the TTL of its whole record set.
// SetPTR ("r") requests a companion PTR write and is only legal with "c".
type RecordItem struct {
	Content string  `yaml:"c,omitempty"`
	TTL     *uint32 `yaml:"t,omitempty"`
	SetPTR  bool    `yaml:"r,omitempty"`
}

// LoadFromFile loads configuration from a YAML file. Unknown keys are
// rejected so that typos in record items surface as errors.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty configuration file %s", path)
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// ValidationError holds all validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(
		"validation failed with %d error(s):\n  - %s",
		len(e.Errors),
		strings.Join(e.Errors, "\n  - "),
	)
}

// Add appends a formatted error message to the validation errors.
func (e *ValidationError) Add(format string, args ...interface{}) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the configuration and returns all errors at once.
func (c *Config) Validate() *ValidationError {
	errs := &ValidationError{}

	for kind := range c.DefaultMetadata {
		if pdns.IsReservedMetadataKind(kind) {
			errs.Add("defaultMetadata: %q is managed via zone attributes and cannot be set directly", kind)
		}
	}

	for zoneName, zone := range c.Zones {
		validateZone(zoneName, &zone, errs)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateZone(zoneName string, zone *Zone, errs *ValidationError) {
	switch zone.Kind {
	case pdns.KindMaster, pdns.KindNative, "":
		validatePrimaryZone(zoneName, zone, errs)
	case pdns.KindSlave:
		validateSlaveZone(zoneName, zone, errs)
	default:
		errs.Add("zone %q: invalid kind %q, must be one of: Master, Slave, Native", zoneName, zone.Kind)
		return
	}

	for kind := range zone.Metadata {
		if pdns.IsReservedMetadataKind(kind) {
			errs.Add("zone %q: metadata %q is managed via zone attributes and cannot be set directly", zoneName, kind)
		}
	}
}

func validatePrimaryZone(zoneName string, zone *Zone, errs *ValidationError) {
	if zone.SOAEdit == "" {
		errs.Add("zone %q: soaEdit is required for %s zones", zoneName, kindOrNative(zone.Kind))
	}
	if len(zone.Masters) > 0 {
		errs.Add("zone %q: masters is only valid for Slave zones", zoneName)
	}
	if zone.NSEC3 != nil && !zone.DNSSEC {
		errs.Add("zone %q: nsec3 requires dnssec: true", zoneName)
	}

	validateRecords(zoneName, zone, errs)

	if !hasApexSOA(zoneName, zone.Records) {
		errs.Add("zone %q: an SOA record for the zone apex is required", zoneName)
	}
}

func validateSlaveZone(zoneName string, zone *Zone, errs *ValidationError) {
	if len(zone.Masters) == 0 {
		errs.Add("zone %q: masters is required for Slave zones", zoneName)
	}
	for i, master := range zone.Masters {
		if master == "" {
			errs.Add("zone %q: masters[%d] cannot be empty", zoneName, i)
		}
	}

	// Slave zones replicate everything else from their primaries.
	if zone.SOAEdit != "" || zone.SOAEditAPI != "" {
		errs.Add("zone %q: soaEdit/soaEditApi are not valid for Slave zones", zoneName)
	}
	if zone.DNSSEC || zone.Presigned || zone.APIRectify || zone.NSEC3 != nil {
		errs.Add("zone %q: dnssec settings are not valid for Slave zones", zoneName)
	}
	if zone.DefaultTTL != 0 {
		errs.Add("zone %q: defaultTTL is not valid for Slave zones", zoneName)
	}
	if len(zone.Records) != 0 {
		errs.Add("zone %q: records are not valid for Slave zones", zoneName)
	}
}

func validateRecords(zoneName string, zone *Zone, errs *ValidationError) {
	for name, byType := range zone.Records {
		for recordType, items := range byType {
			groupID := fmt.Sprintf("zone %q, rrset %s/%s", zoneName, name, recordType)

			if recordType == "" {
				errs.Add("%s: record type is required", groupID)
			}
			if len(items) == 0 {
				errs.Add("%s: at least one record item is required", groupID)
			}

			ttlSeen := false
			contentSeen := false
			for i, item := range items {
				switch {
				case item.Content != "" && item.TTL != nil:
					errs.Add("%s, item[%d]: 'c' and 't' are mutually exclusive", groupID, i)
				case item.Content == "" && item.TTL == nil:
					errs.Add("%s, item[%d]: one of 'c' or 't' is required", groupID, i)
				case item.TTL != nil:
					if item.SetPTR {
						errs.Add("%s, item[%d]: 'r' is only valid together with 'c'", groupID, i)
					}
					if ttlSeen {
						errs.Add("%s: duplicate TTL override", groupID)
					}
					ttlSeen = true
				default:
					contentSeen = true
				}
			}

			if ttlSeen && !contentSeen {
				errs.Add("%s: a TTL override without any record content is meaningless", groupID)
			}
		}
	}
}

func hasApexSOA(zoneName string, records map[string]map[string][]RecordItem) bool {
	apex := dns.Fqdn(zoneName)
	for name, byType := range records {
		if _, ok := byType["SOA"]; !ok {
			continue
		}
		if name == "@" || dns.Fqdn(name) == apex {
			return true
		}
	}
	return false
}

func kindOrNative(kind string) string {
	if kind == "" {
		return pdns.KindNative
	}
	return kind
}

// Normalize applies defaults: missing kind becomes Native, soaEditApi falls
// back to soaEdit, and defaultTTL falls back to DefaultTTL. Slave zones only
// get the kind default.
func (z *Zone) Normalize() {
	if z.Kind == "" {
		z.Kind = pdns.KindNative
	}
	if z.Kind == pdns.KindSlave {
		return
	}
	if z.SOAEditAPI == "" {
		z.SOAEditAPI = z.SOAEdit
	}
	if z.DefaultTTL == 0 {
		z.DefaultTTL = DefaultTTL
	}
}

// MergedMetadata returns the zone's effective metadata map: defaults first,
// overridden by the per-zone map, with reserved kinds excluded.
func (z *Zone) MergedMetadata(defaults map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(defaults)+len(z.Metadata))
	for kind, values := range defaults {
		if !pdns.IsReservedMetadataKind(kind) {
			merged[kind] = values
		}
	}
	for kind, values := range z.Metadata {
		if !pdns.IsReservedMetadataKind(kind) {
			merged[kind] = values
		}
	}
	return merged
}

// ZoneNames returns the configured zone names in deterministic order.
func (c *Config) ZoneNames() []string {
	names := make([]string, 0, len(c.Zones))
	for name := range c.Zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalZoneName ensures a zone name ends with a dot.
func CanonicalZoneName(name string) string {
	return dns.Fqdn(name)
}
