// Package pdns implements a client for the PowerDNS Authoritative Server
// HTTP API (version 1). It is the only place that knows about the wire
// representation of zones, record sets, metadata and NSEC3 parameters.
package pdns

import (
	"fmt"
	"strconv"
	"strings"
)

// Zone kinds understood by the PowerDNS API.
const (
	KindMaster = "Master"
	KindSlave  = "Slave"
	KindNative = "Native"
)

// Zone represents a PowerDNS zone for API requests/responses.
// See: https://doc.powerdns.com/authoritative/http-api/zone.html
type Zone struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Masters     []string `json:"masters,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
	SOAEdit     string   `json:"soa_edit,omitempty"`
	SOAEditAPI  string   `json:"soa_edit_api,omitempty"`
	DNSSEC      bool     `json:"dnssec,omitempty"`
	Presigned   bool     `json:"presigned,omitempty"`
	APIRectify  bool     `json:"api_rectify,omitempty"`
	NSEC3Param  string   `json:"nsec3param,omitempty"`
	NSEC3Narrow bool     `json:"nsec3narrow,omitempty"`
	RRsets      []RRset  `json:"rrsets,omitempty"`
}

// ZoneUpdate is the request body for PUT /zones/{zone_id}. Pointer fields
// are omitted entirely when nil, so a single update type serves both the
// full attribute rewrite and the narrow DNSSEC toggles.
type ZoneUpdate struct {
	Kind        string   `json:"kind,omitempty"`
	Masters     []string `json:"masters,omitempty"`
	SOAEdit     *string  `json:"soa_edit,omitempty"`
	SOAEditAPI  *string  `json:"soa_edit_api,omitempty"`
	DNSSEC      *bool    `json:"dnssec,omitempty"`
	Presigned   *bool    `json:"presigned,omitempty"`
	APIRectify  *bool    `json:"api_rectify,omitempty"`
	NSEC3Param  *string  `json:"nsec3param,omitempty"`
	NSEC3Narrow *bool    `json:"nsec3narrow,omitempty"`
}

// RRset represents a Resource Record Set (all records with the same name and type).
// See: https://doc.powerdns.com/authoritative/http-api/zone.html
type RRset struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	ChangeType string   `json:"changetype,omitempty"`
	Records    []Record `json:"records,omitempty"`
	TTL        uint32   `json:"ttl,omitempty"`
}

// Changetypes for RRset patches.
const (
	ChangeReplace = "REPLACE"
	ChangeDelete  = "DELETE"
)

// Record represents a single DNS record.
type Record struct {
	// Content is the content of this record
	Content string `json:"content"`
	// Disabled indicates whether this record is disabled
	Disabled bool `json:"disabled"`
	// SetPTR asks the server to write a companion PTR record in the
	// matching reverse zone. Only meaningful inside a REPLACE patch entry.
	SetPTR bool `json:"set-ptr,omitempty"`
}

// RRsetPatch represents a PATCH request body for modifying zone RRsets.
type RRsetPatch struct {
	RRsets []RRset `json:"rrsets"`
}

// Metadata is one metadata item as returned by GET /zones/{zone_id}/metadata.
type Metadata struct {
	Kind     string   `json:"kind"`
	Metadata []string `json:"metadata"`
}

// reservedMetadataKinds are metadata kinds whose values are derived from
// zone attributes (SOA-EDIT policies, DNSSEC flags, NSEC3 parameters) and
// must never be written through the generic metadata surface.
var reservedMetadataKinds = map[string]struct{}{
	"API-RECTIFY":  {},
	"NSEC3NARROW":  {},
	"NSEC3PARAM":   {},
	"PRESIGNED":    {},
	"SOA-EDIT":     {},
	"SOA-EDIT-API": {},
}

// IsReservedMetadataKind reports whether a metadata kind is owned by the
// zone attribute handling and excluded from generic metadata management.
func IsReservedMetadataKind(kind string) bool {
	_, ok := reservedMetadataKinds[strings.ToUpper(kind)]
	return ok
}

// DnssecState is the DNSSEC-related slice of a zone's live state.
type DnssecState struct {
	Secured bool
	// NSEC3 holds the zone's NSEC3 parameters, nil for NSEC-only zones.
	NSEC3  *NSEC3Param
	Narrow bool
}

// NSEC3 is the operator-controlled subset of a zone's NSEC3 configuration.
type NSEC3 struct {
	Iterations int
	Salt       string
	Narrow     bool
}

// NSEC3Param mirrors the NSEC3PARAM presentation format
// "algorithm flags iterations salt".
type NSEC3Param struct {
	Algorithm  int
	Flags      int
	Iterations int
	Salt       string
}

// NSEC3Algorithm is the only hash algorithm defined for NSEC3 (SHA-1).
const NSEC3Algorithm = 1

// DnssecState derives the DNSSEC-related state from a zone object.
func (z *Zone) DnssecState() (*DnssecState, error) {
	param, err := ParseNSEC3Param(z.NSEC3Param)
	if err != nil {
		return nil, err
	}
	return &DnssecState{
		Secured: z.DNSSEC,
		NSEC3:   param,
		Narrow:  z.NSEC3Narrow,
	}, nil
}

// ParseNSEC3Param parses the presentation format used by the nsec3param
// zone field. An empty string yields nil (NSEC-only). The "-" salt
// placeholder is normalized to an empty salt.
func ParseNSEC3Param(s string) (*NSEC3Param, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 3 && len(fields) != 4 {
		return nil, fmt.Errorf("malformed nsec3param %q", s)
	}

	algorithm, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("malformed nsec3param algorithm in %q", s)
	}
	flags, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("malformed nsec3param flags in %q", s)
	}
	iterations, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("malformed nsec3param iterations in %q", s)
	}

	salt := ""
	if len(fields) == 4 && fields[3] != "-" {
		salt = fields[3]
	}

	return &NSEC3Param{
		Algorithm:  algorithm,
		Flags:      flags,
		Iterations: iterations,
		Salt:       salt,
	}, nil
}

// FormatNSEC3Param renders NSEC3 parameters in the presentation format the
// API expects. The algorithm is fixed at 1 and flags at 0.
func FormatNSEC3Param(n NSEC3) string {
	salt := n.Salt
	if salt == "" {
		salt = "-"
	}
	return fmt.Sprintf("%d 0 %d %s", NSEC3Algorithm, n.Iterations, salt)
}

// APIError represents an error response body from the PowerDNS API.
type APIError struct {
	Error string `json:"error"`
}

// StatusError is returned for any non-success API response. It preserves
// the request and the HTTP status so callers can report exactly which
// operation a server rejected.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}
