package pdns

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kreigan/powerdns-zone-reconciler/internal/logger"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, "test-key", logger.New(false))
	return client, server
}

func TestGetZone(t *testing.T) {
	var gotPath, gotKey string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		json.NewEncoder(w).Encode(Zone{
			Name:       "example.com.",
			Kind:       KindNative,
			SOAEdit:    "INCEPTION-INCREMENT",
			NSEC3Param: "1 0 5 aabbccdd",
		})
	})
	defer server.Close()

	zone, err := client.GetZone(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotPath != "/zones/example.com." {
		t.Errorf("Expected canonical zone path, got %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("Expected X-API-Key header, got %q", gotKey)
	}
	if zone == nil || zone.Name != "example.com." || zone.NSEC3Param != "1 0 5 aabbccdd" {
		t.Errorf("Zone not decoded: %+v", zone)
	}
}

func TestGetZone_NotFound(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	zone, err := client.GetZone(context.Background(), "missing.example")
	if err != nil {
		t.Fatalf("A missing zone is not an error, got: %v", err)
	}
	if zone != nil {
		t.Errorf("Expected nil zone, got %+v", zone)
	}
}

func TestGetZone_ServerError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(APIError{Error: "Domain is invalid"})
	})
	defer server.Close()

	_, err := client.GetZone(context.Background(), "bad..example")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got: %v", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", statusErr.StatusCode)
	}
	if statusErr.Message != "Domain is invalid" {
		t.Errorf("Expected API error message, got %q", statusErr.Message)
	}
}

func TestCreateZone(t *testing.T) {
	var gotBody Zone
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/zones" {
			t.Errorf("Expected POST /zones, got %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Zone{
			Name: gotBody.Name,
			Kind: gotBody.Kind,
			RRsets: []RRset{
				{Name: gotBody.Name, Type: "SOA", TTL: 3600},
			},
		})
	})
	defer server.Close()

	created, err := client.CreateZone(context.Background(), &Zone{
		Name:        "example.com.",
		Kind:        KindNative,
		Nameservers: []string{"example.com."},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotBody.Name != "example.com." || len(gotBody.Nameservers) != 1 {
		t.Errorf("Request body not sent: %+v", gotBody)
	}
	if created == nil || len(created.RRsets) != 1 {
		t.Errorf("Created zone not decoded: %+v", created)
	}
}

func TestUpdateZone_PartialBody(t *testing.T) {
	var raw map[string]interface{}
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	secured := true
	err := client.UpdateZone(context.Background(), "example.com", &ZoneUpdate{DNSSEC: &secured})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Nil pointer fields must stay out of the body so the server does not
	// reset attributes the update did not mean to touch.
	if v, ok := raw["dnssec"]; !ok || v != true {
		t.Errorf("Expected dnssec in body, got %v", raw)
	}
	if _, ok := raw["soa_edit"]; ok {
		t.Errorf("Unset fields must be omitted, got %v", raw)
	}
	if _, ok := raw["nsec3param"]; ok {
		t.Errorf("Unset fields must be omitted, got %v", raw)
	}
}

func TestPatchRRsets(t *testing.T) {
	var gotMethod string
	var gotPatch RRsetPatch
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotPatch)
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	patch := &RRsetPatch{RRsets: []RRset{
		{
			Name:       "www.example.com.",
			Type:       "A",
			TTL:        300,
			ChangeType: ChangeReplace,
			Records:    []Record{{Content: "192.0.2.10", SetPTR: true}},
		},
		{Name: "old.example.com.", Type: "TXT", ChangeType: ChangeDelete},
	}}

	if err := client.PatchRRsets(context.Background(), "example.com", patch); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("Expected PATCH, got %s", gotMethod)
	}
	if len(gotPatch.RRsets) != 2 {
		t.Fatalf("Expected 2 patch entries, got %d", len(gotPatch.RRsets))
	}
	if !gotPatch.RRsets[0].Records[0].SetPTR {
		t.Error("Expected set-ptr flag to survive serialization")
	}
	if gotPatch.RRsets[1].ChangeType != ChangeDelete {
		t.Errorf("Expected DELETE changetype, got %q", gotPatch.RRsets[1].ChangeType)
	}
}

func TestGetMetadata(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zones/example.com./metadata" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Metadata{
			{Kind: "ALLOW-AXFR-FROM", Metadata: []string{"AUTO-NS"}},
			{Kind: "SOA-EDIT-API", Metadata: []string{"DEFAULT"}},
		})
	})
	defer server.Close()

	metadata, err := client.GetMetadata(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(metadata) != 2 {
		t.Fatalf("Expected 2 kinds, got %d", len(metadata))
	}
	if metadata["ALLOW-AXFR-FROM"][0] != "AUTO-NS" {
		t.Errorf("Metadata not decoded: %v", metadata)
	}
}

func TestUpsertMetadata(t *testing.T) {
	var gotPath string
	var gotBody Metadata
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})
	defer server.Close()

	err := client.UpsertMetadata(context.Background(), "example.com", "IXFR", []string{"1"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotPath != "/zones/example.com./metadata/IXFR" {
		t.Errorf("Unexpected path %q", gotPath)
	}
	if gotBody.Kind != "IXFR" || len(gotBody.Metadata) != 1 || gotBody.Metadata[0] != "1" {
		t.Errorf("Body not sent: %+v", gotBody)
	}
}

func TestRectifyZone(t *testing.T) {
	var gotMethod, gotPath string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	if err := client.RectifyZone(context.Background(), "example.com"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/zones/example.com./rectify" {
		t.Errorf("Expected PUT /zones/example.com./rectify, got %s %s", gotMethod, gotPath)
	}
}

func TestQueryDnssecState(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Zone{
			Name:        "example.com.",
			DNSSEC:      true,
			NSEC3Param:  "1 0 5 aabbccdd",
			NSEC3Narrow: true,
		})
	})
	defer server.Close()

	state, err := client.QueryDnssecState(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !state.Secured || !state.Narrow {
		t.Errorf("State not derived: %+v", state)
	}
	if state.NSEC3 == nil || state.NSEC3.Iterations != 5 || state.NSEC3.Salt != "aabbccdd" {
		t.Errorf("NSEC3 parameters not parsed: %+v", state.NSEC3)
	}
}

func TestDeleteZone_ErrorStatus(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	err := client.DeleteZone(context.Background(), "example.com")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got: %v", err)
	}
	if statusErr.Method != http.MethodDelete {
		t.Errorf("Expected DELETE in error, got %q", statusErr.Method)
	}
}
