package pdns

import "testing"

func TestParseNSEC3Param(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *NSEC3Param
		wantErr bool
	}{
		{name: "empty means nsec only", input: "", want: nil},
		{name: "whitespace only", input: "   ", want: nil},
		{
			name:  "full form",
			input: "1 0 5 aabbccdd",
			want:  &NSEC3Param{Algorithm: 1, Flags: 0, Iterations: 5, Salt: "aabbccdd"},
		},
		{
			name:  "dash salt means empty",
			input: "1 0 5 -",
			want:  &NSEC3Param{Algorithm: 1, Iterations: 5},
		},
		{
			name:  "three fields",
			input: "1 0 5",
			want:  &NSEC3Param{Algorithm: 1, Iterations: 5},
		},
		{name: "too few fields", input: "1 0", wantErr: true},
		{name: "too many fields", input: "1 0 5 ab cd", wantErr: true},
		{name: "non-numeric iterations", input: "1 0 x ab", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNSEC3Param(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error for %q, got: %v", tt.input, err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Expected %+v, got %+v", tt.want, got)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestFormatNSEC3Param(t *testing.T) {
	if got := FormatNSEC3Param(NSEC3{Iterations: 5, Salt: "aabbccdd"}); got != "1 0 5 aabbccdd" {
		t.Errorf("Expected \"1 0 5 aabbccdd\", got %q", got)
	}
	if got := FormatNSEC3Param(NSEC3{Iterations: 0}); got != "1 0 0 -" {
		t.Errorf("Expected empty salt to render as dash, got %q", got)
	}
}

func TestIsReservedMetadataKind(t *testing.T) {
	for _, kind := range []string{"SOA-EDIT", "SOA-EDIT-API", "PRESIGNED", "NSEC3PARAM", "NSEC3NARROW", "API-RECTIFY", "nsec3param", "soa-edit-api"} {
		if !IsReservedMetadataKind(kind) {
			t.Errorf("Expected %q to be reserved", kind)
		}
	}
	for _, kind := range []string{"ALLOW-AXFR-FROM", "IXFR", "TSIG-ALLOW-AXFR", ""} {
		if IsReservedMetadataKind(kind) {
			t.Errorf("Expected %q not to be reserved", kind)
		}
	}
}

func TestZoneDnssecState(t *testing.T) {
	zone := &Zone{DNSSEC: true, NSEC3Param: "1 0 5 aabbccdd", NSEC3Narrow: true}
	state, err := zone.DnssecState()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !state.Secured || !state.Narrow || state.NSEC3 == nil {
		t.Errorf("State not derived: %+v", state)
	}

	zone = &Zone{}
	state, err = zone.DnssecState()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state.Secured || state.NSEC3 != nil {
		t.Errorf("Expected unsecured nsec-only state, got %+v", state)
	}

	zone = &Zone{NSEC3Param: "garbage"}
	if _, err := zone.DnssecState(); err == nil {
		t.Error("Expected error for malformed nsec3param")
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Method: "PUT", Path: "/zones/example.com.", StatusCode: 422, Message: "Domain is invalid"}
	want := "PUT /zones/example.com.: status 422: Domain is invalid"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	err = &StatusError{Method: "GET", Path: "/zones", StatusCode: 500}
	if err.Error() != "GET /zones: status 500" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}
