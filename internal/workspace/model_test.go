package workspace

import (
	"testing"
	"time"
)

func TestEmailConfigValidate(t *testing.T) {
	valid := EmailConfig{Host: "smtp.example.com", Port: 587, Username: "ops", Password: "secret", FromEmail: "hello@clinic.com"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name string
		cfg  EmailConfig
		want error
	}{
		{"missing host", EmailConfig{Port: 587, FromEmail: "a@b.c"}, ErrMissingHost},
		{"zero port", EmailConfig{Host: "smtp.example.com", FromEmail: "a@b.c"}, ErrInvalidPort},
		{"huge port", EmailConfig{Host: "smtp.example.com", Port: 70000, FromEmail: "a@b.c"}, ErrInvalidPort},
		{"bad from", EmailConfig{Host: "smtp.example.com", Port: 25, FromEmail: "not-an-email"}, ErrInvalidFromEmail},
	}
	for _, tc := range cases {
		if err := tc.cfg.Validate(); err != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	var nilCfg *EmailConfig
	if err := nilCfg.Validate(); err != ErrNilConfig {
		t.Errorf("nil config: expected %v, got %v", ErrNilConfig, err)
	}
}

func TestSMSConfigValidate(t *testing.T) {
	valid := SMSConfig{AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550001111"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	missing := SMSConfig{FromNumber: "+15550001111"}
	if err := missing.Validate(); err != ErrMissingCredentials {
		t.Errorf("expected %v, got %v", ErrMissingCredentials, err)
	}
	badNumber := SMSConfig{AccountSID: "AC123", AuthToken: "tok", FromNumber: "5550001111"}
	if err := badNumber.Validate(); err != ErrInvalidFromNumber {
		t.Errorf("expected %v, got %v", ErrInvalidFromNumber, err)
	}
}

func TestCreateWorkspaceRequestValidate(t *testing.T) {
	req := CreateWorkspaceRequest{Slug: "river-dental", Name: "River Dental", Timezone: "America/Chicago"}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req = CreateWorkspaceRequest{Name: "River Dental"}
	if err := req.Validate(); err != ErrMissingSlug {
		t.Errorf("expected %v, got %v", ErrMissingSlug, err)
	}

	req = CreateWorkspaceRequest{Slug: "river dental", Name: "River Dental"}
	if err := req.Validate(); err != ErrInvalidSlug {
		t.Errorf("expected %v, got %v", ErrInvalidSlug, err)
	}

	req = CreateWorkspaceRequest{Slug: "river-dental", Name: "River Dental", Timezone: "Mars/Olympus"}
	if err := req.Validate(); err != ErrInvalidTimezone {
		t.Errorf("expected %v, got %v", ErrInvalidTimezone, err)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	ws := &Workspace{Timezone: "America/New_York"}
	if ws.Location().String() != "America/New_York" {
		t.Fatalf("expected workspace zone, got %s", ws.Location())
	}

	ws = &Workspace{Timezone: "Nowhere/Invalid"}
	if ws.Location() != time.UTC {
		t.Fatal("expected UTC fallback for invalid zone")
	}

	ws = &Workspace{}
	if ws.Location() != time.UTC {
		t.Fatal("expected UTC fallback for empty zone")
	}
}
