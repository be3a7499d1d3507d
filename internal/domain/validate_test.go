package domain

import "testing"

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		wantErr  bool
	}{
		{"alice", false},
		{"bob123", false},
		{"ab", true},
		{"Alice", true}, // callers must normalize first
		{"alice!", true},
		{"al ice", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateUsername(tt.username)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateUsername(%q) = %v, wantErr %v", tt.username, err, tt.wantErr)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"user@example.com", false},
		{"a@b.co", false},
		{"userexample.com", true},
		{"user@", true},
		{"@example.com", true},
		{"user@@example.com", true},
		{"user@nodot", true},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MyBrand", "mybrand.com"},
		{"mybrand.com", "mybrand.com"},
		{"  spaced  ", "spaced.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
	}{
		{"mybrand.com", false},
		{"my-brand.com", false},
		{"foo.io.com", false},
		{"", true},
		{".com", true},
		{"-bad.com", true},
		{"bad-.com", true},
		{"under_score.com", true},
	}
	for _, tt := range tests {
		err := ValidateDomain(tt.domain)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDomain(%q) = %v, wantErr %v", tt.domain, err, tt.wantErr)
		}
	}
}

func TestPackageCatalog(t *testing.T) {
	promo := PackageCatalog(true, 2000)
	for _, p := range promo {
		if p.PriceCents != 2000 {
			t.Errorf("promo price for %s = %d, want 2000", p.ID, p.PriceCents)
		}
		if !p.PromoActive {
			t.Errorf("promo flag missing on %s", p.ID)
		}
	}

	regular := PackageCatalog(false, 2000)
	if pkg, ok := FindPackage(regular, TierEmpire); !ok || pkg.PriceCents != 49900 {
		t.Fatalf("empire regular price = %+v", pkg)
	}
	if _, ok := FindPackage(regular, "nonsense"); ok {
		t.Fatal("unknown package id must not resolve")
	}
}
