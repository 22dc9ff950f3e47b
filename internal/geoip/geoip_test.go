package geoip

import (
	"testing"
)

func TestNew_EmptyPath(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("expected no error for empty path, got %v", err)
	}
	if country := r.Country("8.8.8.8"); country != "" {
		t.Errorf("expected empty country without database, got %q", country)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	r, err := New("/nonexistent/path.mmdb")
	if err != nil {
		t.Fatalf("expected no error for missing file (graceful fallback), got %v", err)
	}
	if country := r.Country("8.8.8.8"); country != "" {
		t.Errorf("expected empty country, got %q", country)
	}
}

func TestCountry_InvalidIP(t *testing.T) {
	r, _ := New("")
	if country := r.Country("not-an-ip"); country != "" {
		t.Errorf("expected empty country for invalid IP, got %q", country)
	}
}

func TestCountry_NilResolver(t *testing.T) {
	var r *Resolver
	if country := r.Country("8.8.8.8"); country != "" {
		t.Errorf("expected empty country for nil resolver, got %q", country)
	}
	if err := r.Close(); err != nil {
		t.Errorf("expected no error closing nil resolver, got %v", err)
	}
}
