package instance

import "testing"

func TestGetIDPrecedence(t *testing.T) {
	t.Setenv("REGPAY_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	if got := GetID(); got != "local" {
		t.Fatalf("expected local got %q", got)
	}

	t.Setenv("HOSTNAME", "pod-7")
	if got := GetID(); got != "pod-7" {
		t.Fatalf("expected hostname got %q", got)
	}

	t.Setenv("DYNO", "web.1")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected dyno got %q", got)
	}

	t.Setenv("REGPAY_INSTANCE_ID", " api-a ")
	if got := GetID(); got != "api-a" {
		t.Fatalf("expected explicit id got %q", got)
	}
}
