package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/regpay-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := map[string]struct {
		project string
		name    string
		want    string
	}{
		"bare id":        {project: "regpay-prod", name: "payment-status", want: "projects/regpay-prod/topics/payment-status"},
		"full name kept": {project: "other", name: "projects/p/topics/t", want: "projects/p/topics/t"},
		"trimmed":        {project: " regpay ", name: " events ", want: "projects/regpay/topics/events"},
		"empty name":     {project: "regpay", name: "  ", want: ""},
		"no project":     {project: "", name: "events", want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := TopicResourceName(tc.project, tc.name); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{PaymentsTopic: "events"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "regpay"}, config.PubSubConfig{}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.PaymentsPublisher() != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
