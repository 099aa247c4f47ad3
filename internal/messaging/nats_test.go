package messaging

import "testing"

func TestSubjects(t *testing.T) {
	if got := PreviewSubject("u1"); got != "match.preview.u1" {
		t.Errorf("PreviewSubject = %q", got)
	}
	if got := ConnectionEventSubject("u2"); got != "connection.event.u2" {
		t.Errorf("ConnectionEventSubject = %q", got)
	}
}

func TestNewNATSClientUnreachable(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.MaxReconnects = 0
	if _, err := NewNATSClient(cfg); err == nil {
		t.Skip("a NATS server answered on 127.0.0.1:1")
	}
}

func TestNATSRequestReply(t *testing.T) {
	c, err := NewNATSClient(DefaultNATSConfig())
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}
	defer c.Close()

	if err := c.SubscribeMatchRequest(func(data []byte) []byte {
		return append([]byte("echo:"), data...)
	}); err != nil {
		t.Fatalf("SubscribeMatchRequest: %v", err)
	}

	reply, err := c.RequestMatch(t.Context(), []byte("ping"))
	if err != nil {
		t.Fatalf("RequestMatch: %v", err)
	}
	if string(reply) != "echo:ping" {
		t.Fatalf("reply = %q", reply)
	}

	if err := c.UnsubscribeMatchRequest(); err != nil {
		t.Fatalf("UnsubscribeMatchRequest: %v", err)
	}
	if err := c.UnsubscribeMatchRequest(); err == nil {
		t.Fatal("second UnsubscribeMatchRequest should fail")
	}
}
