package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/crosswordsmith/rebusgen/pkg/puzzle"
)

func TestMessageTypesDistinct(t *testing.T) {
	types := []MessageType{MsgAttemptFailed, MsgJobSucceeded, MsgJobFailed, MsgError}

	seen := make(map[MessageType]bool)
	for _, msgType := range types {
		if seen[msgType] {
			t.Errorf("duplicate message type: %s", msgType)
		}
		seen[msgType] = true
	}
}

func TestMessageSerialization(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "attempt failed message",
			msg: Message{
				Type:    MsgAttemptFailed,
				Payload: json.RawMessage(`{"attempt":2,"kind":"FILL_UNSAT"}`),
			},
		},
		{
			name: "job succeeded message",
			msg: Message{
				Type:    MsgJobSucceeded,
				Payload: json.RawMessage(`{"puzzleId":"abc-123"}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}

			var decoded Message
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			if decoded.Type != tt.msg.Type {
				t.Errorf("Type = %s, want %s", decoded.Type, tt.msg.Type)
			}
		})
	}
}

func TestAttemptFailedPayloadSerialization(t *testing.T) {
	payload := AttemptFailedPayload{Attempt: 3, Kind: "LAYOUT_INFEASIBLE"}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded AttemptFailedPayload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Attempt != payload.Attempt || decoded.Kind != payload.Kind {
		t.Errorf("decoded = %+v, want %+v", decoded, payload)
	}
}

func TestHubPublishProgressDeliversToSubscriber(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := &Client{Send: make(chan []byte, 4), JobID: "job-1"}
	hub.Register(client)

	// Register returns once Run has taken the client off the register
	// channel, which can be before Run has added it to h.clients, so
	// wait for the subscription to appear before publishing. The
	// buffered Send channel then holds the message for the select below.
	for i := 0; i < 100; i++ {
		hub.mutex.RLock()
		n := len(hub.clients["job-1"])
		hub.mutex.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		hub.PublishProgress("job-1", puzzle.AttemptRecord{Attempt: 1, Kind: puzzle.KindFillUnsat})
		close(done)
	}()
	<-done

	select {
	case msg := <-client.Send:
		var decoded Message
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}
		if decoded.Type != MsgAttemptFailed {
			t.Errorf("Type = %s, want %s", decoded.Type, MsgAttemptFailed)
		}
	default:
		t.Error("expected a queued message for the subscribed client")
	}
}

func TestHubPublishProgressIgnoresOtherJobs(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := &Client{Send: make(chan []byte, 4), JobID: "job-1"}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.PublishProgress("job-2", puzzle.AttemptRecord{Attempt: 1, Kind: puzzle.KindFillUnsat})
		close(done)
	}()
	<-done

	select {
	case <-client.Send:
		t.Error("expected no message for a client subscribed to a different job")
	default:
	}
}
