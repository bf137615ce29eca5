package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

type fakeSubmitter struct {
	commands chan pipeline.Command
	err      error
}

func (s *fakeSubmitter) Submit(cmd pipeline.Command) error {
	if s.err != nil {
		return s.err
	}
	s.commands <- cmd
	return nil
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	waitForClients(t, h, 1)
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", want, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
}

func TestHub_Present(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHub(WithMetrics(reg))
	conn := dialHub(t, h)

	if got := testutil.ToFloat64(h.clientsGauge); got != 1 {
		t.Errorf("Expected clients gauge 1, got %v", got)
	}

	e := &pipeline.Emission{
		Sequence: 3,
		Frame:    &spectrum.Frame{Frequencies: []float64{1e6, 2e6}, Power: []float64{-40, -20}},
		Peak:     &spectrum.PeakRecord{Index: 1, Frequency: 2e6, Power: -20},
	}
	if err := h.Present(context.Background(), e); err != nil {
		t.Fatalf("Present failed: %v", err)
	}

	var msg struct {
		Type string            `json:"type"`
		Data pipeline.Emission `json:"data"`
	}
	readMessage(t, conn, &msg)

	if msg.Type != messageFrame {
		t.Errorf("Expected %q message, got %q", messageFrame, msg.Type)
	}
	if msg.Data.Sequence != 3 || msg.Data.Peak == nil || msg.Data.Peak.Frequency != 2e6 {
		t.Errorf("Unexpected emission: %+v", msg.Data)
	}
}

func TestHub_Report(t *testing.T) {
	h := NewHub()
	conn := dialHub(t, h)

	h.Report(context.Background(), pipeline.Event{Kind: pipeline.EventAcquisitionFailed, Err: errors.New("no sweep")})

	var msg eventMessage
	readMessage(t, conn, &msg)

	if msg.Type != messageEvent || msg.Kind != string(pipeline.EventAcquisitionFailed) || msg.Error != "no sweep" {
		t.Errorf("Unexpected event message: %+v", msg)
	}
}

func TestHub_Commands(t *testing.T) {
	s := &fakeSubmitter{commands: make(chan pipeline.Command, 1)}
	h := NewHub()
	h.SetSubmitter(s)
	conn := dialHub(t, h)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"setCentre","frequency":433.92e6}`)); err != nil {
		t.Fatalf("Failed to write command: %v", err)
	}

	select {
	case cmd := <-s.commands:
		if c, ok := cmd.(pipeline.SetCentre); !ok || c.Frequency != 433.92e6 {
			t.Errorf("Unexpected command: %#v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Command was not submitted")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp"}`)); err != nil {
		t.Fatalf("Failed to write command: %v", err)
	}

	var msg eventMessage
	readMessage(t, conn, &msg)

	if msg.Type != messageError || !strings.Contains(msg.Error, "unknown command") {
		t.Errorf("Expected error reply, got %+v", msg)
	}
}

func TestHub_NoSubmitter(t *testing.T) {
	h := NewHub()
	conn := dialHub(t, h)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pause"}`)); err != nil {
		t.Fatalf("Failed to write command: %v", err)
	}

	var msg eventMessage
	readMessage(t, conn, &msg)

	if msg.Type != messageError {
		t.Errorf("Expected error reply, got %+v", msg)
	}
}

func TestHub_Disconnect(t *testing.T) {
	h := NewHub()
	conn := dialHub(t, h)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitForClients(t, h, 0)

	// Broadcasting with no clients is a no-op
	if err := h.Present(context.Background(), &pipeline.Emission{Frame: &spectrum.Frame{}}); err != nil {
		t.Errorf("Present failed: %v", err)
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	conn := dialHub(t, h)

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if h.Clients() != 0 {
		t.Errorf("Expected no clients after Close, got %d", h.Clients())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected going away close, got %v", err)
	}
}
