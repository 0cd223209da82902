package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hunter_trials/internal/domain"

	"github.com/gorilla/websocket"
)

type fakeSession struct {
	mu       sync.Mutex
	calls    []string
	snap     domain.Snapshot
	complete error
}

func (f *fakeSession) record(call string) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.snap, nil
}

func (f *fakeSession) Snapshot() domain.Snapshot { return f.snap }
func (f *fakeSession) Fail(m string) (domain.Snapshot, error) {
	return f.record("fail:" + m)
}
func (f *fakeSession) SuccessMessage(m string) (domain.Snapshot, error) {
	return f.record("success:" + m)
}
func (f *fakeSession) Complete() (domain.Snapshot, error) {
	f.record("complete")
	return f.snap, f.complete
}
func (f *fakeSession) SaveAnswer(t string) (domain.Snapshot, error) {
	return f.record("answer:" + t)
}
func (f *fakeSession) CloseFeedback() (domain.Snapshot, error)  { return f.record("close_feedback") }
func (f *fakeSession) CloseEducation() (domain.Snapshot, error) { return f.record("close_education") }

func (f *fakeSession) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func startServer(t *testing.T, hub *Hub, sess Session) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		go NewClient("s-1", conn, hub, sess).Run()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return env.Type, msg
}

func TestClientHandshakeAndPublish(t *testing.T) {
	hub := NewHub()
	sess := &fakeSession{snap: domain.Snapshot{SessionID: "s-1", Version: 3, TeamName: "Alpha"}}
	conn := startServer(t, hub, sess)

	if typ, _ := readType(t, conn); typ != MsgReady {
		t.Fatalf("first message = %s; want ready", typ)
	}
	typ, raw := readType(t, conn)
	if typ != MsgState {
		t.Fatalf("second message = %s; want state", typ)
	}
	var st StateMessage
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Payload.TeamName != "Alpha" || st.Payload.Version != 3 {
		t.Fatalf("state = %+v", st.Payload)
	}

	hub.Publish(domain.Snapshot{SessionID: "other", Version: 99})
	hub.Publish(domain.Snapshot{SessionID: "s-1", Version: 4})

	_, raw = readType(t, conn)
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Payload.Version != 4 {
		t.Fatalf("published version = %d; want 4 (other sessions must not leak)", st.Payload.Version)
	}
}

func TestClientDispatchesInbound(t *testing.T) {
	hub := NewHub()
	sess := &fakeSession{snap: domain.Snapshot{SessionID: "s-1"}, complete: errors.New("no active trial")}
	conn := startServer(t, hub, sess)
	readType(t, conn)
	readType(t, conn)

	send := func(v InboundMessage) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	send(InboundMessage{Type: MsgFail, Value: "too heavy"})
	send(InboundMessage{Type: MsgAnswer, Value: "IV: 重量"})
	send(InboundMessage{Type: MsgCloseFeedback})
	send(InboundMessage{Type: MsgComplete})

	typ, raw := readType(t, conn)
	if typ != MsgError || !strings.Contains(string(raw), "no active trial") {
		t.Fatalf("reply = %s", raw)
	}

	send(InboundMessage{Type: MsgPing})
	if typ, _ := readType(t, conn); typ != MsgPong {
		t.Fatalf("ping reply = %s", typ)
	}

	send(InboundMessage{Type: "dance"})
	if typ, _ := readType(t, conn); typ != MsgError {
		t.Fatalf("unknown type reply = %s", typ)
	}

	want := []string{"fail:too heavy", "answer:IV: 重量", "close_feedback", "complete"}
	got := sess.recorded()
	if len(got) != len(want) {
		t.Fatalf("calls = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v; want %v", got, want)
		}
	}
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	sess := &fakeSession{snap: domain.Snapshot{SessionID: "s-1"}}
	conn := startServer(t, hub, sess)
	readType(t, conn)
	readType(t, conn)

	if n := hub.Count("s-1"); n != 1 {
		t.Fatalf("Count = %d; want 1", n)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count("s-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.Publish(domain.Snapshot{SessionID: "s-1", Version: 1})
}
