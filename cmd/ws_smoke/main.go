// Command ws_smoke logs a team in against a running server, plays the
// prologue over the websocket and prints every state it receives.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"hunter_trials/internal/logger"
	"hunter_trials/internal/trial"
	"hunter_trials/internal/ws"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	host := flag.String("host", "127.0.0.1:"+port, "server address")
	team := flag.String("team", "smoke", "team name")
	flag.Parse()

	base := "http://" + *host
	token := login(base, *team)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?token=%s", *host, token), nil)
	if err != nil {
		logger.Fatal("dial ws", "error", err)
	}
	defer conn.Close()

	go readStates(conn)

	post(base, "/api/v1/trials/prologue/enter", token)

	for _, m := range []ws.InboundMessage{
		{Type: ws.MsgPing},
		{Type: ws.MsgAnswer, Value: "smoke answer"},
		{Type: ws.MsgSuccess, Value: "smoke success"},
		{Type: ws.MsgComplete},
		{Type: ws.MsgCloseFeedback},
	} {
		if err := conn.WriteJSON(m); err != nil {
			logger.Fatal("write ws", "type", m.Type, "error", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	// wait for the lesson, then dismiss it
	time.Sleep(500 * time.Millisecond)
	if err := conn.WriteJSON(ws.InboundMessage{Type: ws.MsgCloseEducation}); err != nil {
		logger.Fatal("write ws", "error", err)
	}
	time.Sleep(300 * time.Millisecond)

	logger.Info("smoke test finished")
}

func login(base, team string) string {
	body, _ := json.Marshal(map[string]string{"team_name": team})
	resp, err := http.Post(base+"/api/v1/login", "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Fatal("login", "error", err)
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		logger.Fatal("login failed", "status", resp.StatusCode, "error", out.Error)
	}
	return out.Token
}

func post(base, path, token string) {
	req, _ := http.NewRequest(http.MethodPost, base+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("request failed", "path", path, "error", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Fatal("unexpected status", "path", path, "status", resp.StatusCode)
	}
}

func readStates(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var st ws.StateMessage
		if err := json.Unmarshal(msg, &st); err != nil || st.Type != ws.MsgState {
			logger.Info("ws message", "raw", string(msg))
			continue
		}
		s := st.Payload
		logger.Info("state",
			"version", s.Version,
			"screen", s.Screen,
			"feedback", s.Feedback.Open,
			"education", s.Education.Open,
			"progress", s.Progress,
			"completed", s.Completion[trial.Prologue])
	}
}
