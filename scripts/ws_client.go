// Package main runs a demo WebSocket client for worker schedule events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	port := getenv("PORT", "8080")
	provider := getenv("PROVIDER_ID", "p1")
	worker := getenv("WORKER_ID", "w1")
	date := getenv("DATE", time.Now().UTC().Format("2006-01-02"))
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the reoptimize events are not missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/workers/" + worker + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m event
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			b, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, string(b))
		}
	}()

	// Trigger a re-optimization
	body, _ := json.Marshal(map[string]any{"providerId": provider, "date": date, "trigger": "manual"})
	resp, err := http.Post(fmt.Sprintf("%s/v1/workers/%s/reoptimize", base, worker), "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("reoptimize: %s", resp.Status)

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
