// Command watch tails a running server's observer stream and prints
// events as they happen.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"runnerkeep.gg/internal/protocol"
)

func main() {
	var (
		url  = flag.String("url", "ws://127.0.0.1:8080/v1/observe", "observer websocket url")
		kind = flag.String("kind", "", "only print events of this kind (e.g. ITEM_PRODUCED)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Error("dial", "url", *url, "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeFrame
			if err := json.Unmarshal(msg, &w); err == nil {
				logger.Info("connected", "protocol", w.ProtocolVersion, "tick", w.Tick, "tick_ms", w.TickDurationMs)
			}
		case protocol.TypeEvent:
			if *kind != "" && base.Kind != *kind {
				continue
			}
			var frame struct {
				Kind string          `json:"kind"`
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			fmt.Printf("%-20s %s\n", frame.Kind, frame.Data)
		}
	}
}
