package handler

import (
	"net/http"
	"strings"
	"time"

	"tinyapps/internal/contactdev"
)

// ChatHandler serves the contact-developer conversation over a websocket:
// user messages in, transcript snapshots out.
type ChatHandler struct {
	registry *contactdev.Registry
}

func NewChatHandler(registry *contactdev.Registry) *ChatHandler {
	return &ChatHandler{registry: registry}
}

type chatWSInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatWSOutbound struct {
	Type     string               `json:"type"`
	Messages []contactdev.Message `json:"messages,omitempty"`
	Typing   bool                 `json:"typing,omitempty"`
	Code     string               `json:"code,omitempty"`
	Message  string               `json:"message,omitempty"`
}

func (h *ChatHandler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	programID := strings.TrimSpace(r.URL.Query().Get("program_id"))
	if programID == "" {
		http.Error(w, "program_id is required", http.StatusBadRequest)
		return
	}
	thread := h.registry.Thread(programID)
	if thread == nil {
		http.Error(w, "program not found", http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stop := make(chan struct{})
	writeCh := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go wsWriter(writerDone, stop, conn, writeCh)

	snapshot := func() chatWSOutbound {
		return chatWSOutbound{
			Type:     "transcript",
			Messages: thread.DisplayMessages(),
			Typing:   thread.Typing(),
		}
	}

	// Transcript mutations only signal; the pusher goroutine reads the
	// snapshot so observer callbacks stay cheap.
	changed := make(chan struct{}, 1)
	unobserve := thread.Observe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unobserve()

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-changed:
				pushWS(writeCh, snapshot())
			}
		}
	}()

	pushWS(writeCh, snapshot())

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			close(stop)
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushWS(writeCh, chatWSOutbound{Type: "pong"})
		case "send":
			text := strings.TrimSpace(in.Text)
			if text == "" {
				pushWS(writeCh, chatWSOutbound{
					Type:    "error",
					Code:    "invalid_argument",
					Message: "text is required",
				})
				continue
			}
			thread.Send(text)
		default:
			pushWS(writeCh, chatWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type",
			})
		}
	}
}
