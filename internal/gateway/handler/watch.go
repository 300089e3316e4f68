package handler

import (
	"net/http"
	"time"

	"tinyapps/internal/docstore"
	"tinyapps/internal/program"
)

// WatchHandler streams committed store mutations to rendering surfaces.
type WatchHandler struct {
	store *docstore.Store
}

func NewWatchHandler(store *docstore.Store) *WatchHandler {
	return &WatchHandler{store: store}
}

type watchWSOutbound struct {
	Type    string           `json:"type"`
	Program *program.Program `json:"program,omitempty"`
	ID      string           `json:"id,omitempty"`
}

func (h *WatchHandler) HandleWatchWS(w http.ResponseWriter, r *http.Request) {
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
	writeCh := make(chan watchWSOutbound, 64)
	writerDone := make(chan struct{})
	go wsWriter(writerDone, stop, conn, writeCh)

	events, cancel := h.store.Subscribe(64)
	defer cancel()

	// Current state first, then the live feed.
	for _, p := range h.store.List() {
		pushWS(writeCh, watchWSOutbound{Type: "program", Program: &p})
	}

	go func() {
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Removed {
					pushWS(writeCh, watchWSOutbound{Type: "removed", ID: ev.Program.ID})
					continue
				}
				p := ev.Program
				pushWS(writeCh, watchWSOutbound{Type: "program", Program: &p})
			}
		}
	}()

	// The read loop only services pings and detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(stop)
			<-writerDone
			return
		}
	}
}
