package server

import (
	"net/http"

	"tinyapps/internal/gateway/handler"
	"tinyapps/internal/gateway/middleware"
)

func NewMux(
	programHandler *handler.ProgramHandler,
	watchHandler *handler.WatchHandler,
	chatHandler *handler.ChatHandler,
) http.Handler {
	mux := http.NewServeMux()

	// Program CRUD + generation
	mux.HandleFunc("POST /programs", programHandler.HandleCreate)
	mux.HandleFunc("GET /programs", programHandler.HandleList)
	mux.HandleFunc("GET /programs/{id}", programHandler.HandleGet)
	mux.HandleFunc("DELETE /programs/{id}", programHandler.HandleDelete)
	mux.HandleFunc("GET /programs/{id}/code", programHandler.HandleCode)

	// WebSocket surfaces
	mux.HandleFunc("/ws/programs", watchHandler.HandleWatchWS)
	mux.HandleFunc("/ws/chat", chatHandler.HandleChatWS)

	return middleware.CORS(mux)
}
