package server

import (
	"net/http"
)

func NewMux(ask *AskHandler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ask", ask.HandleAsk)
	mux.HandleFunc("/ask/ws", ask.HandleAskWS)
	mux.HandleFunc("/healthz", handleHealth)

	return CORS(allowedOrigins, mux)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
