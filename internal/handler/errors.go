package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
)

// ErrorResponse — тело любой ошибки API.
type ErrorResponse struct {
	ID      int32  `json:"id"`
	Message string `json:"message"`
}

// Счетчик идентификаторов ошибок. Уникальности в рамках процесса достаточно.
var errorID atomic.Int32

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		ID:      errorID.Add(1),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
