package utils

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const ContentTypeMsgPack = "application/msgpack"

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// MsgPack sends a msgpack-encoded response
func MsgPack(w http.ResponseWriter, status int, data interface{}) {
	body, err := msgpack.Marshal(data)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to encode msgpack")
		return
	}
	w.Header().Set("Content-Type", ContentTypeMsgPack)
	w.WriteHeader(status)
	w.Write(body)
}

// WantsMsgPack reports whether the caller asked for msgpack via
// ?format=msgpack or the Accept header
func WantsMsgPack(r *http.Request) bool {
	if r.URL.Query().Get("format") == "msgpack" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), ContentTypeMsgPack)
}

// Negotiate writes data as msgpack or JSON depending on the request
func Negotiate(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if WantsMsgPack(r) {
		MsgPack(w, status, data)
		return
	}
	JSON(w, status, data)
}
