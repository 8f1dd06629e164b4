package apigw

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hmacgate/auth"
	"hmacgate/logger"
)

// ErrorBody - тело ответа об ошибке. Сообщение не раскрывает внутренних причин.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON сериализует v и записывает ответ с указанным статусом
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		// Если не можем сериализовать, отправляем простой текстовый ответ
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)

	_, err = w.Write(data)
	return err
}

// WriteError записывает JSON ответ об ошибке со стандартным текстом статуса
func WriteError(w http.ResponseWriter, status int) {
	if err := WriteJSON(w, status, ErrorBody{Error: http.StatusText(status)}); err != nil {
		logger.Debug("Error writing error response: %v", err)
	}
}

// StatusForError сопоставляет ошибки gate с HTTP статусом
func StatusForError(err error) int {
	return auth.StatusForError(err)
}

// AuthErrorHandler - обработчик неисправностей для auth.Gate в формате шлюза.
// Ошибку уже залогировал gate.
func AuthErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	WriteError(w, StatusForError(err))
}
