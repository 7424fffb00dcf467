package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgInternal      = "Internal server error"
	msgAuthRequired  = "Authentication required"
	msgInvalidJSON   = "Invalid JSON payload"
	msgNotFound      = "Not found"
	msgInvalidID     = "Invalid company id"
	msgExpectedArray = "Expected an array of companies in the request body"
)

var errInvalidJSON = errors.New("invalid json payload")

// decodeJSONBody lee el body completo y lo decodifica conservando los números como json.Number.
// Un body vacío equivale a {}. Si el body supera el límite se aborta la conexión.
func decodeJSONBody(c *gin.Context) (any, error) {
	if c.Request.Body == nil {
		return map[string]any{}, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			panic(http.ErrAbortHandler)
		}
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, errInvalidJSON
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errInvalidJSON
	}
	return payload, nil
}

// readPayload responde 400 o 500 cuando el body no se puede decodificar.
func readPayload(c *gin.Context, logger *zap.Logger) (any, bool) {
	payload, err := decodeJSONBody(c)
	if err != nil {
		if errors.Is(err, errInvalidJSON) {
			respondMessage(c, http.StatusBadRequest, msgInvalidJSON)
			return nil, false
		}
		logger.Error("read request body failed", zap.Error(err))
		respondMessage(c, http.StatusInternalServerError, msgInternal)
		return nil, false
	}
	return payload, true
}

// stringField devuelve el valor si es string; cualquier otro tipo cuenta como ausente.
func stringField(payload any, key string) string {
	fields, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	value, _ := fields[key].(string)
	return value
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
