package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/idempotency"
	"stockledger/pkg/logger"
)

const (
	HeaderIdempotencyKey       = "Idempotency-Key"
	HeaderIdempotencyKeyLegacy = "X-Idempotency-Key"
	// HeaderIdempotentReplay marks a response served from a stored result.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyBodyBytes = 1 << 20 // 1 MiB
	maxIdempotencyKeyLength = 255

	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// Idempotency middleware replays the stored response of a POST repeated with
// the same key. A nil store disables it.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			key = strings.TrimSpace(c.GetHeader(HeaderIdempotencyKeyLegacy))
		}
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			_ = c.Error(apperror.NewValidation("idempotency key too long").
				WithDetail("max_length", maxIdempotencyKeyLength))
			c.Abort()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, err := io.ReadAll(limited)
		if err != nil {
			_ = c.Error(apperror.NewValidation("cannot read request body"))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		req := idempotency.Request{
			Key:       key,
			UserID:    appctx.GetUserID(ctx),
			Operation: c.Request.Method + " " + c.FullPath(),
			Hash:      hashBody(body),
		}

		replay, err := store.AcquireKey(ctx, req)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}
		if replay != nil {
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		// Errors are stored by ErrorHandler once the error body is known.
		if len(c.Errors) > 0 || !rec.Written() {
			return
		}
		completeIdempotency(c, key, store, idempotency.StatusSuccess, idempotency.Replay{
			StatusCode:  rec.Status(),
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// failIdempotency settles the key of a failed request. Client errors are
// stored for replay; server errors and conflicts free the key for a retry.
func failIdempotency(c *gin.Context, status int, body any) {
	keyVal, ok := c.Get(ctxIdempotencyKey)
	if !ok {
		return
	}
	storeVal, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return
	}
	key, _ := keyVal.(string)
	store, _ := storeVal.(idempotency.Store)
	if key == "" || store == nil {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	if status >= http.StatusInternalServerError || status == http.StatusConflict {
		if err := store.ReleaseKey(ctx, key); err != nil {
			logger.Warn(ctx, "release idempotency key", "key", key, "error", err)
		}
		return
	}

	data, err := json.Marshal(body)
	if err != nil {
		logger.Warn(ctx, "encode idempotent failure", "key", key, "error", err)
		return
	}
	completeIdempotency(c, key, store, idempotency.StatusFailed, idempotency.Replay{
		StatusCode:  status,
		ContentType: "application/json; charset=utf-8",
		Body:        data,
	})
}

func completeIdempotency(c *gin.Context, key string, store idempotency.Store, status idempotency.Status, resp idempotency.Replay) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := store.CompleteKey(ctx, key, status, resp); err != nil {
		logger.Warn(ctx, "complete idempotency key", "key", key, "error", err)
	}
}

// recordingWriter keeps a copy of the response body.
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
