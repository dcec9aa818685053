package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const (
	headerTimestamp = "x-ts"
	headerNonce     = "x-nonce"
	headerSignature = "x-signer-hmac"

	// maxRequestBodyBytes bounds signing request bodies; payloads are tiny.
	maxRequestBodyBytes = 1 << 16
)

// GatewayHandler exposes the signing pipeline over HTTP.
type GatewayHandler struct {
	authenticator *Authenticator
	service       *TransferService
	metrics       *Metrics
	logger        Logger
}

// NewGatewayHandler creates the HTTP handler set for the signing endpoints.
func NewGatewayHandler(authenticator *Authenticator, service *TransferService, metrics *Metrics, logger Logger) *GatewayHandler {
	return &GatewayHandler{
		authenticator: authenticator,
		service:       service,
		metrics:       metrics,
		logger:        logger.NewSystem("http"),
	}
}

// Register attaches the signing endpoints to the mux.
func (h *GatewayHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/sign/transfer", h.handleSignTransfer)
	mux.HandleFunc("/sign/hd/transfer", h.handleSignHDTransfer)
}

func (h *GatewayHandler) handleSignTransfer(w http.ResponseWriter, r *http.Request) {
	h.handleSign(w, r, OperationKindHot)
}

func (h *GatewayHandler) handleSignHDTransfer(w http.ResponseWriter, r *http.Request) {
	h.handleSign(w, r, OperationKindHD)
}

func (h *GatewayHandler) handleSign(w http.ResponseWriter, r *http.Request, kind OperationKind) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	logger := h.logger.With("requestID", uuid.NewString())
	ctx := SetContextLogger(r.Context(), logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	env, err := envelopeFromHeaders(r, body)
	if err != nil {
		h.metrics.AuthAttemptsFail.WithLabelValues("malformed_headers").Inc()
		h.writeGatewayError(logger, w, err)
		return
	}

	h.metrics.AuthAttemptsTotal.Inc()
	if err := h.authenticator.Authenticate(env); err != nil {
		h.metrics.AuthAttemptsFail.WithLabelValues("rejected").Inc()
		h.writeGatewayError(logger, w, err)
		return
	}
	h.metrics.AuthAttemptsSuccess.Inc()

	var req TransferRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeGatewayError(logger, w, GatewayErrorf(ErrKindValidation, "invalid JSON body: %v", err))
		return
	}

	result, err := h.service.Execute(ctx, kind, req)
	if err != nil {
		h.writeGatewayError(logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// envelopeFromHeaders extracts the auth material. A missing or non-numeric
// timestamp is an authentication failure, not a validation one: the envelope
// never reached signature checking.
func envelopeFromHeaders(r *http.Request, body []byte) (AuthEnvelope, error) {
	ts := r.Header.Get(headerTimestamp)
	nonce := r.Header.Get(headerNonce)
	signature := r.Header.Get(headerSignature)
	if ts == "" || nonce == "" || signature == "" {
		return AuthEnvelope{}, GatewayErrorf(ErrKindAuth, "missing authentication headers")
	}

	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return AuthEnvelope{}, GatewayErrorf(ErrKindAuth, "invalid timestamp header")
	}

	return AuthEnvelope{
		Timestamp: timestamp,
		Nonce:     nonce,
		Signature: signature,
		RawBody:   body,
	}, nil
}

func (h *GatewayHandler) writeGatewayError(logger Logger, w http.ResponseWriter, err error) {
	kind := ErrorKindOf(err)
	status := HTTPStatusForKind(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", kind, "error", err)
	} else {
		logger.Info("request rejected", "kind", kind, "error", err)
	}
	writeJSONError(w, status, ClientErrorMessage(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
