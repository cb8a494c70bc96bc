package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"

	"github.com/pribylovaa/go-blog-forum/internal/metrics"
	"github.com/pribylovaa/go-blog-forum/internal/service"
	apierrors "github.com/pribylovaa/go-blog-forum/internal/transport/http/errors"
)

// CallRequest — тело POST /methods/{name}.
type CallRequest struct {
	Args []any `json:"args"`
}

// CallResponse — результат метода.
type CallResponse struct {
	Result any `json:"result"`
}

// CallMethod — POST /methods/{name} с телом {"args": [...]}.
func (h *Handlers) CallMethod(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req CallRequest
	if err := decodeStrict(r, &req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	start := time.Now()
	res, err := h.methods.Call(r.Context(), name, req.Args)
	observeCall(name, err, time.Since(start))

	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CallResponse{Result: res})
}

// observeCall учитывает вызов метода в метриках с кодом в терминах gRPC.
func observeCall(method string, err error, dur time.Duration) {
	code := codes.OK
	if err != nil {
		code = apierrors.Code(err)
	}

	metrics.MethodCalled(method, code.String(), dur)
}
