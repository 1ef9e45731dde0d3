package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/txn2/mcp-toolbox/pkg/middleware"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// writeToolError maps a classified error to its status and body.
func writeToolError(w http.ResponseWriter, r *http.Request, err error) {
	status := toolerr.HTTPStatus(err)
	body := errorBody{Kind: string(toolerr.KindOf(err)), Message: err.Error()}

	var te *toolerr.Error
	if errors.As(err, &te) {
		body.Message = te.Detail()
		body.Param = te.Param
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		slog.Error("request failed",
			"request_id", middleware.RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: body})
}

// writeError writes a JSON error that did not come from a tool.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}
