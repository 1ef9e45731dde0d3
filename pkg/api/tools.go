package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// invokeResponse wraps a tool's payload: the record list for reads or a
// confirmation object for mutations.
type invokeResponse struct {
	Result any `json:"result"`
}

// getToolset handles GET /api/toolset/{name}.
//
// @Summary      Get toolset manifest
// @Description  Describes every tool in the named toolset. An empty name returns all tools.
// @Tags         Tools
// @Produce      json
// @Param        name  path      string  false  "Toolset name"
// @Success      200   {object}  tools.Manifest
// @Failure      404   {object}  errorResponse
// @Router       /api/toolset/{name} [get]
func (h *Handler) getToolset(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Catalog.Manifest(mux.Vars(r)["name"])
	if err != nil {
		writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// getTool handles GET /api/tool/{name}.
//
// @Summary      Get tool manifest
// @Tags         Tools
// @Produce      json
// @Param        name  path      string  true  "Tool name"
// @Success      200   {object}  tools.Manifest
// @Failure      404   {object}  errorResponse
// @Router       /api/tool/{name} [get]
func (h *Handler) getTool(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.Catalog.ToolManifest(mux.Vars(r)["name"])
	if err != nil {
		writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// invokeTool handles POST /api/tool/{name}/invoke.
//
// @Summary      Invoke a tool
// @Description  Runs the tool with the JSON object body as its arguments.
// @Tags         Tools
// @Accept       json
// @Produce      json
// @Param        name  path      string  true  "Tool name"
// @Param        args  body      object  false "Tool arguments"
// @Success      200   {object}  invokeResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Failure      504   {object}  errorResponse
// @Router       /api/tool/{name}/invoke [post]
func (h *Handler) invokeTool(w http.ResponseWriter, r *http.Request) {
	args, err := decodeArgs(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	if err != nil {
		writeToolError(w, r, err)
		return
	}

	result, err := h.deps.Invoker.Invoke(r.Context(), mux.Vars(r)["name"], args)
	if err != nil {
		writeToolError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invokeResponse{Result: result.Payload()})
}

// decodeArgs reads the argument object. An empty body means no arguments.
// Numbers keep their JSON text so integer parameters can be checked exactly.
func decodeArgs(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, toolerr.New(toolerr.KindInvalidArgument, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, toolerr.Wrap(toolerr.KindInvalidArgument, err, "decoding arguments")
	}
	if dec.More() {
		return nil, toolerr.New(toolerr.KindInvalidArgument, "request body must be a single JSON object")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
