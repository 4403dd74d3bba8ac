package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-device/internal/audit"
	"github.com/nerrad567/gray-logic-device/internal/property"
	"github.com/nerrad567/gray-logic-device/internal/provisioning"
	"github.com/nerrad567/gray-logic-device/internal/rpc"
)

// defaultHistoryLimit bounds the provisioning history in GET /provisioning.
const defaultHistoryLimit = 20

// ─── Properties ────────────────────────────────────────────────────

func (s *Server) handleListProperties(w http.ResponseWriter, _ *http.Request) {
	props := s.properties.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": props,
		"count":      len(props),
	})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	for _, info := range s.properties.Snapshot() {
		if info.Key == key {
			writeJSON(w, http.StatusOK, info)
			return
		}
	}
	writeNotFound(w, "property not found: "+key)
}

// setPropertyRequest is the body of PUT /properties/{key}. Value is the
// decimal text the cloud would send.
type setPropertyRequest struct {
	Value json.RawMessage `json:"value"`
}

// handleSetProperty applies a write through the same path as a cloud write.
func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req setPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	value, ok := rawToText(req.Value)
	if !ok {
		writeBadRequest(w, "value must be a number or a string")
		return
	}

	res := s.properties.OnRemoteUpdate(key, value, true)
	s.record(audit.ActionPropertySet, key, int(res), map[string]any{"value": value})

	switch res {
	case property.Success:
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "result": int(res)})
		if s.hub != nil {
			s.hub.Broadcast(ChannelPropertyWritten, map[string]any{"key": key, "value": value})
		}
	case property.NotFound:
		writeResultError(w, http.StatusNotFound, ErrCodeNotFound, "property not found: "+key, int(res))
	case property.NotWritable:
		writeResultError(w, http.StatusForbidden, ErrCodeForbidden, "property is read-only: "+key, int(res))
	default:
		writeResultError(w, http.StatusBadRequest, ErrCodeParse, "value is not a valid number", int(res))
	}
}

// rawToText accepts a JSON number or string.
func rawToText(raw json.RawMessage) (string, bool) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, true
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), true
	}
	return "", false
}

// ─── Notifications ─────────────────────────────────────────────────

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	items := s.notifications.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"count":         len(items),
	})
}

// ─── RPC ───────────────────────────────────────────────────────────

func (s *Server) handleListRPC(w http.ResponseWriter, _ *http.Request) {
	eps := s.rpc.Endpoints()
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": eps,
		"count":     len(eps),
	})
}

type rpcPostRequest struct {
	Arg string `json:"arg"`
}

func (s *Server) handleRPCPost(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req rpcPostRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	code, err := s.rpc.DispatchPost(name, req.Arg)
	s.record(audit.ActionRPCPost, name, int(code), argDetails(req.Arg))
	if err != nil {
		writeRPCError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "status": int(code)})
}

func (s *Server) handleRPCGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	arg := r.URL.Query().Get("arg")
	res, err := s.rpc.DispatchGet(name, arg)
	s.record(audit.ActionRPCGet, name, int(rpc.Status(err)), argDetails(arg))
	if err != nil {
		writeRPCError(w, err)
		return
	}

	resp := map[string]any{
		"name":   name,
		"status": int(rpc.StatusOK),
		"kind":   res.Kind.String(),
	}
	if res.Kind == rpc.KindJSON {
		resp["result"] = json.RawMessage(res.Body)
	} else {
		resp["result"] = string(res.Body)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRPCError(w http.ResponseWriter, err error) {
	code := int(rpc.Status(err))
	switch {
	case errors.Is(err, rpc.ErrUnknownName):
		writeResultError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), code)
	case errors.Is(err, rpc.ErrAccessDenied):
		writeResultError(w, http.StatusForbidden, ErrCodeForbidden, err.Error(), code)
	default:
		writeResultError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), code)
	}
}

// ─── Provisioning ──────────────────────────────────────────────────

func (s *Server) handleGetProvisioning(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	history, err := s.provisioning.History(r.Context(), limit)
	if err != nil {
		s.logger.Warn("reading provisioning history failed", "error", err)
		writeInternalError(w, "provisioning history unavailable")
		return
	}
	if history == nil {
		history = []provisioning.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  s.provisioning.Status(),
		"history": history,
	})
}

// handleStartProvisioning queues a request; the main loop acts on it.
func (s *Server) handleStartProvisioning(w http.ResponseWriter, _ *http.Request) {
	s.provisioning.RequestProvisioning(provisioning.SourceAPI)
	writeJSON(w, http.StatusAccepted, map[string]any{"requested": true})
}

// ─── Audit ─────────────────────────────────────────────────────────

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit trail not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Target: q.Get("target"),
		Source: q.Get("source"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Warn("reading audit trail failed", "error", err)
		writeInternalError(w, "audit trail unavailable")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// record adds a local API request to the audit trail. Local callers act
// as the owner.
func (s *Server) record(action, target string, status int, details map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(audit.Entry{
		Action:  action,
		Target:  target,
		Source:  audit.SourceAPI,
		Owner:   true,
		Status:  status,
		Details: details,
	})
}

func argDetails(arg string) map[string]any {
	if arg == "" {
		return nil
	}
	return map[string]any{"arg": arg}
}
