package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quietmesh/rfcoord/internal/coordinator"
)

// handleServiceCall dispatches a named coordinator service call. The
// request body is the service's call data; force_update takes none.
func (s *Server) handleServiceCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var err error
	switch service := chi.URLParam(r, "service"); service {
	case "get_fan_param":
		var req coordinator.ParamRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.service.GetFanParam(ctx, &req)

	case "set_fan_param":
		var req coordinator.SetParamRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.service.SetFanParam(ctx, &req)

	case "update_fan_params":
		var req coordinator.ParamRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.service.UpdateFanParams(ctx, &req)

	case "bind_device":
		var req coordinator.BindRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.service.BindDevice(ctx, &req)

	case "send_packet":
		var req coordinator.SendPacketRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err = s.service.SendPacket(ctx, &req)

	case "force_update":
		err = s.service.ForceUpdate(ctx)

	default:
		writeNotFound(w, "unknown service: "+service)
		return
	}

	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// decodeBody unmarshals the request body into dst, writing a 400 and
// returning false on malformed JSON. An empty body decodes to the zero
// value so services with all-optional call data accept a bare POST.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeBadRequest(w, "malformed request body: "+err.Error())
		return false
	}
	return true
}
