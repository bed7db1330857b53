package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"learnloop/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform failure body for every endpoint.
type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// registerRequest is the wire form of an agent definition. Only HTTP
// agents can be registered through the API; in-process implementations
// are Go values and register at startup.
type registerRequest struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Version string `json:"version"`
	Runtime string `json:"runtime"`
	Config  struct {
		URL            string `json:"url"`
		HealthEndpoint string `json:"health_endpoint,omitempty"`
	} `json:"config"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// agentView is the wire form of a registered agent handle.
type agentView struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Version  string `json:"version"`
	Runtime  string `json:"runtime"`
	Endpoint string `json:"endpoint,omitempty"`
}

func viewOf(h *domain.AgentHandle) agentView {
	return agentView{
		ID:       h.ID,
		Type:     h.Type,
		Version:  h.Version,
		Runtime:  string(h.Runtime),
		Endpoint: h.Endpoint,
	}
}

type agentResponse struct {
	OK    bool      `json:"ok"`
	Agent agentView `json:"agent"`
}

type agentListResponse struct {
	OK     bool        `json:"ok"`
	Agents []agentView `json:"agents"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	kind := domain.RuntimeKind(req.Runtime)
	if kind == domain.RuntimeInProcess {
		writeError(w, http.StatusBadRequest,
			"in-process agents cannot be registered over the API")
		return
	}

	def := &domain.AgentDefinition{
		ID:      req.ID,
		Type:    req.Type,
		Version: req.Version,
		Runtime: kind,
		Config: domain.AgentRuntimeConfig{
			URL:            req.Config.URL,
			HealthEndpoint: req.Config.HealthEndpoint,
		},
		Capabilities: req.Capabilities,
	}

	handle, err := s.orch.RegisterAgent(r.Context(), def)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDefinition),
			errors.Is(err, domain.ErrEndpointMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnsupportedRuntime):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, agentResponse{OK: true, Agent: viewOf(handle)})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	handles := s.orch.ListAgents()
	views := make([]agentView, 0, len(handles))
	for _, h := range handles {
		views = append(views, viewOf(h))
	}
	writeJSON(w, http.StatusOK, agentListResponse{OK: true, Agents: views})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	handle, err := s.orch.GetAgent(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, agentResponse{OK: true, Agent: viewOf(handle)})
}

type healthResponse struct {
	OK     bool                `json:"ok"`
	Health domain.HealthStatus `json:"health"`
}

func (s *Server) handleAgentHealth(w http.ResponseWriter, r *http.Request) {
	status := s.orch.CheckHealth(r.Context(), r.PathValue("id"))
	code := http.StatusOK
	if status.Status != domain.HealthHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{OK: true, Health: status})
}

// executeRequest wraps a task with its target agent.
type executeRequest struct {
	AgentID string            `json:"agent_id"`
	Task    *domain.AgentTask `json:"task"`
}

// executeResponse flattens an AgentResult so clients branch on a single
// top-level success flag.
type executeResponse struct {
	OK       bool           `json:"ok"`
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	result := s.orch.ExecuteTask(r.Context(), req.AgentID, req.Task)

	// Execution is total; the HTTP status reflects the task outcome.
	code := http.StatusOK
	if !result.Success {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, executeResponse{
		OK:       result.Success,
		Success:  result.Success,
		Data:     result.Data,
		Error:    result.Error,
		Metadata: result.Metadata,
	})
}

type healthzResponse struct {
	OK      bool                           `json:"ok"`
	Healthy bool                           `json:"healthy"`
	Plugins map[string]domain.PluginHealth `json:"plugins"`
	Agents  int                            `json:"agents"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	report := s.plugins.HealthStatus(r.Context())

	healthy := true
	for _, h := range report {
		// Plugins that have not been used yet do not degrade liveness.
		if h.Status != "uninitialized" && !h.Healthy {
			healthy = false
			break
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthzResponse{
		OK:      healthy,
		Healthy: healthy,
		Plugins: report,
		Agents:  len(s.orch.ListAgents()),
	})
}
