package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"jobs":        s.orchestrator.JobCount(),
		"workers":     s.cfg.WorkerCount,
		"mt_enabled":  s.orchestrator.Processor().Translator != nil,
	}
	if s.stats != nil {
		resp["model"] = s.cfg.AnthropicModel
		resp["llm"] = s.stats.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
