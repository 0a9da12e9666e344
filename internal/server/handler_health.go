package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Region    string `json:"region"`
	Depth     uint64 `json:"depth"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	depth, err := s.queue.Len(r.Context())
	status := "healthy"
	if err != nil {
		status = "degraded"
	}

	respondOK(w, reqID, healthResponse{
		Status:    status,
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Region:    s.config.QueueRegion,
		Depth:     depth,
	})
}
