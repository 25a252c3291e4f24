package main

import (
	"net/http"
	"runtime"

	"whatsrelay/internal/httputil"
	"whatsrelay/internal/logging"
	"whatsrelay/internal/models"
)

type memoryUsage struct {
	AllocBytes     uint64 `json:"allocBytes"`
	HeapInUseBytes uint64 `json:"heapInUseBytes"`
	SysBytes       uint64 `json:"sysBytes"`
	NumGC          uint32 `json:"numGC"`
	Goroutines     int    `json:"goroutines"`
}

type systemStatus struct {
	Status       string                `json:"status"`
	Version      string                `json:"version"`
	Accounts     []models.AccountState `json:"accounts"`
	LiveAccounts int                   `json:"liveAccounts"`
	Uptime       float64               `json:"uptime"`
	Memory       memoryUsage           `json:"memory"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states, err := s.accounts.AccountsStatus(r.Context())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if states == nil {
			states = []models.AccountState{}
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		httputil.WriteJSON(w, http.StatusOK, systemStatus{
			Status:       "Running",
			Version:      Version,
			Accounts:     states,
			LiveAccounts: s.accounts.LiveCount(),
			Uptime:       s.now().Sub(s.startedAt).Seconds(),
			Memory: memoryUsage{
				AllocBytes:     mem.Alloc,
				HeapInUseBytes: mem.HeapInuse,
				SysBytes:       mem.Sys,
				NumGC:          mem.NumGC,
				Goroutines:     runtime.NumGoroutine(),
			},
		})
	}
}

// handleLogs returns today's log file as plain text
func (s *Server) handleLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := logging.ReadDay(s.cfg.Logging.Dir, s.now())
		if err != nil {
			s.logger.WithError(err).Error("Failed to read log file")
			http.Error(w, "Failed to read logs", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
