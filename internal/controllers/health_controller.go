package controllers

import (
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"summard/internal/services"
	"time"
)

type HealthController struct {
	availability services.AvailabilityServiceInterface
	alias        services.AliasServiceInterface
	startTime    time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	TrackedPeers  int     `json:"tracked_peers"`
	AliasPoll     string  `json:"alias_poll"`
	AliasNext     string  `json:"alias_next"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	schedule := hc.alias.Schedule()
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		TrackedPeers:  len(hc.availability.Snapshot()),
		AliasPoll:     schedule.State().String(),
		AliasNext:     formatDuration(schedule.Next()),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(availability services.AvailabilityServiceInterface, alias services.AliasServiceInterface) *HealthController {
	return &HealthController{
		availability: availability,
		alias:        alias,
		startTime:    time.Now(),
	}
}
