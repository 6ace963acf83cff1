package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"fitcoach/internal/imagecache"
)

// healthHandler reports cache store reachability plus host metrics.
func (s *Server) healthHandler(c echo.Context) error {
	status := http.StatusOK

	// 1. Cache store
	store := map[string]string{"backend": s.cfg.CacheBackend, "status": "up"}
	if p, ok := s.store.(imagecache.Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			store["status"] = "down"
			store["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if s.db != nil {
		for k, v := range s.db.Health() {
			store["db_"+k] = v
		}
	}

	// 2. Host stats
	v, _ := mem.VirtualMemory()
	cpuPercent, _ := cpu.Percent(200*time.Millisecond, false)
	d, _ := disk.Usage("/")
	hInfo, _ := host.Info()

	runtime := map[string]interface{}{
		"uptime":     time.Since(StartTime).String(),
		"start_time": StartTime.Format(time.RFC3339),
	}
	if hInfo != nil {
		runtime["os"] = hInfo.OS
		runtime["platform"] = hInfo.Platform
		runtime["arch"] = hInfo.KernelArch
		runtime["hostname"] = hInfo.Hostname
	}

	body := map[string]interface{}{
		"status":  "online",
		"store":   store,
		"runtime": runtime,
		"app": map[string]interface{}{
			"sessions":      s.registry.Len(),
			"ws_clients":    s.hub.Len(),
			"image_timeout": s.cfg.ImageTimeout.String(),
			"cooldown":      s.cfg.ImageCooldown.String(),
		},
	}
	if len(cpuPercent) > 0 {
		body["cpu"] = map[string]interface{}{"usage_percent": fmt.Sprintf("%.2f%%", cpuPercent[0])}
	}
	if v != nil {
		body["memory"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
		}
	}
	if d != nil {
		body["disk"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(d.Total)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		}
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	return c.JSON(status, body)
}
