package services

import (
	"context"
	"log"
	"time"

	"gym-backend/internal/metrics"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMonitor samples host CPU and memory into the Prometheus gauges.
type SystemMonitor struct {
	Interval time.Duration
}

func NewSystemMonitor(interval time.Duration) *SystemMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SystemMonitor{Interval: interval}
}

// Start samples until ctx is cancelled.
func (m *SystemMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

func (m *SystemMonitor) sample() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics.SystemCPUPercent.Set(percents[0])
	} else if err != nil {
		log.Printf("[Monitor] cpu sample failed: %v", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.SystemMemoryPercent.Set(vm.UsedPercent)
	} else {
		log.Printf("[Monitor] memory sample failed: %v", err)
	}
}
