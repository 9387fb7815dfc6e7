package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/janryu/janryu/common/log"
	"github.com/janryu/janryu/relay"
)

const loadSubject = "node.load"

// LoadInfo is one load sample for this node.
type LoadInfo struct {
	Node     string  `json:"node"`
	Games    int     `json:"games"`
	Players  int     `json:"players"`
	Rooms    int     `json:"rooms"`
	CPUUsage float64 `json:"cpu"`
	MemUsage float64 `json:"mem"`
	Load     float64 `json:"load"`
	At       int64   `json:"at"`
}

// CalculateLoad folds the sample into one comparable score. Weights: CPU
// 30%, memory 20%, games 25%, players 25%. Counts saturate at 100 so one
// busy node cannot dwarf the percentage terms.
func (li *LoadInfo) CalculateLoad() float64 {
	games := float64(li.Games)
	if games > 100 {
		games = 100
	}
	players := float64(li.Players)
	if players > 100 {
		players = 100
	}
	return li.CPUUsage*0.3 + li.MemUsage*0.2 + games*0.25 + players*0.25
}

// Monitor samples table and host load on a fixed beat, logs the score,
// and mirrors it over the relay so operators can rank nodes without
// scraping logs.
type Monitor struct {
	node     string
	ctrl     *Controller
	relay    *relay.Relay
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewMonitor(node string, ctrl *Controller, r *relay.Relay, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		node:     node,
		ctrl:     ctrl,
		relay:    r,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) loop() {
	// Prime the CPU sampler; delta-based readings need a baseline.
	cpu.Percent(0, false)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *Monitor) report() {
	info := m.collect()
	log.Info("load %.2f: games=%d players=%d rooms=%d cpu=%.1f%% mem=%.1f%%",
		info.Load, info.Games, info.Players, info.Rooms, info.CPUUsage, info.MemUsage)
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	m.relay.Publish(loadSubject, data)
}

func (m *Monitor) collect() LoadInfo {
	games, players := m.ctrl.Stats()
	rooms, _ := m.ctrl.rooms.Stats()
	info := LoadInfo{
		Node:    m.node,
		Games:   games,
		Players: players,
		Rooms:   rooms,
		At:      time.Now().Unix(),
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		info.CPUUsage = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemUsage = vm.UsedPercent
	}
	info.Load = info.CalculateLoad()
	return info
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
