package swarm

import (
	"context"
	"time"

	"github.com/swarmforge/swarmforge/pkg/models"
)

// sweepLoop runs the periodic maintenance sweeps: idle reclamation on the
// monitor interval and auto-scaling on the auto-scale interval.
func (c *Coordinator) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	monitor := time.NewTicker(c.cfg.MonitorInterval)
	defer monitor.Stop()
	scale := time.NewTicker(c.cfg.AutoScaleInterval)
	defer scale.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-monitor.C:
			c.reclaimIdle()
		case <-scale.C:
			c.autoScale()
		}
	}
}

// reclaimIdle terminates and removes agents that have been idle longer than
// the idle timeout. Busy agents are never reclaimed regardless of heartbeat
// age.
func (c *Coordinator) reclaimIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, ag := range c.agents {
		if ag.Status() != models.AgentStatusIdle {
			continue
		}
		if now.Sub(ag.LastHeartbeat()) < c.cfg.IdleTimeout {
			continue
		}
		ag.Terminate()
		delete(c.agents, id)
		c.logger.Log("[swarm] reclaimed idle agent %s (%s)", id, ag.Name())
	}
}

// autoScale grows the pool ahead of queue pressure: when the queue depth
// exceeds the scaling threshold, it adds generic agents, one per excess
// queued task, without exceeding MaxAgents.
func (c *Coordinator) autoScale() {
	c.mu.Lock()
	defer c.mu.Unlock()

	depth := len(c.queue)
	if depth <= c.cfg.ScalingThreshold {
		return
	}

	room := c.cfg.MaxAgents - len(c.agents)
	if room <= 0 {
		return
	}

	n := depth - c.cfg.ScalingThreshold
	if n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		ag := c.factory.Generic()
		c.agents[ag.ID()] = ag
	}
	c.logger.Log("[swarm] scaled up by %d agents (queue depth %d, pool %d)", n, depth, len(c.agents))
}
