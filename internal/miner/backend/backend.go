// Package backend builds the device backend selected by configuration.
package backend

import (
	"fmt"
	"time"

	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/infrastructure/config"
	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/miner/cgminer"
	"github.com/nerrad567/minergate/internal/miner/sim"
	"github.com/nerrad567/minergate/internal/targets"
)

// Backend names accepted in miners.backend.
const (
	CGMiner = "cgminer"
	Sim     = "sim"
)

// New returns the factory for cfg.Miners.Backend. Simulated hosts are given
// in target syntax and expanded under cfg.Fleet.MaxHosts.
func New(cfg *config.Config) (miner.Factory, error) {
	switch cfg.Miners.Backend {
	case CGMiner:
		return cgminer.NewFactory(cfg.Miners.Port, time.Duration(cfg.Miners.Timeout)*time.Second), nil
	case Sim:
		hosts, err := targets.Parse(targets.Spec(cfg.Miners.SimHosts), cfg.Fleet.MaxHosts)
		if err != nil {
			return nil, fmt.Errorf("expanding miners.sim_hosts: %w", err)
		}
		return sim.NewFleet(hosts.Strings()...), nil
	default:
		return nil, fmt.Errorf("unknown miner backend %q", cfg.Miners.Backend)
	}
}

// ServiceConfig maps the fleet section onto a fleet.Config.
func ServiceConfig(cfg *config.Config, observer fleet.Observer, logger fleet.Logger) fleet.Config {
	return fleet.Config{
		MaxConcurrency: cfg.Fleet.MaxConcurrency,
		MaxHosts:       cfg.Fleet.MaxHosts,
		DefaultTargets: targets.Spec(cfg.Fleet.DefaultTargets),
		Observer:       observer,
		Logger:         logger,
	}
}
