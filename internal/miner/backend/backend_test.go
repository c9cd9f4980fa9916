package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/minergate/internal/infrastructure/config"
	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/miner/cgminer"
	"github.com/nerrad567/minergate/internal/miner/sim"
	"github.com/nerrad567/minergate/internal/targets"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		miners  config.MinersConfig
		wantErr error
		check   func(t *testing.T, f miner.Factory)
	}{
		{
			name:   "cgminer",
			miners: config.MinersConfig{Backend: CGMiner, Port: 4028, Timeout: 2},
			check: func(t *testing.T, f miner.Factory) {
				if _, ok := f.(*cgminer.Factory); !ok {
					t.Errorf("factory is %T, want *cgminer.Factory", f)
				}
			},
		},
		{
			name:   "sim expands ranges",
			miners: config.MinersConfig{Backend: Sim, SimHosts: []string{"10.0.0.1-3", "10.0.1.7"}},
			check: func(t *testing.T, f miner.Factory) {
				fleet, ok := f.(*sim.Fleet)
				if !ok {
					t.Fatalf("factory is %T, want *sim.Fleet", f)
				}
				for _, h := range []string{"10.0.0.1", "10.0.0.3", "10.0.1.7"} {
					if _, ok := fleet.Miner(h); !ok {
						t.Errorf("sim fleet missing %s", h)
					}
				}
				if _, err := fleet.Connect(context.Background(), "10.0.0.4"); !errors.Is(err, miner.ErrNoDevice) {
					t.Errorf("Connect(10.0.0.4) = %v, want ErrNoDevice", err)
				}
			},
		},
		{
			name:    "sim bad hosts",
			miners:  config.MinersConfig{Backend: Sim, SimHosts: []string{"10.0.0.x"}},
			wantErr: targets.ErrMalformedTarget,
		},
		{
			name:   "unknown",
			miners: config.MinersConfig{Backend: "avalon"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Miners: tt.miners, Fleet: config.FleetConfig{MaxHosts: 256}}
			f, err := New(cfg)
			if tt.check == nil {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := &config.Config{Fleet: config.FleetConfig{
		MaxConcurrency: 32,
		MaxHosts:       1024,
		DefaultTargets: []string{"10.0.0.1-20"},
	}}
	got := ServiceConfig(cfg, nil, nil)
	if got.MaxConcurrency != 32 || got.MaxHosts != 1024 || len(got.DefaultTargets) != 1 || got.DefaultTargets[0] != "10.0.0.1-20" {
		t.Errorf("ServiceConfig() = %+v", got)
	}
}
