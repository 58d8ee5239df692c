package service

import (
	"context"

	"github.com/robfig/cron"
	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz/usecase"
)

// Sweeper prunes expired conversation memory on a fixed schedule.
type Sweeper struct {
	memory *usecase.MemoryUsecase
	cron   *cron.Cron
}

// NewSweeper creates the memory sweeper.
func NewSweeper(memory *usecase.MemoryUsecase) *Sweeper {
	return &Sweeper{memory: memory, cron: cron.New()}
}

// Start begins the sweep schedule.
func (s *Sweeper) Start() error {
	if err := s.cron.AddFunc("@every 6h", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Msg("memory sweeper started")
	return nil
}

// Stop halts the sweep schedule.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	deleted, err := s.memory.CleanupExpired(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("memory sweep failed")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("expired memory pruned")
	}
}
