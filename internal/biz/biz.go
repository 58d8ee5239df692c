package biz

import (
	"github.com/glowreach/reply-engine/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Dedup     *usecase.Deduplicator
	Matcher   *usecase.RuleMatcher
	Memory    *usecase.MemoryUsecase
	Generator *usecase.Generator
	Governor  *usecase.Governor
	Delivery  *usecase.DeliveryPipeline
}
