package ports

import (
	"context"

	"github.com/bob-boxenloc/Bit-Sniper-Kraken-sub000/internal/domain"
)

// StateStore persists the single durable bot state document. Load is called
// once at startup; Save after every state mutation. Save must be atomic so
// a crash mid-write never leaves a corrupt file.
type StateStore interface {
	// Load returns the persisted state, or a fresh zero state when no file
	// exists yet. A present but unreadable file is an error, never a
	// silent reset.
	Load(ctx context.Context) (*domain.BotState, error)
	Save(ctx context.Context, state *domain.BotState) error
}
