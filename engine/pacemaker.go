package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/animakit/anima/character"
)

const (
	tickInterval = time.Second
	tickBackoff  = 5 * time.Second
)

// EventCallback delivers one due schedule entry message.
type EventCallback func(ctx context.Context, message string) error

// Pacemaker watches the schedule at one-second precision and delivers due
// entries through the callback. It runs as a background service.
type Pacemaker struct {
	characters *character.Manager
	callback   EventCallback
	logger     zerolog.Logger
	done       chan struct{}
}

func NewPacemaker(characters *character.Manager, callback EventCallback, logger zerolog.Logger) *Pacemaker {
	return &Pacemaker{
		characters: characters,
		callback:   callback,
		logger:     logger.With().Str("component", "pacemaker").Logger(),
		done:       make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled. Tick errors back the loop off for a
// few seconds instead of stopping it.
func (p *Pacemaker) Start(ctx context.Context) error {
	p.logger.Info().Msg("pacemaker started")
	defer close(p.done)

	wait := tickInterval
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("pacemaker stopped")
			return nil
		case <-time.After(wait):
		}

		if err := p.tick(ctx); err != nil {
			p.logger.Error().Err(err).Msg("tick failed, backing off")
			wait = tickBackoff
			continue
		}
		wait = tickInterval
	}
}

func (p *Pacemaker) Shutdown(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
	}
	return nil
}

// tick flips and delivers every due entry sequentially. Callback errors are
// logged per entry and never abort the remaining deliveries; the entry stays
// flipped either way.
func (p *Pacemaker) tick(ctx context.Context) error {
	due := p.characters.CheckDueEvents(time.Now())
	for _, entry := range due {
		p.logger.Info().Str("title", entry.Title).Msg("scheduled event due")
		msg := fmt.Sprintf("Scheduled Event '%s' is starting now. (%s)", entry.Title, entry.Description)
		if err := p.callback(ctx, msg); err != nil {
			p.logger.Error().Err(err).Str("title", entry.Title).Msg("event callback failed")
		}
	}
	return nil
}
