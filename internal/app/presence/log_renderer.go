package presence

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogRenderer is the headless renderer: one log line per tile change.
type LogRenderer struct {
	logger zerolog.Logger
}

func NewLogRenderer() *LogRenderer {
	return &LogRenderer{logger: log.With().Str("module", "presence.view").Logger()}
}

func (r *LogRenderer) Render(e Entry) {
	r.logger.Info().
		Str("peer", string(e.Peer)).
		Str("tile", e.Kind.String()).
		Str("initial", e.Initial).
		Msg("participant tile")
}
