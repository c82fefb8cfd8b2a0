// Package games builds the controller for a definition's game type.
package games

import (
	"fmt"

	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/engine/flashcards"
	"github.com/stemsi/exstem-games/internal/engine/pairs"
	"github.com/stemsi/exstem-games/internal/engine/splat"
	"github.com/stemsi/exstem-games/internal/engine/swipe"
	"github.com/stemsi/exstem-games/internal/model"
)

// New returns an idle controller for def.
func New(def *model.GameDefinition, opts engine.Options) (engine.Controller, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: missing definition", engine.ErrInvalidDefinition)
	}
	var (
		c   engine.Controller
		err error
	)
	switch def.Type {
	case model.GameTypePairs:
		c, err = controller(pairs.NewGame(def, opts))
	case model.GameTypeFlashcards:
		c, err = controller(flashcards.NewGame(def, opts))
	case model.GameTypeTimedReaction:
		c, err = controller(splat.NewGame(def, opts))
	case model.GameTypeSwipe:
		c, err = controller(swipe.NewGame(def, opts))
	default:
		return nil, fmt.Errorf("%w: unknown game type %q", engine.ErrInvalidDefinition, def.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s session: %w", def.Type, err)
	}
	return c, nil
}

// controller keeps a failed constructor from leaking a typed nil.
func controller[C engine.Controller](c C, err error) (engine.Controller, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
