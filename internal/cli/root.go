// Package cli implements gamectl, the operator tool for game definitions.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stemsi/exstem-games/internal/config"
	"github.com/stemsi/exstem-games/internal/engine"
	"github.com/stemsi/exstem-games/internal/engine/games"
	"github.com/stemsi/exstem-games/internal/model"
	"github.com/stemsi/exstem-games/internal/service"
	"github.com/stemsi/exstem-games/internal/validator"
)

// GameStore stores and lists definitions.
type GameStore interface {
	Upsert(ctx context.Context, g *model.Game) error
	List(ctx context.Context, gameType *model.GameType) ([]model.Game, error)
}

// Deps are the collaborators commands open lazily, so validate works without
// a database.
type Deps struct {
	Config    func() *config.Config
	OpenStore func(ctx context.Context) (GameStore, func(), error)
}

// ErrInvalidFiles is returned when any definition file fails validation.
var ErrInvalidFiles = errors.New("invalid definition files")

// Execute runs gamectl.
func Execute(ctx context.Context, deps Deps) error {
	return NewRootCmd(deps).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gamectl",
		Short:         "Validate, seed and list learning-game definitions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newSeedCmd(deps),
		newListCmd(deps),
		newTokenCmd(deps),
	)

	return rootCmd
}

// check loads and validates one file, then builds a controller from it so
// anything the engine would reject is caught too.
func check(path string) (*model.GameDefinition, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	if fields := validator.ValidateStruct(def); fields != nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, k+": "+fields[k])
		}
		return nil, fmt.Errorf("%s: %s", path, strings.Join(msgs, "; "))
	}
	if _, err := games.New(def, engine.Options{Timings: engine.DefaultTimings()}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check definition files (.json or .toml)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				def, err := check(path)
				if err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %v\n", err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s, %d items, key %s)\n",
					path, def.Type, def.ItemCount(), def.DefinitionKey())
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidFiles, failed, len(args))
			}
			return nil
		},
	}
}

func newSeedCmd(deps Deps) *cobra.Command {
	var authorID int

	cmd := &cobra.Command{
		Use:   "seed FILE...",
		Short: "Validate definition files and upsert them into the games table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := make([]*model.GameDefinition, 0, len(args))
			for _, path := range args {
				def, err := check(path)
				if err != nil {
					return err
				}
				defs = append(defs, def)
			}

			store, closeStore, err := deps.OpenStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore()

			for i, def := range defs {
				g := &model.Game{ID: def.ID, AuthorID: authorID, Definition: *def}
				if err := store.Upsert(cmd.Context(), g); err != nil {
					return fmt.Errorf("seed %s: %w", args[i], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %s as %s\n", args[i], g.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&authorID, "author", 0, "tutor id owning the games (0 = visible to every tutor)")
	return cmd
}

func newListCmd(deps Deps) *cobra.Command {
	var gameType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored games, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *model.GameType
			if gameType != "" {
				gt := model.GameType(gameType)
				if !gt.Valid() {
					return fmt.Errorf("unknown game type %q", gameType)
				}
				filter = &gt
			}

			store, closeStore, err := deps.OpenStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore()

			games, err := store.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list games: %w", err)
			}
			for _, g := range games {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-14s  author=%d  %s\n", g.ID, g.Type, g.AuthorID, g.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gameType, "type", "", "only list games of this type")
	return cmd
}

func newTokenCmd(deps Deps) *cobra.Command {
	var (
		tokenType string
		userID    int
		groupID   int
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tt := service.TokenType(tokenType)
			if tt != service.TokenTypePlayer && tt != service.TokenTypeTutor {
				return fmt.Errorf("unknown token type %q (want player or tutor)", tokenType)
			}
			if userID <= 0 {
				return errors.New("--user must be positive")
			}

			token, err := service.NewAuthService(deps.Config()).IssueToken(tt, userID, groupID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenType, "type", string(service.TokenTypePlayer), "player or tutor")
	cmd.Flags().IntVar(&userID, "user", 0, "user id")
	cmd.Flags().IntVar(&groupID, "group", 0, "player group id")
	return cmd
}
