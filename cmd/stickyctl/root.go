package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"stickyboard/client"
	"stickyboard/config"
	"stickyboard/localstore"
	"stickyboard/theme"
	"stickyboard/viewstate"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const keyCurrentBoard = "current_board"

var (
	configPath string
	verbose    bool
	outputFmt  string
	storeFlag  string
	serverFlag string
)

// app is what every subcommand works with, built once per invocation.
type app struct {
	cfg   *config.ClientConfig
	log   *zap.Logger
	store localstore.Store
	api   *client.Client
	theme *theme.State
	out   io.Writer
}

var rt *app

var rootCmd = &cobra.Command{
	Use:   "stickyctl",
	Short: "Terminal client for sticky-note boards",
	Long: `stickyctl manages boards and sticky notes on a stickyboard server,
keeps a local mirror of the current board and raises note reminders.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		rt = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt != nil {
			_ = rt.log.Sync()
			if c, ok := rt.store.(io.Closer); ok {
				_ = c.Close()
			}
		}
	},
}

// Execute runs the command tree; main calls it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fatal("stickyctl", err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (default ./stickyctl.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&outputFmt, "output", "o", "table", "output format: table, json or yaml")
	pf.StringVar(&storeFlag, "store", "", "override store.driver (file, redis, memory)")
	pf.StringVar(&serverFlag, "server", "", "override server_url")
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func newApp(cmd *cobra.Command) (*app, error) {
	switch outputFmt {
	case "table", "json", "yaml":
	default:
		return nil, fmt.Errorf("unknown output format %q", outputFmt)
	}

	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return nil, err
	}
	if storeFlag != "" {
		cfg.Store.Driver = storeFlag
	}
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	store, err := localstore.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	token, _, err := store.Get(ctx, localstore.KeyToken)
	if err != nil {
		return nil, err
	}
	api := client.New(cfg.ServerURL, client.WithToken(token), client.WithLogger(logger))

	th, err := theme.New(ctx, store, lipgloss.HasDarkBackground())
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: logger, store: store, api: api, theme: th, out: cmd.OutOrStdout()}, nil
}

var errNotLoggedIn = errors.New("not logged in, run: stickyctl login")

func (a *app) requireLogin() error {
	if a.api.Token() == "" {
		return errNotLoggedIn
	}
	return nil
}

// holder returns a view state with the current board selected.
func (a *app) holder(cmd *cobra.Command, boardID int64) (*viewstate.Holder, error) {
	if err := a.requireLogin(); err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if boardID == 0 {
		var err error
		boardID, err = a.currentBoard(cmd)
		if err != nil {
			return nil, err
		}
	}
	h, err := a.boardsView(cmd)
	if err != nil {
		return nil, err
	}
	if err := h.SelectBoard(ctx, boardID); err != nil {
		return nil, err
	}
	return h, nil
}

// boardsView returns a view state with only the board list loaded.
func (a *app) boardsView(cmd *cobra.Command) (*viewstate.Holder, error) {
	if err := a.requireLogin(); err != nil {
		return nil, err
	}
	h := viewstate.New(a.api, a.store, a.log)
	if _, err := h.LoadBoards(cmd.Context()); err != nil {
		return nil, err
	}
	return h, nil
}

// currentBoard returns the board picked with "boards use", falling back to the first board.
func (a *app) currentBoard(cmd *cobra.Command) (int64, error) {
	ctx := cmd.Context()
	raw, ok, err := a.store.Get(ctx, keyCurrentBoard)
	if err != nil {
		return 0, err
	}
	if ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	boards, err := a.api.ListBoards(ctx)
	if err != nil {
		return 0, err
	}
	if len(boards) == 0 {
		return 0, errors.New("no boards yet, run: stickyctl boards create <name>")
	}
	return boards[0].ID, a.store.Set(ctx, keyCurrentBoard, strconv.FormatInt(boards[0].ID, 10))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
