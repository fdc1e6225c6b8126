package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var boardsCmd = &cobra.Command{
	Use:     "boards",
	Aliases: []string{"board"},
	Short:   "Manage boards",
}

var boardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your boards; the current one is starred",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := rt.boardsView(cmd)
		if err != nil {
			return err
		}
		var current int64
		if raw, ok, err := rt.store.Get(cmd.Context(), keyCurrentBoard); err == nil && ok {
			current, _ = strconv.ParseInt(raw, 10, 64)
		}
		return rt.printer().boards(view.Boards(), current)
	},
}

var boardsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print how many boards you own",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rt.requireLogin(); err != nil {
			return err
		}
		n, err := rt.api.CountBoards(cmd.Context())
		if err != nil {
			return err
		}
		p := rt.printer()
		if ok, err := p.structured(map[string]int{"count": n}); ok {
			return err
		}
		return p.message("%d", n)
	},
}

var boardsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a board",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := rt.boardsView(cmd)
		if err != nil {
			return err
		}
		board, err := view.CreateBoard(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return describe(err)
		}
		return rt.printer().board(board)
	},
}

var boardsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a board",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		view, err := rt.boardsView(cmd)
		if err != nil {
			return err
		}
		board, err := view.RenameBoard(cmd.Context(), id, strings.Join(args[1:], " "))
		if err != nil {
			return describe(err)
		}
		return rt.printer().board(board)
	},
}

var boardsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a board and every note on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		view, err := rt.boardsView(cmd)
		if err != nil {
			return err
		}
		raw, _, err := rt.store.Get(ctx, keyCurrentBoard)
		if err != nil {
			return err
		}
		isCurrent := raw == strconv.FormatInt(id, 10)
		if isCurrent {
			// selecting first lets the view clear the mirrored notes on delete
			if err := view.SelectBoard(ctx, id); err != nil {
				return err
			}
		}
		if err := view.DeleteBoard(ctx, id); err != nil {
			return err
		}
		if isCurrent {
			if err := rt.store.Remove(ctx, keyCurrentBoard); err != nil {
				return err
			}
		}
		return rt.printer().message("Board %d deleted", id)
	},
}

var boardsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a board current and mirror its notes locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		view, err := rt.holder(cmd, id)
		if err != nil {
			return err
		}
		if err := rt.store.Set(cmd.Context(), keyCurrentBoard, strconv.FormatInt(id, 10)); err != nil {
			return err
		}
		return rt.printer().message("Using board %d (%d notes)", id, len(view.Notes()))
	},
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.AddCommand(boardsListCmd, boardsCountCmd, boardsCreateCmd, boardsRenameCmd, boardsDeleteCmd, boardsUseCmd)
}
