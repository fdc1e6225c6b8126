package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or switch between the light and dark theme",
}

var themeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTheme(rt.theme.IsDark())
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip between light and dark and remember the choice",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dark, err := rt.theme.Toggle(cmd.Context())
		if err != nil {
			return err
		}
		return printTheme(dark)
	},
}

var themeSetCmd = &cobra.Command{
	Use:       "set <light|dark>",
	Short:     "Pick a theme explicitly",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"light", "dark"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var dark bool
		switch args[0] {
		case "dark":
			dark = true
		case "light":
		default:
			return fmt.Errorf("unknown theme %q", args[0])
		}
		if err := rt.theme.Set(cmd.Context(), dark); err != nil {
			return err
		}
		return printTheme(dark)
	},
}

func printTheme(dark bool) error {
	p := rt.printer()
	if ok, err := p.structured(map[string]bool{"darkMode": dark}); ok {
		return err
	}
	name := "light"
	if dark {
		name = "dark"
	}
	return p.message("Theme: %s", name)
}

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeShowCmd, themeToggleCmd, themeSetCmd)
}
