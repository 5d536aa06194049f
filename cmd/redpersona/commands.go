package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kalambet/redpersona/internal/config"
	"github.com/kalambet/redpersona/internal/persona"
	"github.com/kalambet/redpersona/internal/storage"
	"github.com/kalambet/redpersona/internal/view"
	"github.com/kalambet/redpersona/internal/workflow"
)

func viewOptions(cfg config.Config) view.Options {
	return view.Options{Now: now(), DateLayout: cfg.UI.DateLayout}
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <reddit-profile-url>",
	Short: "Analyze a Reddit user profile and print the persona",
	Long: `Analyze a Reddit user profile and print the persona.

Examples:
  redpersona analyze https://www.reddit.com/user/kojied/
  redpersona analyze --json https://www.reddit.com/user/kojied/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		citations, _ := cmd.Flags().GetBool("citations")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		printStep("Analyzing %s (this can take a while)...", args[0])
		st, err := s.ctrl.Analyze(cmd.Context(), args[0])
		if err != nil {
			if cmd.Context().Err() != nil {
				return fmt.Errorf("interrupted, the analysis is still running on the service: %w", err)
			}
			return err
		}
		if st.Phase == workflow.PhaseFailure {
			return errors.New(st.Message)
		}
		p := st.Persona
		if p == nil {
			return errors.New("analysis finished without a persona")
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		printSuccess("Persona %s created", p.ID)
		writePersona(cmd.OutOrStdout(), view.ProjectPersona(*p, viewOptions(s.cfg)), citations)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "print the persona as JSON")
	analyzeCmd.Flags().Bool("citations", false, "show up to three citations per section")
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List previously computed personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ctrl.Reload(cmd.Context()); err != nil {
			return err
		}
		v := view.Project(s.ctrl.Snapshot(), viewOptions(s.cfg))
		writeHistory(cmd.OutOrStdout(), v.History)
		return nil
	},
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <persona-id>",
	Short: "Show one persona from the service history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		markdown, _ := cmd.Flags().GetBool("markdown")
		citations, _ := cmd.Flags().GetBool("citations")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ctrl.Reload(cmd.Context()); err != nil {
			return err
		}
		p, ok := findPersona(s.ctrl.Snapshot().Personas, args[0])
		if !ok {
			return fmt.Errorf("persona %q not found", args[0])
		}
		pv := view.ProjectPersona(p, viewOptions(s.cfg))

		if markdown {
			out, err := renderMarkdown(personaMarkdown(pv, citations))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		}
		writePersona(cmd.OutOrStdout(), pv, citations)
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("markdown", false, "render the persona as formatted markdown")
	showCmd.Flags().Bool("citations", false, "show up to three citations per section")
}

func findPersona(list []persona.Persona, id string) (persona.Persona, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return persona.Persona{}, false
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <persona-id>",
	Short: "Download a persona report to persona_<id>.txt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		path, err := s.ctrl.ExportReport(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Saved report to %s", path)
		return nil
	},
}

// --- exports ---

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "List reports saved on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		personaID, _ := cmd.Flags().GetString("persona")

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		var list []storage.Export
		if personaID != "" {
			list, err = s.store.ExportsForPersona(personaID)
		} else {
			list, err = s.store.RecentExports(limit)
		}
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No exports yet.")
			return nil
		}
		t := now()
		for _, e := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %8s  %-14s  %s\n",
				e.PersonaID,
				humanize.Bytes(uint64(e.Bytes)),
				humanize.RelTime(e.CreatedAt, t, "ago", "from now"),
				e.Path,
			)
		}
		return nil
	},
}

func init() {
	exportsCmd.Flags().Int("limit", 20, "maximum number of exports to list")
	exportsCmd.Flags().String("persona", "", "list every export of one persona")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configSetCmd.Long = "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", ")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
