package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/mentord/internal/config"
	"github.com/kalambet/mentord/internal/filestore"
	"github.com/kalambet/mentord/internal/ollama"
	"github.com/kalambet/mentord/internal/personalize"
	"github.com/kalambet/mentord/internal/recommend"
	"github.com/kalambet/mentord/internal/storage"
)

// --- personalize ---

var personalizeCmd = &cobra.Command{
	Use:   "personalize <user-id> <query>",
	Short: "Classify a query and print the tailoring",
	Long: `Classify a query for a learner and print the tailoring.

Examples:
  mentord personalize ada "What is a binary search tree?"
  mentord personalize ada@example.com "hello" --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/v1/personalize", map[string]string{
			"user_id": args[0],
			"query":   strings.Join(args[1:], " "),
		})
		if err != nil {
			return err
		}

		var t personalize.Tailoring
		if err := decodeJSON(resp, &t); err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), t)
		}
		printTailoring(cmd, t)
		return nil
	},
}

func printTailoring(cmd *cobra.Command, t personalize.Tailoring) {
	w := cmd.OutOrStdout()
	if t.PersonalizedGreeting != "" {
		fmt.Fprintln(w, t.PersonalizedGreeting)
	}
	if t.Response != "" {
		fmt.Fprintln(w, t.Response)
	}
	fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
		colorize(colorBold, "type:"), t.QueryType,
		colorize(colorBold, "level:"), t.Level,
		colorize(colorBold, "tone:"), t.Tone,
	)
	if t.Topic != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "topic:"), t.Topic)
	}
	if t.TailoredInstruction != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "instruction:"), t.TailoredInstruction)
	}
	printList(w, "Knowledge gaps", t.KnowledgeGaps)
	printList(w, "Next steps", t.Recommendations.NextSteps)
	if t.Degraded {
		printWarning("profile changes were not persisted")
	}
}

func init() {
	personalizeCmd.Flags().Bool("json", false, "print the raw JSON response")
}

// --- interact ---

var interactCmd = &cobra.Command{
	Use:   "interact <user-id> <topic> <success-rate>",
	Short: "Record a graded interaction on a topic",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid success rate %q: %w", args[2], err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/v1/interactions", map[string]any{
			"user_id":      args[0],
			"topic":        args[1],
			"success_rate": rate,
		})
		if err != nil {
			return err
		}

		var res personalize.InteractionResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("%s: proficiency %.0f%% after %d interactions (level %s)",
			res.Area.Topic, res.Area.Proficiency*100, res.Area.Interactions, res.SkillLevel)
		return nil
	},
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback <user-id> <query>",
	Short: "Record feedback on a previous answer",
	Long: `Record feedback on a previous answer.

Examples:
  mentord feedback ada "explain heaps" --unhelpful --topic heaps
  mentord feedback ada "explain heaps" --text "great diagram"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		unhelpful, _ := cmd.Flags().GetBool("unhelpful")
		text, _ := cmd.Flags().GetString("text")
		topic, _ := cmd.Flags().GetString("topic")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/v1/feedback", map[string]any{
			"user_id":     args[0],
			"query":       strings.Join(args[1:], " "),
			"was_helpful": !unhelpful,
			"feedback":    text,
			"topic":       topic,
		})
		if err != nil {
			return err
		}

		var res personalize.FeedbackResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("Stored feedback %s", res.ID)
		return nil
	},
}

func init() {
	feedbackCmd.Flags().Bool("unhelpful", false, "mark the answer as not helpful")
	feedbackCmd.Flags().String("text", "", "free-text feedback")
	feedbackCmd.Flags().String("topic", "", "topic of the answer")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and edit learner profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a learner profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetBool("summary")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if summary {
			resp, err := client.get(cmd.Context(), profilePath(args[0], "/summary"))
			if err != nil {
				return err
			}
			var body map[string]string
			if err := decodeJSON(resp, &body); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body["summary"])
			return nil
		}

		resp, err := client.get(cmd.Context(), profilePath(args[0], ""))
		if err != nil {
			return err
		}
		var p any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <user-id>",
	Short: "Update display name, learning styles or goals",
	Long: `Update learner preferences.

Examples:
  mentord profile set ada --name "Ada"
  mentord profile set ada --styles visual,interactive --goal "learn graphs"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := preferencesBody(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), profilePath(args[0], ""), body)
		if err != nil {
			return err
		}
		var res personalize.PreferencesResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		printSuccess("Profile %s updated (version %d)", res.Profile.UserID, res.Profile.Version)
		return nil
	},
}

func preferencesBody(cmd *cobra.Command) (map[string]any, error) {
	body := map[string]any{}
	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		body["display_name"] = name
	}
	if styles, _ := cmd.Flags().GetStringSlice("styles"); len(styles) > 0 {
		body["preferred_learning_styles"] = styles
	}
	if goals, _ := cmd.Flags().GetStringArray("goal"); len(goals) > 0 {
		body["goals"] = goals
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("one of --name, --styles or --goal is required")
	}
	return body, nil
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles (reads the data dir directly)",
	Long: `List stored profiles from the primary database. When the database
cannot be reached the user ids held by the file store are listed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fallbackDir := filepath.Join(cfg.Storage.DataDir, fallbackDirName)
		store, err := openPrimary(cmd.Context(), cfg)
		if err != nil {
			return listFallbackProfiles(cmd, fallbackDir, limit, err)
		}
		defer store.Close()

		rows, err := store.ListProfiles(cmd.Context(), limit)
		if err != nil {
			return listFallbackProfiles(cmd, fallbackDir, limit, err)
		}
		printProfileRows(cmd, rows)
		return nil
	},
}

// listFallbackProfiles prints the user ids found in the file store. cause
// is the primary store failure that led here.
func listFallbackProfiles(cmd *cobra.Command, dir string, limit int, cause error) error {
	printWarning("primary store unavailable (%v), listing %s", cause, dir)
	files, err := filestore.Open(dir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	ids, err := files.ListUserIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No profiles found.")
		return nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	printList(cmd.OutOrStdout(), "Profiles in the file store:", ids)
	return nil
}

func printProfileRows(cmd *cobra.Command, rows []storage.ProfileRow) {
	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No profiles found.")
		return
	}
	for _, r := range rows {
		name := r.DisplayName
		if name == "" {
			name = r.Email
		}
		fmt.Fprintf(w, "%s  %-12s  v%-4d  %4d interactions  %s  %s\n",
			colorize(colorCyan, truncate(r.UserID, 36)),
			r.SkillLevel,
			r.Version,
			r.InteractionsCount,
			r.UpdatedAt.Format("2006-01-02 15:04"),
			name,
		)
	}
}

func init() {
	profileShowCmd.Flags().Bool("summary", false, "print the natural-language summary instead")
	profileSetCmd.Flags().String("name", "", "display name")
	profileSetCmd.Flags().StringSlice("styles", nil, "comma-separated learning styles (visual, textual, auditory, kinesthetic, interactive)")
	profileSetCmd.Flags().StringArray("goal", nil, "learning goal (repeatable)")
	profileListCmd.Flags().Int("limit", 20, "maximum number of profiles to list")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileListCmd)
}

// --- recommend ---

var recommendCmd = &cobra.Command{
	Use:   "recommend <user-id>",
	Short: "Show recommended flashcards, games, resources and next steps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), profilePath(args[0], "/recommendations"))
		if err != nil {
			return err
		}
		var recs recommend.Recommendations
		if err := decodeJSON(resp, &recs); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printList(w, "Flashcards", itemTitles(recs.Flashcards))
		printList(w, "Games", itemTitles(recs.Games))
		printList(w, "Resources", itemTitles(recs.Resources))
		printList(w, "Next steps", recs.NextSteps)
		return nil
	},
}

func itemTitles(items []recommend.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = fmt.Sprintf("%s: %s", it.Title, it.Description)
	}
	return out
}

// --- model ---

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage the local classification model",
}

var modelPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull textgen.model into the local Ollama server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.TextGen.Backend != "ollama" {
			printWarning("textgen.backend is %q; nothing to pull", cfg.TextGen.Backend)
			return nil
		}
		return ollama.EnsureModel(cmd.Context(), ollama.New(cfg.TextGen.OllamaURL), cfg.TextGen.Model, os.Stderr)
	},
}

func init() {
	modelCmd.AddCommand(modelPullCmd)
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
		cfg, err := config.Load()
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
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- token ---

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API bearer token",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := config.GenerateAPIToken()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		printSuccess("Token stored in %s; restart mentord serve to use it", config.SecretsPath())
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenGenerateCmd)
}
