package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kylebrothers/NCRI-Timelines/internal/config"
	"github.com/kylebrothers/NCRI-Timelines/tagger"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "timeline-tagger",
		Short: "Segment activity comments into dated spans and suggest tags",
		Long: "timeline-tagger splits free-text activity comments into date-grounded\n" +
			"segments and suggests classification tags learned from prior taggings.",
	}

	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .timeline-tagger.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for the JSON document store")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(segmentCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(learnCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(clearCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".timeline-tagger")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("TAGGER")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

func newService() (*tagger.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var logger *log.Logger
	if cfg.Verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	store, err := tagger.NewStore(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return tagger.NewService(
		tagger.NewProseSplitter(),
		tagger.NewWhenRecognizer(),
		store,
		cfg.Tagger(),
		logger,
	)
}

// readText joins args into the input text, falling back to stdin when no
// args are given so comments can be piped in.
func readText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func parseRefDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	ref, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD)", value)
	}
	return ref, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func segmentCmd() *cobra.Command {
	var refDate string
	var withSuggestions bool

	cmd := &cobra.Command{
		Use:   "segment [text]",
		Short: "Split a comment into dated segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args)
			if err != nil {
				return err
			}
			ref, err := parseRefDate(refDate)
			if err != nil {
				return err
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			var segments []tagger.Segment
			if withSuggestions {
				segments, err = svc.SegmentAndSuggest(text, ref)
			} else {
				segments, err = svc.SegmentComment(text, ref)
			}
			if err != nil {
				return err
			}
			return printJSON(segments)
		},
	}
	cmd.Flags().StringVar(&refDate, "date", "", "comment timestamp (YYYY-MM-DD), used as the reference date")
	cmd.Flags().BoolVar(&withSuggestions, "suggest", false, "attach tag suggestions to each segment")
	return cmd
}

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [text]",
		Short: "Suggest tags for a segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args)
			if err != nil {
				return err
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			suggestions := svc.SuggestTagsForSegment(text)
			if len(suggestions) == 0 {
				fmt.Println("no suggestions (is the suggester trained?)")
				return nil
			}
			return printJSON(suggestions)
		},
	}
	return cmd
}

func learnCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "learn [text]",
		Short: "Record a confirmed text/tags pair and retrain",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args)
			if err != nil {
				return err
			}
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.LearnFromTagging(text, tags); err != nil {
				return err
			}
			fmt.Printf("learned %d tag(s) for segment\n", len(tags))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags to associate with the text")
	_ = cmd.MarkFlagRequired("tags")
	return cmd
}

func tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tag definitions",
	}
	cmd.AddCommand(tagAddCmd())
	cmd.AddCommand(tagListCmd())
	return cmd
}

func tagAddCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add a tag definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.AddTag(args[0], name, description); err != nil {
				return err
			}
			fmt.Printf("added tag %s (%s)\n", args[0], name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "human-readable tag name")
	cmd.Flags().StringVar(&description, "description", "", "what the tag means")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func tagListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tag definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			tags := svc.Tags()
			if len(tags) == 0 {
				fmt.Println("no tags defined")
				return nil
			}
			return printJSON(tags)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show training and segmentation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"training":     svc.TrainingStats(),
				"segmentation": svc.SegmentationStats(),
			})
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-tagged",
		Short: "Empty the tagged-comment registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.ClearTaggedComments(); err != nil {
				return err
			}
			fmt.Println("tagged-comment registry cleared")
			return nil
		},
	}
}
