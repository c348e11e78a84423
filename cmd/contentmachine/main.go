package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/config"
	"github.com/TobiSchelling/ContentMachine/internal/database"
	"github.com/TobiSchelling/ContentMachine/internal/imagegen"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/pipeline"
	"github.com/TobiSchelling/ContentMachine/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "contentmachine",
	Short:   "Trending topics to LinkedIn posts",
	Long:    "contentmachine searches the web for trending topics in a niche, drafts LinkedIn posts for them and generates approvable images.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err = logging.New(cfg.Logging.Level, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("contentmachine", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/contentmachine/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your niche, providers and storage. API keys go in the environment or a .env file.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database, storage and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Data directory: %s\n", cfg.GetDataDir())
		fmt.Printf("Topic storage: %s\n\n", cfg.Storage.Backend)
		fmt.Println("Searches:")
		fmt.Printf("  Runs: %d\n", stats.SearchRuns)
		fmt.Printf("  Fallback runs: %d\n", stats.FallbackRuns)
		if stats.LastRunAt != "" {
			fmt.Printf("  Last run: %s\n", stats.LastRunAt)
		}
		fmt.Println("\nOutput:")
		fmt.Printf("  Posts: %d\n", stats.Posts)
		fmt.Printf("  Images: %d (%d approved)\n", stats.Images, stats.ApprovedImages)
		fmt.Println("\nCredentials:")
		creds := cfg.Credentials
		for _, c := range []struct {
			name string
			set  bool
		}{
			{"search (" + cfg.Search.Provider + ")", creds.Search != "" || cfg.Search.Provider == "feeds"},
			{"text (" + cfg.LLM.Provider + ")", creds.LLM != "" || creds.OpenAI != "" || cfg.LLM.Provider == "ollama"},
			{"image (" + cfg.Image.Provider + ")", creds.Image != ""},
		} {
			state := "missing"
			if c.set {
				state = "configured"
			}
			fmt.Printf("  %s: %s\n", c.name, state)
		}
		return nil
	},
}

// --- search / topics commands ---

var (
	searchCount   int
	searchRecency string
)

var searchCmd = &cobra.Command{
	Use:   "search [niche]",
	Short: "Search for trending topics and replace the stored list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			niche := ""
			if len(args) == 1 {
				niche = args[0]
			}
			result, err := p.SearchTopics(ctx, niche, searchCount, searchRecency)
			printSteps(os.Stdout, result)
			if err != nil {
				return explain(err)
			}
			fmt.Println()
			printTopics(os.Stdout, result.Topics)
			fmt.Println("\nPick one with 'contentmachine post <index>' or 'contentmachine compose'.")
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchCount, "count", "n", 0, "Number of topics (1-20, default from config)")
	searchCmd.Flags().StringVarP(&searchRecency, "recency", "r", "", "Publish window: day, week, month or year")
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the stored topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			list, err := p.LoadTopics(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No topics stored. Run: contentmachine search")
				return nil
			}
			printTopics(os.Stdout, list)
			return nil
		})
	},
}

// --- post / image / approve commands ---

var postExtra string

var postCmd = &cobra.Command{
	Use:   "post [index]",
	Short: "Generate a LinkedIn post for a stored topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid topic index: %s", args[0])
		}
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			topic, err := p.SelectTopic(ctx, index)
			if err != nil {
				return err
			}
			fmt.Printf("Generating post for: %s\n\n", topic.Title)
			res, err := p.GeneratePost(ctx, topic.Title, postExtra)
			if err != nil {
				return explain(err)
			}
			renderPost(os.Stdout, res.Body)
			return nil
		})
	},
}

func init() {
	postCmd.Flags().StringVarP(&postExtra, "extra", "e", "", "Additional context for the post")
}

var (
	imageTemplate string
	imageHeadline string
	imageStyle    string
)

var imageCmd = &cobra.Command{
	Use:   "image [index]",
	Short: "Generate an image for a stored topic (pending approval)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid topic index: %s", args[0])
		}
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			topic, err := p.SelectTopic(ctx, index)
			if err != nil {
				return err
			}
			fmt.Printf("Generating image for: %s\n", topic.Title)
			res, err := p.GenerateImage(ctx, imagegen.Request{
				Topic:    topic.Title,
				Style:    imageStyle,
				Template: imageTemplate,
				Headline: imageHeadline,
			})
			if err != nil {
				return explain(err)
			}
			fmt.Printf("Image saved: %s\n", res.Path)
			if res.ID > 0 {
				fmt.Printf("Approve it with: contentmachine approve %d\n", res.ID)
			}
			return nil
		})
	},
}

func init() {
	imageCmd.Flags().StringVarP(&imageTemplate, "template", "t", "", "Layout template name from config")
	imageCmd.Flags().StringVar(&imageHeadline, "headline", "", "Headline text to place on the image")
	imageCmd.Flags().StringVar(&imageStyle, "style", "", "Override the configured image style")
}

var approveCmd = &cobra.Command{
	Use:   "approve [id]",
	Short: "Approve a generated image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid image ID: %s", args[0])
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ApproveImage(id); err != nil {
			return err
		}
		img, err := db.GetImage(id)
		if err != nil {
			return err
		}
		fmt.Printf("Approved image [%d]: %s\n", id, img.Path)
		return nil
	},
}

// --- compose command ---

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Interactive wizard: pick a topic, write a post, approve an image",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			return newWizard(p, os.Stdin, os.Stdout).run(ctx)
		})
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			fmt.Printf("Starting server at http://localhost:%d\n", port)
			fmt.Println("Press Ctrl+C to stop")
			return server.Serve(p, cfg.GetOutputDir(), port, logger)
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, database.FileName), logger)
}

// withPipeline opens the database and topic store, runs fn and closes both.
func withPipeline(fn func(context.Context, *pipeline.Pipeline) error) error {
	ctx := context.Background()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := pipeline.New(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(ctx, p)
}

// explain adds the credential hint to errors a user can fix with configuration.
func explain(err error) error {
	if msg := hint(err); msg != "" {
		return fmt.Errorf("%w\n%s", err, msg)
	}
	return err
}

func hint(err error) string {
	if err == nil || !errors.Is(err, apierr.ErrCredentialMissing) {
		return ""
	}
	if cfg == nil {
		return "Set the missing API key in your environment or a .env file."
	}
	var names []string
	for _, n := range []string{cfg.Search.APIKeyEnv, cfg.LLM.APIKeyEnv, cfg.ImageKeyEnv()} {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return "Set the API key (" + strings.Join(names, ", ") + ") in your environment or a .env file."
}
