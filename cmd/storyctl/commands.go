// cmd/storyctl/commands.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/Corphon/StoryPlanner/internal/app"
	"github.com/Corphon/StoryPlanner/internal/config"
	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/services"
	"github.com/Corphon/StoryPlanner/internal/storage"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
	"github.com/spf13/cobra"
)

// globalFlags 覆盖环境变量中的存储配置
type globalFlags struct {
	dataDir string
	driver  string
	key     string
	verbose bool
}

// session 命令执行期间打开的存储与状态
type session struct {
	durable *storage.DurableStore
	store   *store.Store
	export  *services.ExportService
	closeKV func() error
}

func (s *session) Close() {
	s.durable.Close()
	if s.closeKV != nil {
		s.closeKV()
	}
}

func (g *globalFlags) open() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	if g.driver != "" {
		cfg.StorageDriver = g.driver
	}
	if g.key != "" {
		cfg.StorageKey = g.key
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// 命令行工具每次写入都立即落盘
	cfg.PersistDebounce = 0

	logger := utils.NewNopLogger()
	if g.verbose {
		logger = utils.GetLogger()
		logger.SetLogLevel(utils.DEBUG)
	}

	durable, closeKV, err := app.OpenDurableStore(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	st := store.New(durable, store.WithLogger(logger))
	return &session{
		durable: durable,
		store:   st,
		export:  services.NewExportService(st, durable, logger),
		closeKV: closeKV,
	}, nil
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "storyctl",
		Short: "StoryPlanner data maintenance",
		Long: `Maintenance commands over the StoryPlanner durable slot.

Storage settings come from the same environment variables as the server
(DATA_DIR, STORAGE_DRIVER, STORAGE_KEY); flags override them. Stop the
server before importing or resetting with the file driver, otherwise its
next debounced write replaces the slot again.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Data directory (default: $DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "Storage driver: file, sqlite or memory (default: $STORAGE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&flags.key, "key", "", "Slot key (default: $STORAGE_KEY)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newExportCmd(flags))
	rootCmd.AddCommand(newImportCmd(flags))
	rootCmd.AddCommand(newResetCmd(flags))
	rootCmd.AddCommand(newStatsCmd(flags))
	return rootCmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all projects to an export file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("创建导出文件失败: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := s.export.Export(w); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "已导出 %d 个项目到 %s\n", s.store.ProjectCount(), outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an export file (merge or replace)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("打开导入文件失败: %w", err)
			}
			defer f.Close()

			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			result := s.export.Import(f, models.ImportMode(mode))
			if !result.Success {
				return fmt.Errorf("导入失败: %s", result.Message)
			}
			return printCounts(cmd.OutOrStdout(), result.Imported)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(models.ImportMerge), "Import mode: merge or replace")
	return cmd
}

func newResetCmd(flags *globalFlags) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("reset 会删除全部数据，请加上 --yes 确认")
			}
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.export.ResetAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "全部数据已删除")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm deletion")
	return cmd
}

func newStatsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts per collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			counts := s.store.Stats()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(counts)
			}
			return printCounts(cmd.OutOrStdout(), counts)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func printCounts(w io.Writer, counts map[string]int) error {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counts[name])
	}
	return tw.Flush()
}
