package cli

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	builtindocs "github.com/vellum-notes/vellum/docs"
	"github.com/vellum-notes/vellum/internal/ui"
)

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Browse the bundled user guide",
	Long: `Browse the long-form documentation bundled into the vlm binary.

Without arguments, lists the available topics. With a topic, renders it for
the terminal; when stdout is not a terminal, the raw markdown is printed.

Examples:
  vlm docs
  vlm docs guide`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := docsTopics()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Println(ui.Header("Topics"))
			for _, topic := range topics {
				fmt.Printf("  %s\n", topic)
			}
			fmt.Println(ui.Hint("\nvlm docs <topic>"))
			return nil
		}

		topic := args[0]
		data, err := builtindocs.FS.ReadFile("guide/" + topic + ".md")
		if err != nil {
			return fmt.Errorf("unknown topic %q (run 'vlm docs' for the list)", topic)
		}

		if !isatty.IsTerminal(os.Stdout.Fd()) {
			fmt.Print(string(data))
			return nil
		}
		display := ui.NewDisplayContext()
		rendered, err := ui.RenderMarkdown(string(data), display.TermWidth)
		if err != nil {
			return err
		}
		fmt.Print(rendered)
		return nil
	},
}

func docsTopics() ([]string, error) {
	entries, err := fs.ReadDir(builtindocs.FS, "guide")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		topics = append(topics, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(topics)
	return topics, nil
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
