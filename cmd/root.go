package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the postmind application
var rootCmd = &cobra.Command{
	Use:   "postmind",
	Short: "Conversational assistant for your Gmail inbox",
	Long: `postmind is an HTTP service that puts a chat interface in front of a
Gmail account. Users sign in with Google OAuth and then ask for their
emails in natural language: show unread messages, summarize one, draft
a reply, or delete one (with an explicit confirmation step before
anything destructive happens).

Summaries, intent classification and reply drafting are delegated to a
hosted language model behind an OpenAI-compatible API.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "postmind version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
