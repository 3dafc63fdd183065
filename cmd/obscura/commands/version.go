package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obscura-io/obscura/version"
)

// VersionCmd prints the binary's build metadata, human-readable by default
// or as JSON for scripting.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show Obscura version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error formatting JSON: %v\n", err)
				return
			}
			fmt.Println(string(out))
			return
		}

		fmt.Println(info.String())
		fmt.Printf("Platform: %s\nGo: %s\n", info.Platform, info.GoVersion)
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
