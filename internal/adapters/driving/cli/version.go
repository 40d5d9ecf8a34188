package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionJSON bool

// buildInfo is the machine-readable form of the version command.
type buildInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}

func currentBuildInfo() buildInfo {
	return buildInfo{
		Version:   version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := currentBuildInfo()
	if versionJSON {
		data, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal version: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Printf("compliance version %s (%s, %s)\n", info.Version, info.Platform, info.GoVersion)
	return nil
}
