package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// stopCmd asks a running scriptdeck server to terminate a script.
var stopCmd = &cobra.Command{
	Use:   "stop <script>",
	Short: "Stop a running script on a scriptdeck server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		force, _ := cmd.Flags().GetBool("force")

		path, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		body, _ := json.Marshal(map[string]any{"path": path, "force": force})
		resp, err := http.Post("http://"+addr+"/api/stop", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent:
			fmt.Println("stopped")
		case http.StatusNotFound:
			fmt.Println("script is not running")
		default:
			msg, _ := io.ReadAll(resp.Body)
			fmt.Printf("Error: %s\n", bytes.TrimSpace(msg))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)

	stopCmd.Flags().String("addr", "localhost:8321", "Address of the scriptdeck server")
	stopCmd.Flags().BoolP("force", "f", false, "Force-kill instead of graceful termination")
}
