package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"restaurants/internal/client"
	"restaurants/internal/shared"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := shared.NewClientViper()

	root := &cobra.Command{
		Use:           "restaurants-cli",
		Short:         "Talk to a restaurants-server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to a YAML config file (env RESTAURANTS_CONFIG)")
	pf.String("server", "http://localhost:3000", "server base URL (env RESTAURANTS_SERVER_URL)")
	pf.Duration("timeout", 20*time.Second, "request timeout")
	pf.StringP("output", "o", "json", "output format: json or yaml")
	_ = v.BindPFlag(shared.KeyConfig, pf.Lookup("config"))
	_ = v.BindPFlag(shared.KeyServerURL, pf.Lookup("server"))
	_ = v.BindPFlag(shared.KeyTimeout, pf.Lookup("timeout"))

	newClient := func() (*client.Client, error) {
		cfg, err := shared.LoadClientConfig(v)
		if err != nil {
			return nil, err
		}
		return client.New(cfg), nil
	}

	root.AddCommand(
		newListCmd(newClient),
		newGetCmd(newClient),
		newCreateCmd(newClient),
		newUpdateCmd(newClient),
		newDeleteCmd(newClient),
	)
	return root
}

// clientFunc defers config loading until a subcommand runs, after flags
// are parsed.
type clientFunc func() (*client.Client, error)

// printResult writes v in the format chosen with --output.
func printResult(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return encode(cmd.OutOrStdout(), format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
