package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/depsolve/internal/sampledata"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// depsolveMCPEntry is the MCP server configuration for the depsolve binary.
var depsolveMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "depsolve",
  "args": ["serve-mcp"]
}`)

// defaultConfig is written as depsolve.yml.
const defaultConfig = `# depsolve configuration. DEPSOLVE_* environment variables override these.
# The kuzu store keeps graphs across runs; it needs a cgo build.
store: memory
# store: kuzu
# kuzuPath: .depsolve/graphs.kuzu
aggregator: mean
# maxExpansions: 1000000
# timeout: 30s
`

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a config, the sample graphs and the MCP entry into a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

// runInit installs depsolve.yml, the embedded sample graphs and the MCP
// configuration into the target directory.
func runInit(out io.Writer, dir string, force bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	if err := writeFile(out, abs, filepath.Join(abs, "depsolve.yml"), []byte(defaultConfig), force); err != nil {
		return err
	}

	for _, name := range sampledata.Names() {
		data, err := sampledata.Raw(name)
		if err != nil {
			return err
		}
		dest := filepath.Join(abs, "graphs", name+".yaml")
		if err := writeFile(out, abs, dest, data, force); err != nil {
			return err
		}
	}

	if err := mergeMCPConfig(out, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nSetup complete. Load a graph with 'depsolve load graphs/webapp.yaml'.")
	return nil
}

func writeFile(out io.Writer, base, dest string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			fmt.Fprintf(out, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(base, dest))
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	fmt.Fprintf(out, "  created %s\n", dotRelative(base, dest))
	return nil
}

// mergeMCPConfig creates or merges the depsolve entry into .mcp.json.
func mergeMCPConfig(out io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["depsolve"]; exists && !force {
		fmt.Fprintf(out, "  skipped .mcp.json depsolve entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["depsolve"] = depsolveMCPEntry

	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(out, "  %s .mcp.json with depsolve MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
