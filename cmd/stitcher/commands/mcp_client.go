package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	appmcp "github.com/0x5457/stitcher/internal/mcp"
	"github.com/spf13/cobra"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"
	transportSSE   = "sse"
)

type clientFlags struct {
	transport string
	address   string
	root      string
}

// NewMCPClientCommand creates commands for talking to a running MCP server
func NewMCPClientCommand() *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "mcp-client",
		Short: "MCP client commands",
		Long:  "Commands for connecting to and interacting with a stitcher MCP server",
	}

	cmd.PersistentFlags().
		StringVarP(&flags.transport, "transport", "t", transportStdio, "transport (stdio, http, sse)")
	cmd.PersistentFlags().
		StringVarP(&flags.address, "address", "a", "", "server URL (http/sse), ignored for stdio")

	cmd.AddCommand(
		newMCPCallCommand(flags),
		newMCPListToolsCommand(flags),
	)
	return cmd
}

func newMCPCallCommand(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool_name> [args...]",
		Short: "Call a specific MCP tool",
		Long: `Call a specific MCP tool with arguments.
Arguments should be provided as key=value pairs.

Example:
  stitcher mcp-client call find_usages fqn=pkg.core.Engine nested=true`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			client, err := createMCPClient(ctx, flags, cmd.Flag("root").Value.String())
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			result, err := client.Call(ctx, args[0], toolArgs)
			if err != nil {
				return fmt.Errorf("call tool failed: %w", err)
			}

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("format result failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			if result.IsError {
				return fmt.Errorf("tool %s reported an error", args[0])
			}
			return nil
		},
	}
}

func newMCPListToolsCommand(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List available MCP tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client, err := createMCPClient(ctx, flags, cmd.Flag("root").Value.String())
			if err != nil {
				return fmt.Errorf("create MCP client failed: %w", err)
			}
			defer client.Close() //nolint:errcheck

			tools, err := client.Tools(ctx)
			if err != nil {
				return fmt.Errorf("failed to list tools: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(tools) == 0 {
				fmt.Fprintln(out, "No tools available")
				return nil
			}

			fmt.Fprintf(out, "Available MCP tools (%d):\n\n", len(tools))
			for i, tool := range tools {
				fmt.Fprintf(out, "%d. %s\n", i+1, tool.Name)
				if tool.Description != "" {
					fmt.Fprintf(out, "   Description: %s\n", tool.Description)
				}
				names := make([]string, 0, len(tool.InputSchema.Properties))
				for name := range tool.InputSchema.Properties {
					names = append(names, name)
				}
				sort.Strings(names)
				if len(names) > 0 {
					fmt.Fprintf(out, "   Parameters:\n")
				}
				for _, name := range names {
					required := ""
					if slices.Contains(tool.InputSchema.Required, name) {
						required = " (required)"
					}
					desc := ""
					if propMap, ok := tool.InputSchema.Properties[name].(map[string]any); ok {
						if d, ok := propMap["description"].(string); ok {
							desc = ": " + d
						}
					}
					fmt.Fprintf(out, "     - %s%s%s\n", name, required, desc)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// parseToolArgs turns key=value pairs into tool arguments, keeping numbers
// and booleans typed.
func parseToolArgs(args []string) (map[string]any, error) {
	toolArgs := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument format: %s (expected key=value)", arg)
		}
		if val, err := strconv.Atoi(value); err == nil {
			toolArgs[key] = val
		} else if val, err := strconv.ParseBool(value); err == nil {
			toolArgs[key] = val
		} else {
			toolArgs[key] = value
		}
	}
	return toolArgs, nil
}

func createMCPClient(ctx context.Context, flags *clientFlags, root string) (*appmcp.Client, error) {
	switch flags.transport {
	case transportStdio:
		self, err := os.Executable()
		if err != nil {
			return nil, err
		}
		return appmcp.NewStdioClient(ctx, self, "--root", root, "mcp", "--transport", transportStdio)
	case transportHTTP:
		address := flags.address
		if address == "" {
			address = "http://127.0.0.1:8080/mcp"
		}
		return appmcp.NewHTTPClient(ctx, address)
	case transportSSE:
		address := flags.address
		if address == "" {
			address = "http://127.0.0.1:8080/mcp/sse"
		}
		return appmcp.NewSSEClient(ctx, address)
	default:
		return nil, fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			flags.transport,
		)
	}
}
