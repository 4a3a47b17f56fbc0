package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/config"
)

// withRuntime builds the runtime, runs fn and closes the runtime again
func withRuntime(cmd *cobra.Command, newRuntime runtimeFactory, fn func(ctx context.Context, rt *config.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if actor, _ := cmd.Flags().GetString("actor"); actor != "" {
		ctx = contentrepo.WithActor(ctx, actor)
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt)
}

func parseID(raw string) (contentrepo.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity id %q", raw)
	}
	return contentrepo.ID(id), nil
}

// parseIdentifier accepts a numeric id or an anchor name
func parseIdentifier(raw string) contentrepo.Identifier {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return contentrepo.IdentifierOf(contentrepo.ID(id))
	}
	return contentrepo.AnchorOf(raw)
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// NewStoreCommand creates the store command
func NewStoreCommand(newRuntime runtimeFactory) *cobra.Command {
	var (
		id       string
		parent   string
		name     string
		content  string
		file     string
		useGroup bool
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Create or update an entity",
		Long: `Create an entity below --parent, or update the entity given by --id.

Content is taken from --content or read from --file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if useGroup && (content != "" || file != "") {
				return fmt.Errorf("groups carry no content")
			}

			body := []byte(content)
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				body = data
			}

			entity := contentrepo.NewEntity(name, body)
			if useGroup {
				entity = contentrepo.NewGroup(name)
			}
			if id != "" {
				entity = entity.WithIdentifier(parseIdentifier(id))
			}
			if parent != "" {
				entity = entity.WithParent(parseIdentifier(parent))
			}

			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				identifier, err := rt.Service.Store(ctx, entity)
				if err != nil {
					return err
				}
				useJSON, _ := cmd.Flags().GetBool("json")
				if useJSON {
					return printJSON(cmd.OutOrStdout(), map[string]string{"id": identifier.String()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", identifier)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Id or anchor of the entity to update")
	cmd.Flags().StringVar(&parent, "parent", "", "Id or anchor of the parent group")
	cmd.Flags().StringVar(&name, "name", "", "Entity name")
	cmd.Flags().StringVar(&content, "content", "", "Entity content")
	cmd.Flags().StringVar(&file, "file", "", "Read entity content from a file")
	cmd.Flags().BoolVar(&useGroup, "group", false, "Create a group instead of a content entity")

	return cmd
}

// NewRemoveCommand creates the remove command
func NewRemoveCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Move an entity or an empty group to the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				if err := rt.Service.Remove(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
				return nil
			})
		},
	}
}

// NewRecoverCommand creates the recover command
func NewRecoverCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "recover <id>",
		Short: "Restore an entity from the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				if err := rt.Service.Recover(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recovered %s\n", id)
				return nil
			})
		},
	}
}

type recycleBinRow struct {
	ID        contentrepo.ID `json:"id"`
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Parent    *int64         `json:"parent,omitempty"`
	RemovedAt time.Time      `json:"removed_at"`
}

// NewRecycleBinCommand creates the recyclebin command
func NewRecycleBinCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "recyclebin",
		Short: "List the recycle bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				items, err := rt.RecycleBin.List(ctx)
				if err != nil {
					return fmt.Errorf("failed to list recycle bin: %w", err)
				}

				rows := make([]recycleBinRow, 0, len(items))
				for _, item := range items {
					row := recycleBinRow{
						ID:        item.ID(),
						Name:      item.Entity().Name(),
						Kind:      string(item.Entity().Kind()),
						RemovedAt: item.RemovedAt(),
					}
					if parent, ok := item.Parent(); ok {
						p := int64(parent)
						row.Parent = &p
					}
					rows = append(rows, row)
				}

				out := cmd.OutOrStdout()
				if useJSON, _ := cmd.Flags().GetBool("json"); useJSON {
					return printJSON(out, rows)
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tNAME\tKIND\tPARENT\tREMOVED\n")
				for _, row := range rows {
					parent := "-"
					if row.Parent != nil {
						parent = strconv.FormatInt(*row.Parent, 10)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
						row.ID, truncate(row.Name, 30), row.Kind, parent,
						row.RemovedAt.Format("2006-01-02 15:04:05"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nTotal: %d\n", len(rows))
				return nil
			})
		},
	}
}

// NewHistoryCommand creates the history command
func NewHistoryCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the audit history of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				entries, err := rt.History.Entries(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to read history: %w", err)
				}

				out := cmd.OutOrStdout()
				if useJSON, _ := cmd.Flags().GetBool("json"); useJSON {
					return printJSON(out, entries)
				}
				for _, entry := range entries {
					fmt.Fprintf(out, "%s  %s\n", entry.Timestamp.Format(time.RFC3339Nano), entry.Kind)
				}
				return nil
			})
		},
	}
}

// NewChildrenCommand creates the children command
func NewChildrenCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "children <id|anchor>",
		Short: "List the direct children of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				group, err := rt.Repository.Resolve(ctx, parseIdentifier(args[0]))
				if err != nil {
					return err
				}
				children, err := rt.Repository.Children(ctx, group)
				if err != nil {
					return fmt.Errorf("failed to list children: %w", err)
				}

				out := cmd.OutOrStdout()
				if useJSON, _ := cmd.Flags().GetBool("json"); useJSON {
					return printJSON(out, children)
				}
				for _, child := range children {
					fmt.Fprintln(out, child)
				}
				return nil
			})
		},
	}
}

// NewLockCommand creates the lock command
func NewLockCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <id>",
		Short: "Lock an entity for the acting actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			owner, _ := cmd.Flags().GetString("actor")
			if owner == "" {
				return fmt.Errorf("--actor is required to lock an entity")
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				lock, err := rt.Locks.Lock(ctx, id, owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Locked %s by %s (token %s)\n", id, lock.Owner, lock.Token)
				return nil
			})
		},
	}
}

// NewUnlockCommand creates the unlock command
func NewUnlockCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <id> <token>",
		Short: "Release an entity lock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			token, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid lock token %q: %w", args[1], err)
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				if err := rt.Locks.Unlock(ctx, id, token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %s\n", id)
				return nil
			})
		},
	}
}

// NewVersionsCommand creates the versions command
func NewVersionsCommand(newRuntime runtimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <id>",
		Short: "List the archived versions of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				versions, err := rt.Versions.Versions(ctx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if useJSON, _ := cmd.Flags().GetBool("json"); useJSON {
					return printJSON(out, versions)
				}
				for _, version := range versions {
					fmt.Fprintln(out, version.Format(time.RFC3339Nano))
				}
				return nil
			})
		},
	}
}

// NewPruneCommand creates the prune command
func NewPruneCommand(newRuntime runtimeFactory) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <id>",
		Short: "Delete old archived versions of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, newRuntime, func(ctx context.Context, rt *config.Runtime) error {
				deleted, err := rt.Versions.Prune(ctx, id, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d version(s) of %s\n", deleted, id)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 10, "Number of newest versions to keep")

	return cmd
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
