package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/nicolagi/todo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errConflictingFlags = errors.New("conflicting flags")

// opener gives access to the list for the duration of one command.
type opener func(ctx context.Context, configFile string) (list *todo.List, done func(), err error)

type cli struct {
	open       opener
	configFile string
	verbose    bool
}

// withList runs f with the opened list.
func (c *cli) withList(cmd *cobra.Command, f func(ctx context.Context, list *todo.List) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	list, done, err := c.open(ctx, c.configFile)
	if err != nil {
		return err
	}
	defer done()
	return f(ctx, list)
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:           "todoctl",
		Short:         "Manage your to-do list",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if c.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "configuration file (default lib/todo/config.yaml in the home directory)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug messages")
	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.listCmd(),
		c.addCmd(),
		c.checkCmd("check", true),
		c.checkCmd("uncheck", false),
		c.editCmd(),
		c.clearCmd(),
		c.refreshCmd(),
	)
	return root
}

func (c *cli) loginCmd() *cobra.Command {
	var anonymous bool
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in, anonymously or with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if anonymous == (email != "") {
				return fmt.Errorf("either --anonymous or --email: %w", errConflictingFlags)
			}
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				if anonymous {
					return list.LoginAnonymously(ctx)
				}
				return list.Login(ctx, email, password)
			})
		},
	}
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "log in as a new anonymous user")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				return list.Register(ctx, email, password)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				return list.Logout(ctx)
			})
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				user := list.User()
				if user == nil {
					return todo.ErrNotLoggedIn
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", user, user.Provider, user.ID)
				return err
			})
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var checked, unchecked, offline, alphabetically bool
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checked && unchecked {
				return fmt.Errorf("--checked and --unchecked: %w", errConflictingFlags)
			}
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				if !offline {
					if err := list.Refresh(ctx); err != nil {
						return err
					}
				} else if !list.IsLoggedIn() {
					return todo.ErrNotLoggedIn
				}
				scan := list.SearchItems()
				if checked || unchecked {
					scan.WithChecked(checked)
				}
				if search != "" {
					scan.WithTask(search)
				}
				items := scan.Results()
				if alphabetically {
					sort.SliceStable(items, func(i, j int) bool {
						return strings.ToLower(items[i].Task) < strings.ToLower(items[j].Task)
					})
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
				for _, item := range items {
					mark := "[ ]"
					if item.Checked {
						mark = "[x]"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ID.Hex(), mark, item.Task)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&checked, "checked", false, "only checked items")
	cmd.Flags().BoolVar(&unchecked, "unchecked", false, "only unchecked items")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only items whose task contains this text")
	cmd.Flags().BoolVar(&offline, "offline", false, "list the local snapshot, without refreshing")
	cmd.Flags().BoolVarP(&alphabetically, "alphabetically", "a", false, "sort by task")
	return cmd
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add TASK...",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				item := todo.NewItem(strings.Join(args, " "))
				if err := list.AddItem(ctx, item); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), item.ID.Hex())
				return err
			})
		},
	}
}

func (c *cli) checkCmd(use string, checked bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: strings.ToUpper(use[:1]) + use[1:] + " items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				for _, id := range ids {
					if err := list.UpdateItemChecked(ctx, id, checked); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (c *cli) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID TASK...",
		Short: "Change the task of an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := todo.ParseID(args[0])
			if err != nil {
				return err
			}
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				return list.UpdateItemTask(ctx, id, strings.Join(args[1:], " "))
			})
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	var everything bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete checked items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				if everything {
					return list.ClearAllItems(ctx)
				}
				return list.ClearCheckedItems(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&everything, "all", false, "delete all items, checked or not")
	return cmd
}

func (c *cli) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the items and save them locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withList(cmd, func(ctx context.Context, list *todo.List) error {
				if err := list.Refresh(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d items\n", len(list.Items()))
				return err
			})
		},
	}
}

func parseIDs(args []string) ([]todo.ID, error) {
	var ids []todo.ID
	for _, arg := range args {
		id, err := todo.ParseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
