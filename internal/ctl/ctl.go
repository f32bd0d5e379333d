// Package ctl implements wlctl, the management CLI run inside the backend
// container: user administration and database restore.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weightlog/weightlog/internal/server/models"
	"github.com/weightlog/weightlog/internal/server/units"
)

// Users is the part of services.UserService wlctl needs.
type Users interface {
	Add(ctx context.Context, username string, metric bool, goalWeight float64, password string) (*models.User, error)
	Delete(ctx context.Context, username string) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, newPassword string) error
	List(ctx context.Context) ([]*models.User, error)
}

// RestoreFunc replaces the database content with the SQL in dump. source
// names the dump in error messages.
type RestoreFunc func(ctx context.Context, dump, source string) error

// Deps are the backend handles a command runs against.
type Deps struct {
	Users   Users
	Restore RestoreFunc
}

// Opener connects to the backend. It is only called by commands that need
// the database, after arguments were validated.
type Opener func(ctx context.Context) (*Deps, func(), error)

var ErrPasswordMismatch = errors.New("Passwords do not match.")

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// promptNewPassword asks for a password twice.
func promptNewPassword(w io.Writer) (string, error) {
	pw, err := promptPassword(w, "Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := promptPassword(w, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", ErrPasswordMismatch
	}
	return pw, nil
}

type cli struct {
	open Opener
	deps *Deps
	done func()
}

func (c *cli) connect(cmd *cobra.Command, _ []string) error {
	deps, done, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	c.deps, c.done = deps, done
	return nil
}

func (c *cli) close() {
	if c.done != nil {
		c.done()
		c.done = nil
	}
}

// releasing closes the backend handles once run returns, whatever its
// outcome.
func (c *cli) releasing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer c.close()
		return run(cmd, args)
	}
}

// NewRootCommand builds the wlctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:               "wlctl",
		Short:             "Weight Log backend management",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.connect,
	}

	root.AddCommand(
		c.addUserCommand(),
		c.deleteUserCommand(),
		c.passwdCommand(),
		c.listUsersCommand(),
		c.restoreCommand(),
	)
	for _, cmd := range root.Commands() {
		cmd.RunE = c.releasing(cmd.RunE)
	}
	return root
}

func (c *cli) addUserCommand() *cobra.Command {
	var english bool
	var goal float64

	cmd := &cobra.Command{
		Use:   "add-user [--english] --goal GOAL USERNAME",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptNewPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			u, err := c.deps.Users.Add(cmd.Context(), args[0], !english, goal, pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Added user %s (id %d)", u.Username, u.ID))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&english, "english", "e", false, "Use English units (lb) for weight. Default is metric (kg).")
	cmd.Flags().Float64VarP(&goal, "goal", "g", 0, "Goal weight.")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

func (c *cli) deleteUserCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user USERNAME",
		Short: "Delete a user and all of their entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.deps.Users.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("Deleted user %s", args[0]))
			return nil
		},
	}
}

func (c *cli) passwdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd USERNAME",
		Short: "Change the password of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.deps.Users.GetByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pw, err := promptNewPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := c.deps.Users.ChangePassword(cmd.Context(), u.ID, pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Password changed for %s", u.Username))
			return nil
		},
	}
}

func (c *cli) listUsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := c.deps.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tUNITS\tGOAL")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.UnitsName(),
					strconv.FormatFloat(units.Round(u.GoalWeight, 1), 'f', -1, 64))
			}
			return tw.Flush()
		},
	}
}

func (c *cli) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "db-restore FILE",
		Short: "Replace all data with the content of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("Could not read %s.\n%w", args[0], err)
			}
			if err := c.deps.Restore(cmd.Context(), string(dump), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Restored database from %s", args[0]))
			return nil
		},
	}
}
