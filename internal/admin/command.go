package admin

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weightlog/weightlog/internal/logging"
)

type cli struct {
	rootDir string
	verbose bool
	opts    []Option
	admin   *Admin
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	opts := []Option{
		WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		WithLogger(logging.New(cmd.ErrOrStderr(), level, false).With("module", "wladmin")),
	}

	a, err := New(c.rootDir, append(opts, c.opts...)...)
	if err != nil {
		return err
	}
	c.admin = a
	return nil
}

// NewRootCommand builds the wladmin command tree. opts are applied after the
// command's own streams and logger.
func NewRootCommand(opts ...Option) *cobra.Command {
	c := &cli{opts: opts}

	root := &cobra.Command{
		Use:               "wladmin",
		Short:             "Deploy and operate Weight Log",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}
	root.PersistentFlags().StringVar(&c.rootDir, "root", ".", "Weight Log checkout the deployment belongs to.")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr.")

	root.AddCommand(c.initCommand(), c.dockerCommand(), c.userCommand(), c.dbCommand())
	return root
}

func (c *cli) initCommand() *cobra.Command {
	var opts InitOptions
	cmd := &cobra.Command{
		Use:   "init --homepage URL --env dev|prod",
		Short: "Create a new deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.admin.Init(cmd.Context(), opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Deployment created. To build it run:\nwladmin docker build"))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Homepage, "homepage", "", "URL the application is served from.")
	cmd.Flags().StringVar(&opts.Env, "env", DeploymentDev, "Deployment type, dev or prod.")
	cmd.Flags().StringVar(&opts.Database, "database", "", "Application database name.")
	cmd.Flags().StringVar(&opts.Network, "network", "", "Existing Docker network to attach to.")
	cmd.Flags().IntVar(&opts.HTTPHostPort, "http-host-port", 0, "Host port to publish the HTTP proxy on.")
	_ = cmd.MarkFlagRequired("homepage")
	return cmd
}

func (c *cli) dockerCommand() *cobra.Command {
	docker := &cobra.Command{
		Use:   "docker",
		Short: "Manage the deployment's images and containers",
	}

	var pull bool
	build := &cobra.Command{
		Use:   "build",
		Short: "Build the images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.admin.DockerBuild(cmd.Context(), pull)
		},
	}
	build.Flags().BoolVar(&pull, "pull", false, "Pull newer base images and ignore the build cache.")

	docker.AddCommand(
		build,
		&cobra.Command{
			Use:   "up",
			Short: "Start the containers",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return c.admin.DockerUp(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "down",
			Short: "Stop the containers",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return c.admin.DockerDown(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "rm",
			Short: "Delete containers, volumes, images and the config directory",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return c.admin.DockerRm(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "list",
			Short: "List Weight Log images, containers, volumes and networks",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return c.admin.DockerList(cmd.Context()) },
		},
	)
	return docker
}

func (c *cli) userCommand() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var english bool
	var goal float64
	add := &cobra.Command{
		Use:   "add [--english] --goal GOAL USERNAME",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.admin.UserAdd(cmd.Context(), args[0], english, goal)
		},
	}
	add.Flags().BoolVarP(&english, "english", "e", false, "Use English units (lb) for weight.")
	add.Flags().Float64VarP(&goal, "goal", "g", 0, "Goal weight.")
	_ = add.MarkFlagRequired("goal")

	user.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List users",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return c.admin.UserList(cmd.Context()) },
		},
		add,
		&cobra.Command{
			Use:   "delete USERNAME",
			Short: "Delete a user and their entries",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.admin.UserDelete(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "chpasswd USERNAME",
			Short: "Change the password of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.admin.UserChpasswd(cmd.Context(), args[0])
			},
		},
	)
	return user
}

func (c *cli) dbCommand() *cobra.Command {
	db := &cobra.Command{
		Use:   "db",
		Short: "Back up and restore the database",
	}

	var upload bool
	backup := &cobra.Command{
		Use:   "backup FILE",
		Short: "Write a data-only dump of the database to FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.admin.DBBackup(cmd.Context(), args[0], upload)
		},
	}
	backup.Flags().BoolVar(&upload, "upload", false, "Also upload the dump to the configured S3 bucket.")

	var fromS3 string
	restore := &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace the database content with the dump in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.admin.DBRestore(cmd.Context(), args[0], fromS3)
		},
	}
	restore.Flags().StringVar(&fromS3, "from-s3", "", "Download this object key to FILE first.")

	db.AddCommand(backup, restore)
	return db
}
