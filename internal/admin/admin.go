package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/weightlog/weightlog/internal/logging"
)

// Admin operates the deployment rooted at a Weight Log checkout.
type Admin struct {
	rootDir    string
	configDir  string
	keysDir    string
	configFile string

	config     *Config
	deployment string

	runner Runner
	logger logging.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// Option customizes an Admin.
type Option func(*Admin)

func WithRunner(r Runner) Option { return func(a *Admin) { a.runner = r } }

func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *Admin) { a.in, a.out, a.errOut = in, out, errOut }
}

func WithLogger(l logging.Logger) Option { return func(a *Admin) { a.logger = l } }

// New prepares an Admin for the checkout in rootDir and reads its
// config/config.yml when present.
func New(rootDir string, opts ...Option) (*Admin, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, newError(fmt.Sprintf("Could not resolve %s.\n%v", rootDir, err))
	}

	a := &Admin{
		rootDir: root,
		runner:  ExecRunner{},
		logger:  logging.Nop{},
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	a.configDir = filepath.Join(root, ConfigDirName)
	a.keysDir = filepath.Join(a.configDir, KeysDirName)
	a.configFile = filepath.Join(a.configDir, ConfigFileName)

	for _, o := range opts {
		o(a)
	}

	a.config, err = LoadConfig(a.configFile)
	if err != nil {
		return nil, err
	}
	a.deployment = a.config.Deployment
	return a, nil
}

// checkDeployment fails unless init has been run.
func (a *Admin) checkDeployment(ctx context.Context) error {
	if a.deployment != "" {
		return nil
	}
	exists, err := a.artifactsExist(ctx)
	if err != nil {
		return err
	}
	if exists {
		return newError(fmt.Sprintf("No deployment setting found in %s", a.configFile))
	}
	return newError("No deployment found. To deploy run:\nwladmin init")
}

// artifactsExist reports whether a config directory or any wl- Docker
// object is present.
func (a *Admin) artifactsExist(ctx context.Context) (bool, error) {
	if fi, err := os.Stat(a.configDir); err == nil && fi.IsDir() {
		return true, nil
	}
	list, err := a.dockerList(ctx)
	if err != nil {
		return false, err
	}
	return list != "", nil
}

func (a *Admin) composeFiles(deployment string) []string {
	return []string{
		filepath.Join(a.configDir, "docker-compose.yml"),
		filepath.Join(a.configDir, "docker-compose."+deployment+".yml"),
		filepath.Join(a.configDir, "docker-network.yml"),
	}
}

func (a *Admin) composeArgs(deployment string) []string {
	args := []string{DockerPath, "compose"}
	for _, f := range a.composeFiles(deployment) {
		args = append(args, "--file", f)
	}
	return args
}

func (a *Admin) composeFilesExist() bool {
	for _, d := range []string{DeploymentDev, DeploymentProd} {
		for _, f := range a.composeFiles(d) {
			if _, err := os.Stat(f); err != nil {
				return false
			}
		}
	}
	return true
}

// DockerBuild builds the deployment's images. pull refreshes base images and
// disables the build cache.
func (a *Admin) DockerBuild(ctx context.Context, pull bool) error {
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	args := append(a.composeArgs(a.deployment), "build", "--build-arg", "ENV="+a.deployment)
	if pull {
		args = append(args, "--pull", "--no-cache")
	}
	_, err := a.runCommand(ctx, args, true, false)
	return err
}

func (a *Admin) DockerUp(ctx context.Context) error {
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	_, err := a.runCommand(ctx, append(a.composeArgs(a.deployment), "up", "--detach"), true, false)
	return err
}

func (a *Admin) DockerDown(ctx context.Context) error {
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	_, err := a.runCommand(ctx, append(a.composeArgs(a.deployment), "down"), true, false)
	return err
}

// listSection runs a docker listing and returns it under title, or "" when
// it only has the header line.
func (a *Admin) listSection(ctx context.Context, args []string, title string) (string, error) {
	out, err := a.runCommand(ctx, args, false, true)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if len(strings.Split(out, "\n")) > 1 {
		return title + "\n" + out, nil
	}
	return "", nil
}

func (a *Admin) dockerList(ctx context.Context) (string, error) {
	sections := []struct {
		args  []string
		title string
	}{
		{[]string{DockerPath, "images", "wl-*"}, "=== IMAGES ==="},
		{[]string{DockerPath, "ps", "-a", "--filter", "name=wl-*"}, "=== CONTAINERS ==="},
		{[]string{DockerPath, "volume", "ls", "--filter", "name=wl-*"}, "=== VOLUMES ==="},
		{[]string{DockerPath, "network", "ls", "--filter", "name=wl-*"}, "=== NETWORKS ==="},
	}

	var parts []string
	for _, s := range sections {
		p, err := a.listSection(ctx, s.args, s.title)
		if err != nil {
			return "", err
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// DockerList prints the images, containers, volumes and networks named wl-*.
func (a *Admin) DockerList(ctx context.Context) error {
	list, err := a.dockerList(ctx)
	if err != nil {
		return err
	}
	if list != "" {
		fmt.Fprintln(a.out, list)
	}
	return nil
}

func (a *Admin) deleteComposeContent(ctx context.Context, deployment string) (bool, error) {
	if !a.composeFilesExist() {
		return false, nil
	}

	steps := [][]string{
		append(a.composeArgs(deployment), "rm", "--force", "--stop", "--volumes"),
		{DockerPath, "volume", "rm", "wl-db-vol-dev", "--force"},
		{DockerPath, "volume", "rm", "wl-db-vol-prod", "--force"},
		append(a.composeArgs(deployment), "down", "--rmi", "all"),
	}
	for _, args := range steps {
		if _, err := a.runCommand(ctx, args, true, false); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (a *Admin) lookupIDs(ctx context.Context, args ...string) ([]string, error) {
	out, err := a.runCommand(ctx, append(append([]string{DockerPath}, args...), "--quiet"), false, true)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range strings.Split(out, "\n") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// deleteContentByPrefix removes every wl- Docker object when the compose
// files are gone.
func (a *Admin) deleteContentByPrefix(ctx context.Context) error {
	steps := []struct {
		lookup []string
		remove []string
	}{
		{[]string{"ps", "--all", "--filter", "name=wl-*"}, []string{"rm", "--force"}},
		{[]string{"volume", "ls", "--filter", "name=wl-*"}, []string{"volume", "rm", "--force"}},
		{[]string{"network", "ls", "--filter", "name=wl-*"}, []string{"network", "rm"}},
		{[]string{"images", "wl-*"}, []string{"rmi", "--force"}},
	}
	for _, s := range steps {
		ids, err := a.lookupIDs(ctx, s.lookup...)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			continue
		}
		args := append(append([]string{DockerPath}, s.remove...), ids...)
		if _, err := a.runCommand(ctx, args, true, false); err != nil {
			return err
		}
	}
	return nil
}

// DockerRm deletes the deployment with its containers, volumes, images and
// config directory after the operator confirms.
func (a *Admin) DockerRm(ctx context.Context) error {
	fmt.Fprint(a.out, "Delete all Weight Log docker containers, volumes, and images? (y/N) ")
	answer, _ := bufio.NewReader(a.in).ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		return nil
	}

	ok, err := a.deleteComposeContent(ctx, DeploymentDev)
	if err != nil {
		return err
	}
	if ok {
		ok, err = a.deleteComposeContent(ctx, DeploymentProd)
		if err != nil {
			return err
		}
	}
	if !ok {
		if err := a.deleteContentByPrefix(ctx); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(a.configDir); err != nil {
		return newError(fmt.Sprintf("Unable to delete %s.\n%v", a.configDir, err))
	}
	a.logger.Info(ctx, "deployment removed", "config_dir", a.configDir)
	return nil
}
