package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DockerPath is the docker binary every command runs.
var DockerPath = "docker"

const (
	dockerPermissionError = "Got permission denied while trying to connect to the Docker daemon socket"
	noSuchContainer       = "No such container"

	// backendUser owns the application files inside the backend container.
	backendUser = "wls"
)

// runErrorMessage describes a failed command, with a dedicated message for
// missing access to the Docker daemon.
func runErrorMessage(args []string, err error, stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if strings.Contains(stderr, dockerPermissionError) {
		return "Permission denied attempting to run Docker.\n" +
			"Is the current user either root or in the docker group?"
	}

	msg := `"` + strings.Join(args, " ") + `" failed`
	if err != nil {
		msg += "\n" + strings.TrimSpace(err.Error())
	}
	if stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

// runCommand runs args on the host. With capture, stdout is returned instead
// of being shown.
func (a *Admin) runCommand(ctx context.Context, args []string, echo, capture bool) (string, error) {
	if echo {
		fmt.Fprintln(a.out, strings.Join(args, " "))
	}

	var stdout, stderr bytes.Buffer
	c := Command{Args: args, Stdout: a.out, Stderr: io.MultiWriter(a.errOut, &stderr)}
	if capture {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	if err := a.runner.Run(ctx, c); err != nil {
		return "", newError(runErrorMessage(args, err, stderr.String()))
	}
	return stdout.String(), nil
}

type containerOpts struct {
	// User runs the command through su.
	User string
	// Stdout receives the output; nil shows it to the operator.
	Stdout io.Writer
	// Interactive attaches a terminal and the operator's stdin.
	Interactive bool
}

func (a *Admin) containerName(container string) string {
	return "wl-" + container + "-" + a.deployment
}

// runInContainer runs command with sh -c inside one of the deployment's
// containers: proxy, frontend, backend or db.
func (a *Admin) runInContainer(ctx context.Context, container, command string, opts containerOpts) error {
	name := a.containerName(container)

	if opts.User != "" {
		command = fmt.Sprintf(`su %s -c "%s"`, opts.User, command)
	}

	args := []string{DockerPath, "exec"}
	if opts.Interactive {
		args = append(args, "-it")
	}
	args = append(args, name, "sh", "-c", command)

	var stderr bytes.Buffer
	c := Command{Args: args, Stdout: opts.Stdout, Stderr: &stderr}
	if c.Stdout == nil {
		c.Stdout = a.out
	}
	if opts.Interactive {
		c.Stdin = a.in
	}

	err := a.runner.Run(ctx, c)
	if err == nil {
		return nil
	}

	var ec exitCoder
	if !errors.As(err, &ec) {
		return newError(runErrorMessage(args, err, ""))
	}

	out := stderr.String()
	switch {
	case strings.Contains(out, noSuchContainer):
		return newError(fmt.Sprintf("Unable to run backend command.\nIs %s container running?", name))
	case strings.TrimSpace(out) != "":
		return newError(strings.TrimSpace(out))
	}
	// interactive commands already showed their error on the terminal
	return newError("")
}

// captureInContainer runs command in container and returns its stdout.
func (a *Admin) captureInContainer(ctx context.Context, container, command, user string) (string, error) {
	var out bytes.Buffer
	if err := a.runInContainer(ctx, container, command, containerOpts{User: user, Stdout: &out}); err != nil {
		return "", err
	}
	return out.String(), nil
}
