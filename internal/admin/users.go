package admin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// wlctl is the backend management CLI inside the backend container.
const wlctl = "./wlctl"

// usernamePattern keeps usernames safe to place in a container shell
// command.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

func checkUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return newError(fmt.Sprintf("Invalid username %q. Use up to 32 letters, digits, '_', '.' or '-'.", username))
	}
	return nil
}

func (a *Admin) UserList(ctx context.Context) error {
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	return a.runInContainer(ctx, "backend", wlctl+" list-users", containerOpts{User: backendUser})
}

// UserAdd creates a user; the backend prompts for the password.
func (a *Admin) UserAdd(ctx context.Context, username string, english bool, goal float64) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	command := wlctl + " add-user"
	if english {
		command += " --english"
	}
	command += fmt.Sprintf(" --goal %s %s", strconv.FormatFloat(goal, 'f', -1, 64), username)
	return a.runInContainer(ctx, "backend", command, containerOpts{User: backendUser, Interactive: true})
}

func (a *Admin) UserDelete(ctx context.Context, username string) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	return a.runInContainer(ctx, "backend", wlctl+" delete-user "+username, containerOpts{User: backendUser})
}

func (a *Admin) UserChpasswd(ctx context.Context, username string) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}
	return a.runInContainer(ctx, "backend", wlctl+" passwd "+username,
		containerOpts{User: backendUser, Interactive: true})
}
