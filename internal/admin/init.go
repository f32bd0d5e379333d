package admin

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/weightlog/weightlog/internal/cryptox"
	"github.com/weightlog/weightlog/internal/server/keys"
)

//go:embed templates/*.tmpl
var templates embed.FS

const (
	passwordBits = 128
	tokenBits    = 256

	// passwordLength gives about 128 bits at 5.95 bits per alphanumeric
	// character.
	passwordLength = 22

	defaultNetwork = "wl-network"
)

// EntropyAvailPath is read to check the kernel entropy pool before secrets
// are generated.
var EntropyAvailPath = "/proc/sys/kernel/random/entropy_avail"

var validate = validator.New()

// InitOptions are the arguments of wladmin init.
type InitOptions struct {
	Homepage string `validate:"required,url"`
	Env      string `validate:"oneof=dev prod"`
	// Database names the application database. Empty keeps the default.
	Database string
	// Network names an existing external Docker network. Empty creates an
	// internal one.
	Network string
	// HTTPHostPort publishes the proxy's port 80 on the host when non-zero.
	HTTPHostPort int `validate:"gte=0,lte=65535"`
}

func (o InitOptions) check() error {
	if o.Database != "" && !validDatabaseName(o.Database) {
		return newError("--database must be a lowercase PostgreSQL identifier")
	}
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		switch verrs[0].Field() {
		case "Homepage":
			return newError("--homepage needs to be a URL")
		case "Env":
			return newError("--env must be dev or prod")
		case "HTTPHostPort":
			return newError("--http-host-port must be a TCP port number")
		}
	}
	return newError(err.Error())
}

func entropyAvailable() (int, error) {
	content, err := os.ReadFile(EntropyAvailPath)
	if err == nil {
		var n int
		n, err = strconv.Atoi(strings.TrimSpace(string(content)))
		if err == nil {
			return n, nil
		}
	}
	return 0, newError(fmt.Sprintf("Could not determine entropy available\n%v", err))
}

func (a *Admin) checkStateForInit(ctx context.Context, opts InitOptions) error {
	if err := opts.check(); err != nil {
		return err
	}

	exists, err := a.artifactsExist(ctx)
	if err != nil {
		return err
	}
	if exists {
		return newError("An existing deployment was found. To remove it run:\nwladmin docker rm")
	}

	// twice the bytes the secrets need
	needed := (tokenBits + 2*passwordBits + 7) / 8 * 2
	avail, err := entropyAvailable()
	if err != nil {
		return err
	}
	if avail < needed {
		return newError("Not enough entropy to create passwords and keys")
	}
	return nil
}

// Init creates a new deployment: config directory, secrets, frontend
// homepage settings and the Docker compose files.
func (a *Admin) Init(ctx context.Context, opts InitOptions) error {
	if err := a.checkStateForInit(ctx, opts); err != nil {
		return err
	}

	if err := os.Mkdir(a.configDir, 0o700); err != nil {
		return newError(fmt.Sprintf("Could not create config directory.\n%v", err))
	}
	if err := os.Mkdir(a.keysDir, 0o700); err != nil {
		return newError(fmt.Sprintf("Could not create config directory.\n%v", err))
	}

	if err := a.saveHomepage(opts.Homepage); err != nil {
		return err
	}
	if err := a.createKeys(); err != nil {
		return err
	}

	cfg := &Config{Deployment: opts.Env, Database: opts.Database}
	if err := cfg.Save(a.configFile); err != nil {
		return newError(fmt.Sprintf("Could not write %s.\n%v", a.configFile, err))
	}
	a.config, a.deployment = cfg, opts.Env

	if err := a.createComposeFiles(opts); err != nil {
		return err
	}

	a.logger.Info(ctx, "deployment initialized", "env", opts.Env, "config_dir", a.configDir)
	return nil
}

func (a *Admin) createKeys() error {
	postgresPassword, err := cryptox.GeneratePassword(passwordLength)
	if err != nil {
		return newError(fmt.Sprintf("Could not generate password.\n%v", err))
	}
	dbPassword, err := cryptox.GeneratePassword(passwordLength)
	if err != nil {
		return newError(fmt.Sprintf("Could not generate password.\n%v", err))
	}
	tokenKey, err := cryptox.MakeRandHexString(tokenBits / 8)
	if err != nil {
		return newError(fmt.Sprintf("Could not generate token key.\n%v", err))
	}

	files := []struct {
		name   string
		values map[string]string
	}{
		{keys.DatabaseFile, map[string]string{keys.PostgresPasswordName: postgresPassword}},
		{keys.BackendFile, map[string]string{keys.DBPasswordName: dbPassword, keys.TokenKeyName: tokenKey}},
	}
	for _, f := range files {
		path := filepath.Join(a.keysDir, f.name)
		if err := keys.Write(path, f.values); err != nil {
			return newError(fmt.Sprintf("Could not create %s.\n%v", path, err))
		}
	}
	return nil
}

type composeData struct {
	Database        string
	HTTPHostPort    int
	Network         string
	NetworkExternal bool
}

func (a *Admin) createComposeFiles(opts InitOptions) error {
	data := composeData{
		Database:        a.config.DatabaseName(),
		HTTPHostPort:    opts.HTTPHostPort,
		Network:         opts.Network,
		NetworkExternal: true,
	}
	if data.Network == "" {
		data.Network, data.NetworkExternal = defaultNetwork, false
	}

	for _, name := range []string{"docker-compose.yml", "docker-compose.dev.yml", "docker-compose.prod.yml", "docker-network.yml"} {
		tmpl, err := template.ParseFS(templates, "templates/"+name+".tmpl")
		if err != nil {
			return newError(fmt.Sprintf("Could not create docker file %s.\n%v", name, err))
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return newError(fmt.Sprintf("Could not create docker file %s.\n%v", name, err))
		}
		if err := os.WriteFile(filepath.Join(a.configDir, name), buf.Bytes(), 0o600); err != nil {
			return newError(fmt.Sprintf("Could not create docker file %s.\n%v", name, err))
		}
	}
	return nil
}

// saveHomepage writes frontend/.env and sets "homepage" in
// frontend/package.json, keeping the other keys in their order.
func (a *Admin) saveHomepage(homepage string) error {
	envFile := filepath.Join(a.rootDir, "frontend", ".env")
	if err := keys.Write(envFile, map[string]string{"REACT_APP_WL_HOMEPAGE": homepage}); err != nil {
		return newError(fmt.Sprintf("Could not write to %s.\n%v", envFile, err))
	}

	pkgFile := filepath.Join(a.rootDir, "frontend", "package.json")
	content, err := os.ReadFile(pkgFile)
	if err != nil {
		return newError(fmt.Sprintf("Could not update %s.\n%v", pkgFile, err))
	}
	updated, err := setJSONKey(content, "homepage", homepage)
	if err != nil {
		return newError(fmt.Sprintf("Could not update %s.\n%v", pkgFile, err))
	}
	if err := os.WriteFile(pkgFile, append(updated, '\n'), 0o644); err != nil {
		return newError(fmt.Sprintf("Could not update %s.\n%v", pkgFile, err))
	}
	return nil
}

// setJSONKey sets key in the top-level object of doc, appending it when
// absent, and re-indents the document with two spaces.
func setJSONKey(doc []byte, key string, value any) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, errors.New("top-level JSON object expected")
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteByte('{')
	found := false
	for i := 0; dec.More(); i++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if name == key {
			raw, found = encoded, true
		}

		if i > 0 {
			out.WriteByte(',')
		}
		k, _ := json.Marshal(name)
		out.Write(k)
		out.WriteByte(':')
		out.Write(raw)
	}
	if !found {
		if out.Len() > 1 {
			out.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		out.Write(k)
		out.WriteByte(':')
		out.Write(encoded)
	}
	out.WriteByte('}')

	var indented bytes.Buffer
	if err := json.Indent(&indented, out.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return indented.Bytes(), nil
}
