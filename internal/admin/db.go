package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const backupCommand = "pg_dump -t schema -t users -t entries --data-only --column-inserts -U postgres "

func (a *Admin) s3Settings() (*S3Settings, error) {
	if a.config.S3 == nil || a.config.S3.Bucket == "" {
		return nil, newError(fmt.Sprintf("No s3 settings found in %s", a.configFile))
	}
	return a.config.S3, nil
}

// DBBackup writes a data-only SQL dump of the database to file. With upload
// the dump is also stored in the configured S3 bucket.
func (a *Admin) DBBackup(ctx context.Context, file string, upload bool) error {
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}

	var settings *S3Settings
	if upload {
		var err error
		if settings, err = a.s3Settings(); err != nil {
			return err
		}
	}

	f, err := os.Create(file)
	if err != nil {
		return newError(fmt.Sprintf("Could not write to %s.\n%v", file, err))
	}
	defer f.Close()

	if err := a.runInContainer(ctx, "db", backupCommand+a.config.DatabaseName(), containerOpts{Stdout: f}); err != nil {
		return err
	}
	if !upload {
		return nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return newError(fmt.Sprintf("Could not read %s.\n%v", file, err))
	}
	key := settings.Key(filepath.Base(file))
	if err := settings.Upload(ctx, key, f); err != nil {
		return newError(fmt.Sprintf("Could not upload %s to s3://%s/%s.\n%v", file, settings.Bucket, key, err))
	}
	fmt.Fprintf(a.out, "Uploaded %s to s3://%s/%s\n", file, settings.Bucket, key)
	return nil
}

// download fetches key from the configured bucket into file.
func (a *Admin) download(ctx context.Context, key, file string) error {
	settings, err := a.s3Settings()
	if err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return newError(fmt.Sprintf("Could not write to %s.\n%v", file, err))
	}
	defer f.Close()

	if err := settings.Download(ctx, key, f); err != nil {
		return newError(fmt.Sprintf("Could not download s3://%s/%s.\n%v", settings.Bucket, key, err))
	}
	return nil
}

// DBRestore replaces the database content with the dump in file. When
// fromS3 is set, that object is first downloaded to file.
func (a *Admin) DBRestore(ctx context.Context, file, fromS3 string) (err error) {
	if err := a.checkDeployment(ctx); err != nil {
		return err
	}

	if fromS3 != "" {
		if err := a.download(ctx, fromS3, file); err != nil {
			return err
		}
	}

	tempDir, err := a.captureInContainer(ctx, "backend", "/bin/mktemp --directory", backendUser)
	if err != nil {
		return err
	}
	tempDir = strings.TrimSpace(tempDir)

	defer func() {
		rmErr := a.runInContainer(ctx, "backend", "/bin/rm -rf "+tempDir, containerOpts{Stdout: io.Discard})
		if err == nil {
			err = rmErr
		}
	}()

	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return newError(fmt.Sprintf("Could not find %s", file))
	}

	dest := a.containerName("backend") + ":" + tempDir
	if _, err := a.runCommand(ctx, []string{DockerPath, "cp", file, dest}, false, true); err != nil {
		return err
	}

	restoreFile := tempDir + "/" + filepath.Base(file)
	return a.runInContainer(ctx, "backend", wlctl+" db-restore "+restoreFile,
		containerOpts{User: backendUser, Interactive: true})
}

