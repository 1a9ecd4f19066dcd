package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unistuhelper/entity"

	"golang.org/x/mod/semver"
)

// CheckUpdate compares the client's version with the latest stable release.
// An empty version counts as 0.0.0; a version above the latest is a beta build.
func (c *Core) CheckUpdate(version string) (*entity.UpdateInfo, error) {
	current, ok := canonicalVersion(version)
	if !ok {
		return nil, fmt.Errorf("%w: invalid version %q", ErrValidation, version)
	}
	latest, ok := canonicalVersion(c.conf.LatestVersion)
	if !ok {
		return nil, fmt.Errorf("invalid latest version %q", c.conf.LatestVersion)
	}

	info := &entity.UpdateInfo{LatestVersion: c.conf.LatestVersion}
	switch semver.Compare(current, latest) {
	case -1:
		info.UpdateAvailable = true
		info.DownloadURL = c.conf.DownloadURL
	case 1:
		info.IsBeta = true
		info.BetaWarning = c.conf.BetaWarning
	}
	return info, nil
}

// canonicalVersion accepts versions with or without the leading "v" and short forms like "1.2".
func canonicalVersion(version string) (string, bool) {
	version = strings.TrimSpace(version)
	if version == "" {
		version = "0.0.0"
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return "", false
	}
	return semver.Canonical(version), true
}

// ReleaseFileName is the artifact name for the latest release.
func (c *Core) ReleaseFileName() string {
	return fmt.Sprintf("%s_v%s.zip", c.conf.ReleaseName, c.conf.LatestVersion)
}

// ReleaseFile opens the latest release artifact. The caller closes the stream.
func (c *Core) ReleaseFile() (io.ReadCloser, *entity.FileMeta, error) {
	name := c.ReleaseFileName()
	file, err := os.Open(filepath.Join(c.conf.ReleaseDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: release %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("open release: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("stat release: %w", err)
	}
	if stat.IsDir() {
		_ = file.Close()
		return nil, nil, fmt.Errorf("%w: release %s", ErrNotFound, name)
	}
	return file, &entity.FileMeta{
		Name:          name,
		ContentType:   "application/zip",
		ContentLength: stat.Size(),
	}, nil
}
