package sandbox

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/opencrust/opencrust/errors"
)

// mount is one resolved filesystem mount: a canonical host directory and
// whether the guest may write to it.
type mount struct {
	hostPath string
	writable bool
}

// resolveMounts applies the manifest's filesystem permissions to a concrete
// list of mounts, rebuilt fresh for every execution. See Manifest.Validate
// for the precondition that Filesystem is true whenever paths are configured.
func resolveMounts(m *Manifest) ([]mount, error) {
	if !m.Permissions.Filesystem {
		return nil, nil
	}

	readPaths := m.Permissions.FilesystemReadPaths
	writePaths := m.Permissions.FilesystemWritePaths

	if len(readPaths) == 0 && len(writePaths) == 0 {
		// Default: read-only mount of the plugin root.
		canonicalRoot, err := filepath.EvalSymlinks(m.Root)
		if err != nil {
			return nil, errors.WrapKind(err, errors.KindPlugin, "resolve plugin root")
		}
		return []mount{{hostPath: canonicalRoot, writable: false}}, nil
	}

	var mounts []mount
	for _, p := range readPaths {
		mnt, err := resolveMount(m.Root, p, false)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, mnt)
	}
	for _, p := range writePaths {
		mnt, err := resolveMount(m.Root, p, true)
		if err != nil {
			return nil, err
		}
		overridden := false
		for i := range mounts {
			if mounts[i].hostPath == mnt.hostPath {
				mounts[i].writable = true
				overridden = true
			}
		}
		if !overridden {
			mounts = append(mounts, mnt)
		}
	}
	return mounts, nil
}

// resolveMount validates and canonicalizes a single configured path,
// confirming it still lies inside the plugin root after symlink resolution.
func resolveMount(root, relPath string, writable bool) (mount, error) {
	if relPath == "" {
		return mount{}, errors.NewKind(errors.KindPlugin, "filesystem path is empty")
	}
	if filepath.IsAbs(relPath) {
		return mount{}, errors.NewKind(errors.KindPlugin, "filesystem path must be relative: "+relPath)
	}

	joined := filepath.Join(root, relPath)

	if writable {
		if err := os.MkdirAll(joined, 0755); err != nil {
			return mount{}, errors.WrapKind(err, errors.KindPlugin, "create writable mount dir")
		}
	}

	if _, err := os.Stat(joined); err != nil {
		return mount{}, errors.WrapKind(err, errors.KindPlugin, "mount path does not exist: "+relPath)
	}

	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return mount{}, errors.WrapKind(err, errors.KindPlugin, "resolve plugin root")
	}
	canonicalPath, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return mount{}, errors.WrapKind(err, errors.KindPlugin, "resolve mount path")
	}

	rel, err := filepath.Rel(canonicalRoot, canonicalPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return mount{}, errors.NewKind(errors.KindSecurity, "path escapes plugin root: "+relPath)
	}

	return mount{hostPath: canonicalPath, writable: writable}, nil
}

// applyMounts wires resolved mounts into a wazero FS config, exposing them
// to the guest as mnt0, mnt1, ... in insertion order. A host path listed as
// both a read and a write path arrives here as a single writable mount,
// since resolveMounts lets the writable entry override the read-only one.
func applyMounts(cfg wazero.FSConfig, mounts []mount) wazero.FSConfig {
	for i, m := range mounts {
		guestPath := mountGuestPath(i)
		if m.writable {
			cfg = cfg.WithDirMount(m.hostPath, guestPath)
		} else {
			cfg = cfg.WithReadOnlyDirMount(m.hostPath, guestPath)
		}
	}
	return cfg
}

func mountGuestPath(i int) string {
	return "/mnt" + strconv.Itoa(i)
}
