package mirror

import (
	"fmt"
	"path"
	"slices"
)

// Architectures lists the binary architectures published by the Debian
// stable archive.
var Architectures = []string{
	"amd64", "arm64", "armel", "armhf", "i386",
	"mips", "mips64el", "mipsel", "ppc64el", "s390x",
}

// DefaultArchitecture is used when none is given.
const DefaultArchitecture = "amd64"

// ValidArchitecture returns an error wrapping ErrUnknownArchitecture unless
// arch is one of Architectures.
func ValidArchitecture(arch string) error {
	if slices.Contains(Architectures, arch) {
		return nil
	}
	return fmt.Errorf("%w: %q (want one of %v)", ErrUnknownArchitecture, arch, Architectures)
}

// ContentsFileName returns the compressed Contents index name for arch.
func ContentsFileName(arch string) string {
	return "Contents-" + arch + ".gz"
}

// ContentsPath returns the index path of arch within an archive component,
// relative to the dists base URL, e.g. "main/Contents-amd64.gz".
func ContentsPath(component, arch string) string {
	return path.Join(component, ContentsFileName(arch))
}
