package runtime

import (
	"golang.org/x/mod/semver"

	"github.com/wippyai/gc-bridge/errors"
)

// checkVersion gates initialization on the embedded runtime's reported
// version. Versions are plain "MAJOR.MINOR.PATCH" strings as runtimes report
// them; the "v" prefix semver wants is added here.
func checkVersion(have, min string) error {
	if min == "" {
		return nil
	}
	if !semver.IsValid("v" + have) {
		return errors.New(errors.PhaseInit, errors.KindUnsupported).
			Detail("runtime reported unparseable version %q", have).
			Build()
	}
	if !semver.IsValid("v" + min) {
		return errors.New(errors.PhaseInit, errors.KindUnsupported).
			Detail("invalid minimum version %q", min).
			Build()
	}
	if semver.Compare("v"+have, "v"+min) < 0 {
		return errors.New(errors.PhaseInit, errors.KindUnsupported).
			Detail("runtime version %s is older than required %s", have, min).
			Build()
	}
	return nil
}
