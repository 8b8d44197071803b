package app

import (
	"strings"

	"pygr/internal/errs"
)

// packageRequest is one parsed CLI package argument: either a
// remote-repo reference ("OWNER/REPO[@REF]") or a named request
// ("NAME[CONSTRAINT]") resolved against the system PM and recipe
// catalog.
type packageRequest struct {
	raw        string
	remoteRepo bool

	// remote-repo fields
	ownerRepo string
	ref       string

	// named fields
	name       string
	constraint string
}

// isNameRune reports whether r may appear in a bare package name, as
// opposed to starting a version-constraint clause.
func isNameRune(r rune) bool {
	return r == '-' || r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// parsePackageRequest classifies pkg per the CLI contract's "PKG
// matches NAME[CONSTRAINT] or OWNER/REPO[@REF]" rule.
func parsePackageRequest(pkg string) (packageRequest, error) {
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return packageRequest{}, errs.New(errs.RecipeMalformed, "APP_EMPTY_PKG", "package argument must not be empty")
	}
	if strings.Contains(pkg, "/") {
		ownerRepo, ref, _ := strings.Cut(pkg, "@")
		return packageRequest{raw: pkg, remoteRepo: true, ownerRepo: ownerRepo, ref: ref}, nil
	}

	splitAt := len(pkg)
	for i, r := range pkg {
		if !isNameRune(r) {
			splitAt = i
			break
		}
	}
	return packageRequest{raw: pkg, name: pkg[:splitAt], constraint: pkg[splitAt:]}, nil
}

// githubCloneURL turns an "OWNER/REPO" reference into a clonable
// URL, passing already-qualified URLs through unchanged.
func githubCloneURL(ownerRepo string) string {
	if strings.Contains(ownerRepo, "://") {
		return ownerRepo
	}
	return "https://github.com/" + ownerRepo + ".git"
}
