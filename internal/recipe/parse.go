package recipe

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"pygr/internal/errs"
	"pygr/internal/pkgversion"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// Parse decodes a YAML recipe document, validates the required fields
// and the templating token, and returns the parsed Recipe. path is
// used only to annotate error messages.
func Parse(data []byte, path string) (Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Recipe{}, errs.Wrap(errs.RecipeMalformed, "RECIPE_YAML", err, "parsing recipe %q", path)
	}
	if err := validate(r, path); err != nil {
		return Recipe{}, err
	}
	v, err := pkgversion.Parse(r.Version)
	if err != nil {
		return Recipe{}, errs.Wrap(errs.RecipeMalformed, "RECIPE_VERSION", err, "recipe %q has invalid version %q", path, r.Version)
	}
	r.parsedVersion = v
	return r, nil
}

func validate(r Recipe, path string) error {
	if r.Name == "" {
		return errs.New(errs.RecipeMalformed, "RECIPE_NAME", "recipe %q missing required field \"name\"", path)
	}
	if r.Version == "" {
		return errs.New(errs.RecipeMalformed, "RECIPE_VERSION_MISSING", "recipe %q missing required field \"version\"", path)
	}
	if r.Source.Kind == "" {
		return errs.New(errs.RecipeMalformed, "RECIPE_SOURCE_KIND", "recipe %q missing required field \"source.kind\"", path)
	}
	if r.Source.Repo == "" {
		return errs.New(errs.RecipeMalformed, "RECIPE_SOURCE_REPO", "recipe %q missing required field \"source.repo\"", path)
	}
	for _, cmd := range append(append([]string{}, r.Build...), r.Install...) {
		if err := checkPlaceholders(cmd, path); err != nil {
			return err
		}
	}
	for _, dep := range r.Dependencies {
		if dep.Name == "" {
			return errs.New(errs.RecipeMalformed, "RECIPE_DEP_NAME", "recipe %q has a dependency with no name", path)
		}
		if dep.Constraint != "" {
			if _, err := pkgversion.ParseConstraint(dep.Constraint); err != nil {
				return errs.Wrap(errs.RecipeMalformed, "RECIPE_DEP_CONSTRAINT", err, "recipe %q dependency %q has invalid constraint %q", path, dep.Name, dep.Constraint)
			}
		}
	}
	return nil
}

// checkPlaceholders rejects any templating token besides {{prefix}}.
func checkPlaceholders(cmd, path string) error {
	for _, m := range placeholderPattern.FindAllStringSubmatch(cmd, -1) {
		if m[1] != "prefix" {
			return errs.New(errs.RecipeMalformed, "RECIPE_TEMPLATE", "recipe %q command %q references unsupported placeholder %q", path, cmd, fmt.Sprintf("{{%s}}", m[1]))
		}
	}
	return nil
}
