package core

import (
	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with upgrade-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the dependency name in the format expected by the
// ecosystem's toolchain. For npm: "@babel/core", for maven-like namespaces
// the parts are slash-joined.
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// UpgradeFromPURL builds an Upgrade from a Package URL, returning the
// ecosystem the upgrade belongs to alongside it. A repository_url qualifier
// becomes the authoritative registry URL; extraRegistries follow it.
func UpgradeFromPURL(purl string, extraRegistries ...string) (Upgrade, string, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return Upgrade{}, "", err
	}

	var urls []string
	if repo := p.Qualifiers.Map()["repository_url"]; repo != "" {
		urls = append(urls, repo)
	}
	urls = append(urls, extraRegistries...)

	return Upgrade{
		Name:         p.FullName(),
		Version:      p.Version,
		RegistryURLs: urls,
	}, p.Type, nil
}
