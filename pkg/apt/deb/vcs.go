package deb

import "strings"

// VCS names the version-control system a source package's history lives in, as
// used in the Vcs-<Type> control fields. Browser is itself a type in this set: a
// package's web-browsable repository view is recorded the same way as a checkout
// URL, just under a different type token.
type VCS string

const (
	VCSArch       VCS = "Arch"
	VCSBrowser    VCS = "Browser"
	VCSBazaar     VCS = "Bzr"
	VCSCVS        VCS = "Cvs"
	VCSDarcs      VCS = "Darcs"
	VCSGit        VCS = "Git"
	VCSMercurial  VCS = "Hg"
	VCSMonotone   VCS = "Mtn"
	VCSSubversion VCS = "Svn"
)

var knownVCS = []VCS{VCSArch, VCSBrowser, VCSBazaar, VCSCVS, VCSDarcs, VCSGit, VCSMercurial, VCSMonotone, VCSSubversion}

// vcsTypeTokens lists every field-name spelling recognized for a VCS type, so that
// "Browser" and its common misspelling "Browse" both resolve to VCSBrowser.
var vcsTypeTokens = map[VCS][]string{
	VCSArch:       {"Arch"},
	VCSBrowser:    {"Browser", "Browse"},
	VCSBazaar:     {"Bzr"},
	VCSCVS:        {"Cvs"},
	VCSDarcs:      {"Darcs"},
	VCSGit:        {"Git"},
	VCSMercurial:  {"Hg"},
	VCSMonotone:   {"Mtn"},
	VCSSubversion: {"Svn"},
}

// VCSTag distinguishes which repository a Vcs-<Type> field describes, for packages
// that track more than one: the package's own (Vcs, the default), the pristine
// upstream tarball's (Orig), Debian's packaging repository (Debian), or the
// upstream project's own repository (Upstream).
type VCSTag string

const (
	VCSTagVcs      VCSTag = "Vcs"
	VCSTagOrig     VCSTag = "Orig"
	VCSTagDebian   VCSTag = "Debian"
	VCSTagUpstream VCSTag = "Upstream"
)

// vcsTagTokens lists every field-name spelling recognized for a tag other than the
// bare Vcs form, e.g. "Original" as an alias for Orig.
var vcsTagTokens = []struct {
	Tag    VCSTag
	Tokens []string
}{
	{VCSTagOrig, []string{"Orig", "Original"}},
	{VCSTagDebian, []string{"Debian"}},
	{VCSTagUpstream, []string{"Upstream"}},
}

// VCSReference is one Vcs-<type>/<tag>-Vcs-<type>/Vcs-<tag>-<type> hit found in a
// source record.
type VCSReference struct {
	Type VCS
	Tag  VCSTag
	URL  string
}

// ScanVCSReferences scans fields (a deb822 header's field names) for every key
// matching Vcs-<type>, <tag>-Vcs-<type>, or Vcs-<tag>-<type> across the known VCS
// types and tags, emitting one VCSReference per hit and calling claim on each
// matched field name so the caller can exclude it from its residual/unparsed map.
func ScanVCSReferences(lookup func(name string) string, fields []string, claim func(names ...string)) []VCSReference {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}

	var out []VCSReference
	for _, vcs := range knownVCS {
		for _, typeToken := range vcsTypeTokens[vcs] {
			bareField := "Vcs-" + typeToken
			if present[bareField] {
				claim(bareField)
				out = append(out, VCSReference{Type: vcs, Tag: VCSTagVcs, URL: lookup(bareField)})
			}

			for _, tt := range vcsTagTokens {
				for _, tagToken := range tt.Tokens {
					prefixField := tagToken + "-Vcs-" + typeToken
					infixField := "Vcs-" + tagToken + "-" + typeToken
					if present[prefixField] {
						claim(prefixField)
						out = append(out, VCSReference{Type: vcs, Tag: tt.Tag, URL: lookup(prefixField)})
					}
					if present[infixField] {
						claim(infixField)
						out = append(out, VCSReference{Type: vcs, Tag: tt.Tag, URL: lookup(infixField)})
					}
				}
			}
		}
	}
	return out
}

// ParseVCSType maps a field-name suffix (the "<type>" in Vcs-<type>) to a VCS
// constant, accepting case-insensitive matches including the "Browse" alias.
func ParseVCSType(suffix string) (VCS, bool) {
	for vcs, tokens := range vcsTypeTokens {
		for _, token := range tokens {
			if strings.EqualFold(token, suffix) {
				return vcs, true
			}
		}
	}
	return "", false
}
