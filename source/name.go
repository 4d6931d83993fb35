package source

import (
	"net/url"
	"strings"

	"github.com/vegasq/virtsql/reader"
)

// Name is a parsed table name. A name is one of:
//
//	view              a registered view
//	source.table      a table of a registered database or directory
//	scheme:path?opts  a file read through a format ("csv", "parquet", ...),
//	                  the "file" scheme, or a registered source
type Name struct {
	Source  string // registered source, format or "file"; empty for views
	Path    string
	Options reader.Options
	Scheme  bool // written as scheme:path
}

// ParseName splits a table name into its parts.
func ParseName(name string) Name {
	if i := strings.IndexByte(name, ':'); i > 0 {
		n := Name{Source: name[:i], Path: strings.TrimPrefix(name[i+1:], "//"), Scheme: true}
		if j := strings.IndexByte(n.Path, '?'); j >= 0 {
			n.Options = parseOptions(n.Path[j+1:])
			n.Path = n.Path[:j]
		}
		return n
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		return Name{Source: name[:i], Path: name[i+1:]}
	}
	return Name{Path: name}
}

// parseOptions reads "k=v&k2=v2". Later keys win. Semicolons are kept in
// values so that "delimiter=;" works.
func parseOptions(query string) reader.Options {
	opts := make(reader.Options)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		opts[k] = v
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}
