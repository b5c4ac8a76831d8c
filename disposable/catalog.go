// Package disposable holds the nominal catalog of constructors and
// factory functions whose return value represents a resource requiring
// scoped release, consulted by the prefer-scoped-resource rule.
package disposable

import (
	"strings"

	"github.com/kzn-tools/kaizen/model"
)

// Catalog is a set of exact fully-qualified names plus heuristic
// prefix/suffix patterns, matched in that priority order.
type Catalog struct {
	exact    map[string]bool
	prefixes []string
	suffixes []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{exact: make(map[string]bool)}
}

// AddExact registers a fully-qualified disposable constructor/factory name.
func (c *Catalog) AddExact(fqn string) { c.exact[fqn] = true }

// AddPrefix registers a heuristic name prefix (e.g. "open", "create").
func (c *Catalog) AddPrefix(p string) { c.prefixes = append(c.prefixes, p) }

// AddSuffix registers a heuristic name suffix (e.g. "Connection", "Stream").
func (c *Catalog) AddSuffix(s string) { c.suffixes = append(c.suffixes, s) }

// Match reports whether calleeName (the called function/constructor's
// dotted or bare name) identifies a disposable resource, and the
// confidence of that identification.
func (c *Catalog) Match(calleeName string) (model.Confidence, bool) {
	if c.exact[calleeName] {
		return model.ConfidenceHigh, true
	}
	short := calleeName
	if idx := strings.LastIndexByte(calleeName, '.'); idx >= 0 {
		short = calleeName[idx+1:]
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(short, p) {
			return model.ConfidenceMedium, true
		}
	}
	for _, s := range c.suffixes {
		if strings.HasSuffix(short, s) {
			return model.ConfidenceMedium, true
		}
	}
	return "", false
}

// Default returns the built-in Node.js / browser disposable catalog:
// file handles, sockets, database connections, timers, and workers.
func Default() *Catalog {
	c := NewCatalog()
	for _, fqn := range []string{
		"fs.openSync",
		"fs.open",
		"fs.createReadStream",
		"fs.createWriteStream",
		"net.createConnection",
		"net.connect",
		"http.request",
		"https.request",
		"child_process.spawn",
		"child_process.exec",
		"child_process.fork",
		"setInterval",
		"setTimeout",
	} {
		c.AddExact(fqn)
	}
	for _, p := range []string{"open", "create", "acquire", "connect", "spawn"} {
		c.AddPrefix(p)
	}
	for _, s := range []string{"Connection", "Stream", "Socket", "Client", "Pool", "Handle", "Worker", "Watcher"} {
		c.AddSuffix(s)
	}
	return c
}
