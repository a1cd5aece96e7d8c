// Package pathtmpl converts between absolute save-folder paths and portable
// templates such as "%APPDATA%/Game/Saves".
//
// A template names a well-known user folder with a token. Expanding it on a
// different machine, or for a different user, yields that machine's folder.
package pathtmpl

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Token names.
const (
	SavedGames   = "%SAVEDGAMES%"
	Documents    = "%DOCUMENTS%"
	AppData      = "%APPDATA%"
	LocalAppData = "%LOCALAPPDATA%"
	UserProfile  = "%USERPROFILE%"
)

// Token is a well-known folder together with its resolved location.
// Lower Priority wins when two tokens match a path equally well.
type Token struct {
	Key      string
	Value    string
	Priority int
}

// tokenOrder lists every supported token with its priority.
var tokenOrder = []struct {
	key      string
	priority int
}{
	{SavedGames, 0},
	{Documents, 1},
	{AppData, 2},
	{LocalAppData, 3},
	{UserProfile, 9},
}

// FolderLookup resolves a token key to an absolute folder. It reports false
// when the folder is unknown on this system.
type FolderLookup func(key string) (string, bool)

// EnvLookup reads an environment variable.
type EnvLookup func(name string) (string, bool)

// Resolver expands and builds path templates. The token table is resolved
// once, on first use.
type Resolver struct {
	lookup    FolderLookup
	lookupEnv EnvLookup
	separator string

	once     sync.Once
	tokens   []Token
	patterns []*regexp.Regexp
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEnv replaces os.LookupEnv for environment expansion.
func WithEnv(lookup EnvLookup) Option {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookupEnv = lookup
		}
	}
}

// WithSeparator sets the separator placed between a token and the rest of
// the path by ToBestTemplate. The default is the platform separator.
func WithSeparator(sep string) Option {
	return func(r *Resolver) {
		r.separator = sep
	}
}

// New creates a Resolver that resolves tokens with lookup.
func New(lookup FolderLookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:    lookup,
		lookupEnv: os.LookupEnv,
		separator: string(filepath.Separator),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefault creates a Resolver backed by the current user's folders.
func NewDefault() *Resolver {
	return New(PlatformFolders())
}

// Tokens returns the tokens that resolved on this system, in priority order.
func (r *Resolver) Tokens() []Token {
	r.once.Do(r.build)
	out := make([]Token, len(r.tokens))
	copy(out, r.tokens)
	return out
}

func (r *Resolver) build() {
	for _, t := range tokenOrder {
		if r.lookup == nil {
			break
		}
		value, ok := r.lookup(t.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		r.tokens = append(r.tokens, Token{Key: t.key, Value: value, Priority: t.priority})
		r.patterns = append(r.patterns, regexp.MustCompile("(?i)"+regexp.QuoteMeta(t.key)))
	}
}

// Expand replaces tokens (case-insensitively) and environment variables in
// template. A leading "~" stands for the user profile folder. Unknown
// variables are left as written. Blank input yields "".
func (r *Resolver) Expand(template string) string {
	if strings.TrimSpace(template) == "" {
		return ""
	}
	out := strings.TrimSpace(template)

	if out == "~" || strings.HasPrefix(out, "~/") || strings.HasPrefix(out, `~\`) {
		out = UserProfile + out[1:]
	}
	r.once.Do(r.build)
	for i, t := range r.tokens {
		out = r.patterns[i].ReplaceAllLiteralString(out, trimSeparators(t.Value))
	}
	return r.expandEnv(out)
}

var (
	percentVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)
	dollarVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
)

func (r *Resolver) expandEnv(s string) string {
	s = percentVar.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := r.lookupEnv(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
	return dollarVar.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.Trim(m, "${}")
		if v, ok := r.lookupEnv(name); ok {
			return v
		}
		return m
	})
}

// ToBestTemplate rewrites absolutePath relative to the token whose folder is
// its longest prefix. Ties go to the lower priority number. A path under no
// known folder is returned unchanged. Blank input yields "".
func (r *Resolver) ToBestTemplate(absolutePath string) string {
	if strings.TrimSpace(absolutePath) == "" {
		return ""
	}
	path := trimSeparators(strings.TrimSpace(absolutePath))

	best, bestLen := "", -1
	for _, t := range r.byPriority() {
		root := trimSeparators(strings.TrimSpace(t.Value))
		if root == "" || !hasPathPrefix(path, root) {
			continue
		}
		if len(root) > bestLen {
			best, bestLen = t.Key, len(root)
		}
	}
	if best == "" {
		return absolutePath
	}

	rest := strings.TrimLeft(path[bestLen:], `/\`)
	if rest == "" {
		return best
	}
	return best + r.separator + rest
}

// IsTemplate reports whether s contains a '%' and should be stored as written.
func IsTemplate(s string) bool {
	return strings.Contains(s, "%")
}

func (r *Resolver) byPriority() []Token {
	tokens := r.Tokens()
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Priority < tokens[j].Priority
	})
	return tokens
}

// hasPathPrefix reports whether root equals path or is an ancestor of it,
// ignoring case.
func hasPathPrefix(path, root string) bool {
	if len(path) < len(root) || !strings.EqualFold(path[:len(root)], root) {
		return false
	}
	if len(path) == len(root) {
		return true
	}
	c := path[len(root)]
	return c == '/' || c == '\\'
}

func trimSeparators(s string) string {
	trimmed := strings.TrimRight(s, `/\`)
	if trimmed == "" {
		return s
	}
	return trimmed
}
