// Package greeting composes short, non-repeating openers for tailored
// answers. Pools are grouped by topic category; the last few greetings per
// category are remembered on the profile and avoided.
package greeting

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kalambet/mentord/internal/phrase"
	"github.com/kalambet/mentord/internal/profile"
)

// DefaultNameProbability is the chance a first greeting addresses the
// learner by name.
const DefaultNameProbability = 0.3

type compiledCategory struct {
	name     string
	keywords phrase.Set
}

// Composer picks greetings. It is safe for concurrent use.
type Composer struct {
	mu       sync.Mutex
	rng      *rand.Rand
	nameProb float64

	categories  []compiledCategory
	greetings   map[string][]string
	transitions map[string][]string
}

// Option configures a Composer.
type Option func(*Composer)

// WithRand injects the random source. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(c *Composer) { c.rng = r }
}

// WithNameProbability sets the chance of addressing the learner by name.
func WithNameProbability(p float64) Option {
	return func(c *Composer) { c.nameProb = profile.ClampUnit(p) }
}

// WithPools merges extra categories and pool entries over the built-ins.
// Extra categories are checked before the built-in ones.
func WithPools(pf *PoolsFile) Option {
	return func(c *Composer) {
		if pf == nil {
			return
		}
		extra := make([]compiledCategory, 0, len(pf.Categories))
		for _, cat := range pf.Categories {
			extra = append(extra, compiledCategory{name: cat.Name, keywords: phrase.NewSet(cat.Keywords...)})
		}
		c.categories = append(extra, c.categories...)
		mergePools(c.greetings, pf.Greetings)
		mergePools(c.transitions, pf.Transitions)
	}
}

// New creates a Composer with the built-in pools.
func New(opts ...Option) *Composer {
	now := uint64(time.Now().UnixNano())
	c := &Composer{
		rng:         rand.New(rand.NewPCG(now, now>>1)),
		nameProb:    DefaultNameProbability,
		greetings:   copyPools(builtinGreetings),
		transitions: copyPools(builtinTransitions),
	}
	for _, cat := range builtinCategories {
		c.categories = append(c.categories, compiledCategory{name: cat.name, keywords: phrase.NewSet(cat.keywords...)})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Category returns the first category whose keywords occur in query, or
// General.
func (c *Composer) Category(query string) string {
	toks := phrase.Tokens(query)
	for _, cat := range c.categories {
		if cat.keywords.Contains(toks) {
			return cat.name
		}
	}
	return General
}

// Compose picks a greeting for p and records it in p's recent ring. An
// empty category is derived from query. The first interaction draws from
// the greeting pool, later ones from the transition pool. The query text is
// never echoed back.
func (c *Composer) Compose(p *profile.Profile, query string, interactionCount int, category string) string {
	if category == "" {
		category = c.Category(query)
	}
	pools := c.greetings
	if interactionCount > 0 {
		pools = c.transitions
	}
	pool, ok := pools[category]
	if !ok || len(pool) == 0 {
		category = General
		pool = pools[General]
	}

	candidates := pool
	if len(pool) > profile.GreetingRingSize {
		candidates = exclude(pool, p.RecentGreetings[category])
		if len(candidates) == 0 {
			candidates = pool
		}
	}

	c.mu.Lock()
	pick := candidates[c.rng.IntN(len(candidates))]
	useName := interactionCount == 0 && c.rng.Float64() < c.nameProb
	c.mu.Unlock()

	p.RememberGreeting(category, pick)

	if useName {
		if name := DisplayName(*p); name != "" {
			return name + ", " + lowerFirst(pick)
		}
	}
	return pick
}

// DisplayName is the stored display name, or one derived from the user id:
// the local part of an email, underscores turned into title-cased words.
func DisplayName(p profile.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	name := p.UserID
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if strings.Contains(name, "_") {
		name = cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
	}
	return strings.TrimSpace(name)
}

// lowerFirst lowercases the first rune unless it starts an acronym.
func lowerFirst(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(first)) + s[size:]
}

func exclude(pool, recent []string) []string {
	if len(recent) == 0 {
		return pool
	}
	skip := make(map[string]bool, len(recent))
	for _, r := range recent {
		skip[r] = true
	}
	out := make([]string, 0, len(pool))
	for _, g := range pool {
		if !skip[g] {
			out = append(out, g)
		}
	}
	return out
}

func copyPools(src map[string][]string) map[string][]string {
	dst := make(map[string][]string, len(src))
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
	return dst
}

// mergePools appends entries from extra that dst does not already hold.
func mergePools(dst, extra map[string][]string) {
	for cat, entries := range extra {
		for _, e := range entries {
			e = strings.TrimSpace(e)
			if e == "" || contains(dst[cat], e) {
				continue
			}
			dst[cat] = append(dst[cat], e)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
