package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no candidate locator yields a visible
// element within the resolution timeout.
var ErrNotFound = errors.New("browser: element not found")

// Evaluator is the slice of the Session the resolver needs. Kept small so
// tests can resolve against a scripted DOM.
type Evaluator interface {
	EvalBool(ctx context.Context, js string) (bool, error)
}

// Element is a resolved, visible, scrolled-into-view DOM element. It is
// addressed through a tag attribute stamped onto the node, so follow-up
// actions can use a plain CSS selector regardless of which locator
// strategy found it.
type Element struct {
	Role     Role
	Locator  Locator
	Selector string // CSS selector usable with any Session action
}

// Resolver evaluates locator sets in order against the live page.
type Resolver struct {
	ev      Evaluator
	roles   RoleTable
	timeout time.Duration
	poll    time.Duration
}

// NewResolver creates a Resolver over ev with the given role table.
func NewResolver(ev Evaluator, roles RoleTable, timeout time.Duration) *Resolver {
	return &Resolver{
		ev:      ev,
		roles:   roles,
		timeout: timeout,
		poll:    250 * time.Millisecond,
	}
}

// Resolve tries each candidate locator for role in order until one matches
// a visible element, retrying the whole set until the timeout elapses.
// When a locator matches several elements the first visible one in document
// order wins. The match is scrolled into view before being returned.
func (r *Resolver) Resolve(ctx context.Context, role Role) (*Element, error) {
	return r.ResolveSet(ctx, role, r.roles[role])
}

// ResolveSet is Resolve with an explicit locator set, for roles built at
// runtime (e.g. text-dependent candidates).
func (r *Resolver) ResolveSet(ctx context.Context, role Role, set LocatorSet) (*Element, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: no locators configured for role %q", ErrNotFound, role)
	}

	deadline := time.Now().Add(r.timeout)
	for {
		for _, loc := range set {
			tag := "rp-" + uuid.NewString()[:8]
			ok, err := r.ev.EvalBool(ctx, tagFirstVisibleJS(loc, tag))
			if err != nil {
				return nil, fmt.Errorf("resolve %q via %s: %w", role, loc, err)
			}
			if ok {
				return &Element{
					Role:     role,
					Locator:  loc,
					Selector: fmt.Sprintf("[data-rp-target=%q]", tag),
				}, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: role %q, %d candidate(s) exhausted", ErrNotFound, role, len(set))
		}
		if err := sleepCtx(ctx, r.poll); err != nil {
			return nil, err
		}
	}
}

// tagFirstVisibleJS builds a page expression that finds all matches for the
// locator, keeps visible ones in document order, stamps the first with the
// tag attribute and scrolls it into view. Yields true iff a match was
// tagged. The visibility predicate mirrors what the browser itself uses:
// a non-empty box and no display/visibility/opacity hiding.
func tagFirstVisibleJS(loc Locator, tag string) string {
	var collect string
	switch loc.Strategy {
	case ByXPath:
		collect = fmt.Sprintf(`
		const snap = document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		const els = [];
		for (let i = 0; i < snap.snapshotLength; i++) els.push(snap.snapshotItem(i));`,
			strconv.Quote(loc.Query))
	default:
		collect = fmt.Sprintf(`const els = Array.from(document.querySelectorAll(%s));`,
			strconv.Quote(loc.Query))
	}

	js := fmt.Sprintf(`(() => {
	try {
		%s
		const visible = el => {
			if (!(el instanceof Element)) return false;
			const r = el.getBoundingClientRect();
			const st = window.getComputedStyle(el);
			return r.width > 0 && r.height > 0 &&
				st.display !== 'none' && st.visibility !== 'hidden' && st.opacity !== '0';
		};
		for (const el of els) {
			if (visible(el)) {
				el.setAttribute('data-rp-target', %s);
				el.scrollIntoView({block: 'center'});
				return true;
			}
		}
		return false;
	} catch (e) {
		return false;
	}
})()`, collect, strconv.Quote(tag))
	return strings.TrimSpace(js)
}
