package browser

import (
	"context"
	"log"
	"time"
)

// Driver is the interaction surface SafeClick needs from a Session.
type Driver interface {
	Click(ctx context.Context, sel string, timeout time.Duration) error
	JSClick(ctx context.Context, sel string) error
	HideElement(ctx context.Context, sel string) error
}

// SafeClick clicks a resolved element, with a bounded one-shot mitigation
// for transient overlays: if the direct click fails, the overlay role is
// resolved with a short timeout and hidden, then the click is retried once
// from page JS. It is not a retry loop.
func SafeClick(ctx context.Context, d Driver, r *Resolver, el *Element, timeout time.Duration) error {
	err := d.Click(ctx, el.Selector, timeout)
	if err == nil {
		return nil
	}
	log.Printf("[browser] click on %s failed (%v) — checking for overlay", el.Role, err)

	overlayResolver := &Resolver{ev: r.ev, roles: r.roles, timeout: 2 * time.Second, poll: r.poll}
	if overlay, oerr := overlayResolver.Resolve(ctx, RoleOverlay); oerr == nil {
		log.Printf("[browser] hiding overlay before retrying click")
		if herr := d.HideElement(ctx, overlay.Selector); herr != nil {
			log.Printf("[browser] overlay hide failed: %v", herr)
		}
	}

	return d.JSClick(ctx, el.Selector)
}
