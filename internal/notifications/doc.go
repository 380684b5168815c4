// Package notifications publishes run and slide outcomes to ntfy.
//
// The Service renders each Event into a short human-readable push message.
// Event categories map to config switches (runs, slides, errors) so operators
// choose how chatty the topic gets; an unset topic yields a noop service so
// callers never branch on configuration.
package notifications
