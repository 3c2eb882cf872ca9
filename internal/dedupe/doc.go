// Package dedupe provides a TTL cache for suppressing duplicate
// conversation entry delivery.
package dedupe
