// Package notify is the boundary to the announcement/audit channels. The
// core only needs to post audit notices and catalog announcements; the
// chat collaborator provides the real transport.
package notify

import "github.com/franz/media-indexer/internal/util"

// Announcement is a catalog update published to the update channel
type Announcement struct {
	PosterURL  string
	Caption    string
	TrailerURL string
}

// Notifier posts audit notices and announcements. Implementations must be
// safe for concurrent use; failures are the implementation's problem and
// never propagate into ingestion.
type Notifier interface {
	// Audit reports an operational notice (duplicate hit, enrichment miss)
	Audit(format string, args ...interface{})

	// Announce publishes a catalog announcement
	Announce(a Announcement) error
}

// LogNotifier routes notices to the process log. Default when no chat
// transport is wired in.
type LogNotifier struct{}

// Audit implements Notifier
func (LogNotifier) Audit(format string, args ...interface{}) {
	util.InfoLog(format, args...)
}

// Announce implements Notifier
func (LogNotifier) Announce(a Announcement) error {
	util.InfoLog("announce: %s", a.Caption)
	return nil
}
