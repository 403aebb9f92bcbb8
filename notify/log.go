package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogNotifier writes notification activity to the log. It stands in for a
// device channel on headless deployments.
type LogNotifier struct{}

func (LogNotifier) Schedule(ctx context.Context, n Notification) error {
	log.WithFields(log.Fields{
		"id":    n.ID,
		"title": n.Title,
		"body":  n.Body,
		"at":    n.At,
	}).Info("notification")
	return nil
}

func (LogNotifier) Cancel(ctx context.Context, id uint32) error {
	log.WithField("id", id).Debug("notification canceled")
	return nil
}
