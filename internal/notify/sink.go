package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sink delivers a single outbound message.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// LogSink stands in for an email provider and only writes the message to
// the log.
type LogSink struct {
	logger logrus.FieldLogger
}

func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mock email sent")
	return nil
}
