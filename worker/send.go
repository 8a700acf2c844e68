package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"telereach/models"
	"telereach/transport"
)

// attemptSend delivers content over an established connection and
// classifies the outcome. A rate-limit answer sleeps out the mandated
// wait and records a skip; delivery is never re-attempted within the
// same task.
func attemptSend(ctx context.Context, conn transport.Conn, recipient, content string, sleep func(time.Duration), log *logrus.Entry) (string, *string) {
	err := conn.Send(ctx, recipient, content)
	if err == nil {
		return models.SendStatusSent, nil
	}

	var rateLimited *transport.RateLimitedError
	if errors.As(err, &rateLimited) {
		log.WithField("wait", rateLimited.Wait).Warn("rate limit hit, waiting")
		sleep(rateLimited.Wait)
		msg := fmt.Sprintf("rate limited: wait %ds", int(rateLimited.Wait.Seconds()))
		return models.SendStatusSkipped, &msg
	}

	var protoErr *transport.ProtocolError
	if errors.As(err, &protoErr) {
		msg := fmt.Sprintf("protocol error %d: %s", protoErr.Code, protoErr.Message)
		return models.SendStatusFailed, &msg
	}

	msg := err.Error()
	return models.SendStatusFailed, &msg
}
