package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a verification token to a freshly registered email
// address. Delivery is fire-and-forget: the caller ignores failures beyond
// logging them.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
}

type logNotifier struct {
	logger  *logrus.Logger
	baseURL string
}

// NewLogNotifier returns a Notifier that writes the verification link to
// the application log instead of sending mail. baseURL is the externally
// reachable address of the service, e.g. "http://127.0.0.1:8080".
func NewLogNotifier(logger *logrus.Logger, baseURL string) Notifier {
	return &logNotifier{logger: logger, baseURL: baseURL}
}

func (n *logNotifier) SendVerification(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/api/verify-email?token=%s", n.baseURL, token)
	n.logger.Infof("verification email sent to %s: %s", email, link)
	return nil
}
