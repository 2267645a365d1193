package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/logging"
)

// LogNotifier is used when no mail API key is configured. It prints the
// message to w (normally stdout) and records only the recipient in the log.
type LogNotifier struct {
	mu  sync.Mutex
	w   io.Writer
	log logging.Logger
}

func NewLogNotifier(w io.Writer, log logging.Logger) *LogNotifier {
	return &LogNotifier{w: w, log: log.With("module", "log_notifier")}
}

func (n *LogNotifier) SendOTP(ctx context.Context, to, username, code string, ttl time.Duration) error {
	return n.print(ctx, to, subjectOTP, fmt.Sprintf("hi %s, your code is %s (valid %d min)", username, code, minutes(ttl)))
}

func (n *LogNotifier) SendTemporaryPassword(ctx context.Context, to, password string) error {
	return n.print(ctx, to, subjectTempPassword, "temporary password: "+password)
}

func (n *LogNotifier) print(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.log.Info(ctx, "mail delivery disabled, printing message", "to", to, "subject", subject)
	if _, err := fmt.Fprintf(n.w, "To: %s\nSubject: %s\n\n%s\n\n", to, subject, body); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotification, err)
	}
	return nil
}
