package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/netx"
)

// MailNotifier renders templates and posts them to a transactional mail API
// (POST {base}/emails with a bearer key).
type MailNotifier struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    string
	source  TemplateSource
}

func NewMailNotifier(client *http.Client, baseURL, apiKey, from string, source TemplateSource) *MailNotifier {
	if source == nil {
		source = EmbeddedSource{}
	}
	return &MailNotifier{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		source:  source,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (n *MailNotifier) SendOTP(ctx context.Context, to, username, code string, ttl time.Duration) error {
	html, err := n.render(ctx, TemplateOTP, otpData{Username: username, Code: code, Minutes: minutes(ttl)})
	if err != nil {
		return err
	}
	return n.send(ctx, to, subjectOTP, html)
}

func (n *MailNotifier) SendTemporaryPassword(ctx context.Context, to, password string) error {
	html, err := n.render(ctx, TemplateTempPassword, tempPasswordData{Password: password})
	if err != nil {
		return err
	}
	return n.send(ctx, to, subjectTempPassword, html)
}

func (n *MailNotifier) render(ctx context.Context, name string, data any) (string, error) {
	text, err := n.source.Template(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrNotification, err)
	}
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: parse template %s: %v", common.ErrNotification, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: render template %s: %v", common.ErrNotification, name, err)
	}
	return buf.String(), nil
}

func (n *MailNotifier) send(ctx context.Context, to, subject, html string) error {
	req := sendRequest{From: n.from, To: []string{to}, Subject: subject, HTML: html}
	if err := netx.DoJSON(ctx, n.client, http.MethodPost, n.baseURL+"/emails", netx.Bearer(n.apiKey), req, nil); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNotification, err)
	}
	return nil
}
