package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// Config holds mail provider settings.
type Config struct {
	Enable    bool
	Host      string
	Port      int
	User      string
	Pass      string
	From      string
	ReplyTo   string
	UseResend bool
	ResendKey string
}

// Message is a single email to send.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender sends emails via SMTP or Resend.
type Sender struct {
	cfg            Config
	client         *http.Client
	resendEndpoint string
}

func New(cfg Config) *Sender {
	return &Sender{
		cfg:            cfg,
		client:         &http.Client{Timeout: 15 * time.Second},
		resendEndpoint: resendEndpoint,
	}
}

// Enabled reports whether Send actually delivers anything.
func (s *Sender) Enabled() bool { return s.cfg.Enable }

// Send dispatches an email. Uses Resend if configured, otherwise SMTP.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enable {
		return nil
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", msg.Subject)
	}
	if s.cfg.UseResend && s.cfg.ResendKey != "" {
		return s.sendResend(ctx, msg)
	}
	return s.sendSMTP(msg)
}

func (s *Sender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.User
}

// sendSMTP sends via net/smtp.
func (s *Sender) sendSMTP(msg Message) error {
	port := s.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, port)
	from := s.from()

	var body bytes.Buffer
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString(fmt.Sprintf("From: %s\r\n", from))
	body.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	body.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if s.cfg.ReplyTo != "" {
		body.WriteString(fmt.Sprintf("Reply-To: %s\r\n", s.cfg.ReplyTo))
	}
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	return smtp.SendMail(addr, auth, from, msg.To, body.Bytes())
}

// sendResend sends via the Resend HTTP API.
func (s *Sender) sendResend(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    s.from(),
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

const reviewDecisionTpl = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head>
<body style="background-color:#fff;margin:0 auto;font-family:ui-sans-serif,system-ui,-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica Neue,Arial,sans-serif;padding:.5rem">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:100%;border:1px solid {{.Accent}};border-radius:.25rem;margin:40px auto;padding:20px;width:550px">
    <tbody>
      <tr><td>
        <h1 style="color:#000;font-size:18px;font-weight:400;text-align:center;margin:30px 0">{{.Headline}}</h1>
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#000">Hi {{.AuthorName}},</p>
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#000">{{.Body}} <strong>{{.Title}}</strong></p>
        {{if .Reason}}
        <p style="font-size:14px;line-height:24px;margin:16px 0;color:#000">Reviewer notes:</p>
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="background-color:rgb(243,244,246);border-radius:.75rem;padding:0 1rem">
          <tbody><tr><td><p style="font-size:12px;line-height:24px;margin:16px 0;color:rgb(51,51,51)">{{.Reason}}</p></td></tr></tbody>
        </table>
        {{end}}
        {{if .LinkURL}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="text-align:center;margin:32px 0">
          <tbody><tr><td>
            <a href="{{.LinkURL}}" target="_blank" style="text-decoration:none;display:inline-block;padding:12px 20px;background-color:{{.Accent}};border-radius:.25rem;color:#fff;font-size:12px;font-weight:600">{{.LinkLabel}}</a>
          </td></tr></tbody>
        </table>
        {{end}}
        <hr style="width:100%;border:none;border-top:1px solid #eaeaea;margin:26px 0" />
        <p style="font-size:10px;line-height:24px;margin:16px 0;text-align:center;color:rgb(156,163,175)">This is an automated message from helloRun.<br />&copy;{{year}} helloRun</p>
      </td></tr>
    </tbody>
  </table>
</body>
</html>`

// ReviewDecisionData is the data for blog review decision emails.
type ReviewDecisionData struct {
	AuthorName string
	Title      string
	Approved   bool
	Reason     string
	LinkURL    string
}

type reviewDecisionView struct {
	ReviewDecisionData
	Headline  string
	Body      string
	Accent    template.CSS
	LinkLabel string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderReviewDecision builds the subject and HTML body of a review decision email.
func RenderReviewDecision(data ReviewDecisionData) (subject, html string, err error) {
	if strings.TrimSpace(data.AuthorName) == "" {
		data.AuthorName = "runner"
	}
	view := reviewDecisionView{ReviewDecisionData: data}
	if data.Approved {
		subject = fmt.Sprintf("Your post \"%s\" is live", data.Title)
		view.Headline = "Your post was published"
		view.Body = "Good news, an editor approved your post"
		view.Accent = "rgb(22,163,74)"
		view.LinkLabel = "Read it on helloRun"
	} else {
		subject = fmt.Sprintf("Your post \"%s\" needs changes", data.Title)
		view.Headline = "Your post needs a few changes"
		view.Body = "An editor reviewed your post and sent it back"
		view.Accent = "rgb(234,88,12)"
		view.LinkLabel = "Edit your post"
	}
	html, err = renderTemplate(reviewDecisionTpl, view)
	return subject, html, err
}

// SendReviewDecision tells an author their post was approved or rejected.
func (s *Sender) SendReviewDecision(ctx context.Context, to string, data ReviewDecisionData) error {
	subject, html, err := RenderReviewDecision(data)
	if err != nil {
		return err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
}
