// Package email provides email sending capabilities via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"echoverse/internal/observability"
)

// Sender is the outbound email surface the handlers depend on. Tests swap in
// a recording implementation.
type Sender interface {
	SendVerificationEmail(to, userName, verificationURL string) error
	SendPasswordResetEmail(to, userName, resetURL string) error
	SendEmailChangeEmail(to, userName, confirmURL string) error
	SendModerationNotice(to, userName string, blocked bool) error
}

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service sends emails over SMTP.
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends an HTML email with a plain text fallback part.
func (s *Service) SendHTMLEmail(to []string, subject, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-echoverse"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n")
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type linkData struct {
	AppName  string
	UserName string
	LinkURL  string
}

type moderationData struct {
	AppName  string
	UserName string
	Blocked  bool
}

// SendVerificationEmail sends an email verification email
func (s *Service) SendVerificationEmail(to, userName, verificationURL string) error {
	return s.sendTemplate("verification", verificationEmailTemplate,
		"Verify your EchoVerse account",
		linkData{AppName: "EchoVerse", UserName: userName, LinkURL: verificationURL}, to)
}

// SendPasswordResetEmail sends a password reset email
func (s *Service) SendPasswordResetEmail(to, userName, resetURL string) error {
	return s.sendTemplate("password_reset", passwordResetEmailTemplate,
		"Reset your EchoVerse password",
		linkData{AppName: "EchoVerse", UserName: userName, LinkURL: resetURL}, to)
}

// SendEmailChangeEmail sends the confirmation link to a pending new address.
func (s *Service) SendEmailChangeEmail(to, userName, confirmURL string) error {
	return s.sendTemplate("email_change", emailChangeEmailTemplate,
		"Confirm your new EchoVerse email address",
		linkData{AppName: "EchoVerse", UserName: userName, LinkURL: confirmURL}, to)
}

// SendModerationNotice tells a user their account was blocked or unblocked.
func (s *Service) SendModerationNotice(to, userName string, blocked bool) error {
	subject := "Your EchoVerse account has been unblocked"
	if blocked {
		subject = "Your EchoVerse account has been blocked"
	}
	return s.sendTemplate("moderation", moderationEmailTemplate, subject,
		moderationData{AppName: "EchoVerse", UserName: userName, Blocked: blocked}, to)
}

func (s *Service) sendTemplate(name, tmpl, subject string, data interface{}, to string) error {
	html, err := renderTemplate(tmpl, data)
	if err != nil {
		observability.EmailsSent.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("render %s template: %w", name, err)
	}
	if err := s.SendHTMLEmail([]string{to}, subject, html); err != nil {
		observability.EmailsSent.WithLabelValues(name, "error").Inc()
		return err
	}
	observability.EmailsSent.WithLabelValues(name, "ok").Inc()
	return nil
}

func renderTemplate(tmpl string, data interface{}) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const emailStyle = `body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #7b2ff7; padding-bottom: 10px; margin-bottom: 20px; }
        .button { display: inline-block; padding: 12px 24px; background: #7b2ff7; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
        .link { word-break: break-all; color: #7b2ff7; }
        .warning { background: #fff3cd; padding: 12px; border-radius: 4px; margin: 20px 0; }`

const verificationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Verify your {{.AppName}} account</title>
    <style>
        ` + emailStyle + `
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Welcome, {{.UserName}}!</h2>

    <p>Thank you for signing up. Please verify your email address to activate your account.</p>

    <p>
        <a href="{{.LinkURL}}" class="button">Verify Email Address</a>
    </p>

    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.LinkURL}}</p>

    <p>This verification link will expire in 24 hours.</p>

    <div class="footer">
        <p>If you didn't create an account with {{.AppName}}, you can safely ignore this email.</p>
    </div>
</body>
</html>`

const passwordResetEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reset your {{.AppName}} password</title>
    <style>
        ` + emailStyle + `
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Password Reset Request</h2>

    <p>Hi {{.UserName}},</p>

    <p>We received a request to reset your password. Click the button below to create a new password:</p>

    <p>
        <a href="{{.LinkURL}}" class="button">Reset Password</a>
    </p>

    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.LinkURL}}</p>

    <div class="warning">
        <strong>Important:</strong> This reset link will expire in 1 hour.
    </div>

    <div class="footer">
        <p>If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
    </div>
</body>
</html>`

const emailChangeEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Confirm your new {{.AppName}} email</title>
    <style>
        ` + emailStyle + `
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Confirm Email Change</h2>

    <p>Hi {{.UserName}},</p>

    <p>You asked to move your {{.AppName}} account to this address. Confirm the change below:</p>

    <p>
        <a href="{{.LinkURL}}" class="button">Confirm New Email</a>
    </p>

    <p>Or copy and paste this link into your browser:</p>
    <p class="link">{{.LinkURL}}</p>

    <p>This confirmation link will expire in 24 hours.</p>

    <div class="footer">
        <p>If you didn't request this change, you can safely ignore this email. Your account email will remain unchanged.</p>
    </div>
</body>
</html>`

const moderationEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.AppName}} account notice</title>
    <style>
        ` + emailStyle + `
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>

    <h2>Account Notice</h2>

    <p>Hi {{.UserName}},</p>

    {{if .Blocked}}
    <p>Your account has been blocked by the moderation team. While blocked, your profile and posts are hidden from other users and you cannot log in.</p>
    <p>If you believe this is a mistake, reply to this email to reach support.</p>
    {{else}}
    <p>Your account has been unblocked. Your profile and posts are visible again and you can log in as usual.</p>
    {{end}}

    <div class="footer">
        <p>This is an automated message from {{.AppName}} moderation.</p>
    </div>
</body>
</html>`
