package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// EmailService handles sending emails via SMTP. Sends are fire-and-forget
// from the caller's point of view: every caller logs and moves on.
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	contact  string
}

// NewEmailService creates a new email service instance
func NewEmailService() *EmailService {
	port := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	return &EmailService{
		host:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		port:     port,
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getEnvOrDefault("SMTP_FROM", "noreply@museume.app"),
		contact:  getEnvOrDefault("CONTACT_EMAIL", "support@museume.app"),
	}
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.username != "" && e.password != ""
}

// SendClassLinkEmail delivers the access link for a real-time class to the
// guardian-resolved address after a successful payment.
func (e *EmailService) SendClassLinkEmail(toEmail, memberName, className, classURL string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Class link for %s: %s", toEmail, classURL)
		return fmt.Errorf("SMTP not configured")
	}

	subject := fmt.Sprintf("Your class link for %s", className)
	body := e.buildClassLinkBody(memberName, className, classURL)

	return e.sendEmail(toEmail, subject, body)
}

// SendClassReminderEmail reminds a confirmed member that a real-time class
// starts soon.
func (e *EmailService) SendClassReminderEmail(toEmail, memberName, className, classURL, startsAt string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Reminder for %s about %s", toEmail, className)
		return fmt.Errorf("SMTP not configured")
	}

	subject := fmt.Sprintf("Reminder: %s starts soon", className)
	body := e.buildReminderBody(memberName, className, classURL, startsAt)

	return e.sendEmail(toEmail, subject, body)
}

// SendPasswordResetEmail delivers a single-use password reset link.
func (e *EmailService) SendPasswordResetEmail(toEmail, memberName, token string) error {
	if !e.IsConfigured() {
		log.Printf("SMTP not configured. Reset token for %s: %s", toEmail, token)
		return fmt.Errorf("SMTP not configured")
	}

	frontendURL := getEnvOrDefault("FRONTEND_URL", "http://localhost:3000")
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", frontendURL, token)

	subject := "Reset your museume password"
	body := e.buildPasswordResetBody(memberName, resetURL)

	return e.sendEmail(toEmail, subject, body)
}

func (e *EmailService) buildClassLinkBody(memberName, className, classURL string) string {
	if memberName == "" {
		memberName = "there"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1e3a5f;">museume</h2>
    <p>Hello %s,</p>
    <p>Your signup for <strong>%s</strong> is confirmed. Join the class with the link below:</p>
    <p style="margin: 24px 0;">
        <a href="%s" style="background-color: #1e3a5f; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Join class</a>
    </p>
    <p style="font-size: 12px; color: #666; word-break: break-all;">%s</p>
    <p style="font-size: 12px; color: #666;">Questions? Write to %s.</p>
</body>
</html>`, memberName, className, classURL, classURL, e.contact)
}

func (e *EmailService) buildReminderBody(memberName, className, classURL, startsAt string) string {
	if memberName == "" {
		memberName = "there"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1e3a5f;">museume</h2>
    <p>Hello %s,</p>
    <p><strong>%s</strong> starts at %s.</p>
    <p style="margin: 24px 0;">
        <a href="%s" style="background-color: #1e3a5f; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Join class</a>
    </p>
    <p style="font-size: 12px; color: #666;">Questions? Write to %s.</p>
</body>
</html>`, memberName, className, startsAt, classURL, e.contact)
}

func (e *EmailService) buildPasswordResetBody(memberName, resetURL string) string {
	if memberName == "" {
		memberName = "there"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #1e3a5f;">museume</h2>
    <p>Hello %s,</p>
    <p>We received a request to reset your password. The link below is valid for one hour and can be used once:</p>
    <p style="margin: 24px 0;">
        <a href="%s" style="background-color: #1e3a5f; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Reset password</a>
    </p>
    <p style="font-size: 12px; color: #666; word-break: break-all;">%s</p>
    <p style="font-size: 12px; color: #666;">If you did not request this, you can ignore this email.</p>
</body>
</html>`, memberName, resetURL, resetURL)
}

// sendEmail sends an email using SMTP with STARTTLS
func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("museume <%s>", e.from)
	headers["Reply-To"] = e.contact
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.username, e.password, e.host)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         e.host,
	}

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	conn.Quit()

	log.Printf("Email sent to %s: %s", to, subject)
	return nil
}
