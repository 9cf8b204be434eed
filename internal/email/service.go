package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis      *redis.Client
	from       string
	fromName   string
	smtpHost   string
	smtpPort   string
	smtpUser   string
	smtpPass   string
	retryDelay time.Duration
}

// New builds a queue-backed mailer on a shared Redis client. Close does not
// close the client.
func New(rdb *redis.Client, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass string) *Service {
	return &Service{
		redis:      rdb,
		from:       fromEmail,
		fromName:   fromName,
		smtpHost:   smtpHost,
		smtpPort:   smtpPort,
		smtpUser:   smtpUser,
		smtpPass:   smtpPass,
		retryDelay: 5 * time.Second,
	}
}

func (s *Service) Send(ctx context.Context, emailType, to, name, subject, body string) error {
	job := EmailJob{
		Type:    emailType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Error("Failed to queue email", "to", to, "type", emailType, "error", err)
		metrics.RecordEmail(emailType, "queue_failed")
		return err
	}

	metrics.RecordEmail(emailType, "queued")
	logger.Infof("Email queued: %s to %s", subject, to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Debug("Sending email", "to", job.To, "attempt", job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Error("Failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxTries)
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Infof("Email sent successfully to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	metrics.RecordEmail(job.Type, "failed")
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func money(d decimal.Decimal) string {
	return "INR " + d.StringFixed(2)
}

func (s *Service) SendWithdrawalRequested(ctx context.Context, email, name string, id int64, gross, tds, net decimal.Decimal) error {
	subject := fmt.Sprintf("Withdrawal #%d received", id)
	body := fmt.Sprintf(`Hi %s,

We have received your withdrawal request.

Amount: %s
TDS: %s
You will receive: %s

The amount has been reserved from your withdrawal wallet and will be
reviewed shortly.

- AdPlayMart Team`, name, money(gross), money(tds), money(net))

	return s.Send(ctx, "withdrawal_requested", email, name, subject, body)
}

func (s *Service) SendWithdrawalApproved(ctx context.Context, email, name string, id int64, net decimal.Decimal) error {
	subject := fmt.Sprintf("Withdrawal #%d approved", id)
	body := fmt.Sprintf(`Hi %s,

Your withdrawal of %s has been approved and is queued for payout.

- AdPlayMart Team`, name, money(net))

	return s.Send(ctx, "withdrawal_approved", email, name, subject, body)
}

func (s *Service) SendWithdrawalProcessed(ctx context.Context, email, name string, id int64, net decimal.Decimal, note string) error {
	subject := fmt.Sprintf("Withdrawal #%d paid", id)
	body := fmt.Sprintf(`Hi %s,

%s has been transferred to your bank account.

Reference: %s

- AdPlayMart Team`, name, money(net), note)

	return s.Send(ctx, "withdrawal_processed", email, name, subject, body)
}

func (s *Service) SendWithdrawalRejected(ctx context.Context, email, name string, id int64, gross decimal.Decimal, reason string) error {
	subject := fmt.Sprintf("Withdrawal #%d rejected", id)
	body := fmt.Sprintf(`Hi %s,

Your withdrawal request was rejected.

Reason: %s

%s has been returned to your withdrawal wallet.

- AdPlayMart Team`, name, reason, money(gross))

	return s.Send(ctx, "withdrawal_rejected", email, name, subject, body)
}

func (s *Service) SendPackageActivated(ctx context.Context, email, name, packageName string, price decimal.Decimal, validityDays int) error {
	subject := "Package activated - " + packageName
	body := fmt.Sprintf(`Hi %s,

Your %s package is now active.

Price: %s
Valid for: %d days

Daily income and activity rewards start today.

- AdPlayMart Team`, name, packageName, money(price), validityDays)

	return s.Send(ctx, "package_activated", email, name, subject, body)
}
